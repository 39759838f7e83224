package services

import (
	"context"
	"docportal/internal/logger"
	"docportal/internal/models"

	"go.uber.org/zap"
)

type Seeder interface {
	Seed(ctx context.Context, categories []*models.Category, docs []*models.Document, docCategory []int) (bool, error)
}

type SeedService struct{ repo Seeder }

func NewSeedService(repo Seeder) *SeedService { return &SeedService{repo: repo} }

func strp(s string) *string { return &s }

func defaultCategories() []*models.Category {
	return []*models.Category{
		{Name: "Invoicing", Description: strp("Billing and invoice related procedures")},
		{Name: "Inventory", Description: strp("Inventory management and stock control")},
		{Name: "Operations", Description: strp("Day-to-day operational procedures")},
		{Name: "HR", Description: strp("Human resources policies and procedures")},
		{Name: "IT", Description: strp("IT systems and technical documentation")},
	}
}

func sampleDocuments(createdBy string) ([]*models.Document, []int) {
	docs := []*models.Document{
		{
			Title:       "Invoice Generation Process",
			Description: strp("Step-by-step guide for generating customer invoices"),
			Content: strp(`<h1>Invoice Generation Process</h1>
<h2>Overview</h2><p>This document outlines the standard procedure for generating customer invoices in our system.</p>
<h2>Steps</h2><ol><li>Log into the billing system</li><li>Navigate to 'New Invoice'</li><li>Select the customer from the dropdown</li>
<li>Add line items for products/services</li><li>Apply any discounts or special terms</li><li>Review for accuracy</li>
<li>Click 'Generate Invoice'</li><li>Send to customer via email or print for mailing</li></ol>
<h2>Notes</h2><ul><li>Always double-check amounts before finalizing</li><li>For special pricing, get manager approval</li>
<li>Invoices should be generated within 24 hours of service completion</li></ul>`),
		},
		{
			Title:       "Inventory Reconciliation Procedure",
			Description: strp("Monthly process for reconciling physical inventory with system records"),
			Content: strp(`<h1>Inventory Reconciliation Procedure</h1>
<h2>Purpose</h2><p>To ensure accuracy between physical inventory and system records.</p>
<h2>Frequency</h2><p>This procedure should be performed on the last Friday of each month.</p>
<h2>Process</h2><ol><li>Generate inventory report from system</li><li>Print count sheets by location</li>
<li>Perform physical count of all items</li><li>Record counts on sheets</li><li>Enter physical counts into system</li>
<li>Run variance report</li><li>Investigate any variances over 5%</li><li>Make necessary adjustments with manager approval</li>
<li>Document findings and resolutions</li><li>Submit final report to Finance department</li></ol>
<h2>Required Materials</h2><ul><li>Count sheets</li><li>Barcode scanner</li><li>Inventory adjustment forms</li></ul>`),
		},
		{
			Title:       "Customer Return Policy",
			Description: strp("Official policy for handling customer returns and exchanges"),
			Content: strp(`<h1>Customer Return Policy</h1>
<h2>Return Window</h2><p>Customers may return products within 30 days of purchase with receipt.</p>
<h2>Condition Requirements</h2><p>Items must be in original packaging and unused condition.</p>
<h2>Refund Methods</h2><ul><li>Original payment method for returns with receipt</li>
<li>Store credit for returns without receipt (manager approval required)</li></ul>
<h2>Non-Returnable Items</h2><ul><li>Custom orders</li><li>Clearance items (marked as final sale)</li><li>Opened software or digital products</li></ul>
<h2>Exchange Process</h2><ol><li>Verify purchase with receipt or in system</li><li>Inspect returned item condition</li>
<li>Process return in POS system</li><li>Issue refund or process exchange</li><li>Restock or mark for disposal as appropriate</li></ol>
<h2>Manager Override</h2><p>Required for returns beyond 30 days, returns without receipt over $50 and any exceptions to standard policy.</p>`),
		},
	}
	for _, d := range docs {
		d.CreatedBy = createdBy
	}
	return docs, []int{0, 1, 2}
}

// Seed заполняет справочник категорий и примеры документов, если база пуста.
// Возвращает false, если данные уже были.
func (s *SeedService) Seed(ctx context.Context, userID string) (bool, error) {
	docs, docCategory := sampleDocuments(userID)
	seeded, err := s.repo.Seed(ctx, defaultCategories(), docs, docCategory)
	if err != nil {
		return false, err
	}
	logger.WithCtx(ctx).Info("Начальное заполнение", zap.Bool("seeded", seeded))
	return seeded, nil
}
