package repository

import (
	"context"
	"docportal/internal/logger"
	"docportal/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type SeedRepository struct {
	db *pgxpool.Pool
}

func NewSeedRepository(db *pgxpool.Pool) *SeedRepository {
	return &SeedRepository{db: db}
}

// Seed в одной транзакции вставляет категории и документы, если категорий ещё нет.
// docCategory[i]: индекс категории документа docs[i] в categories.
func (r *SeedRepository) Seed(ctx context.Context, categories []*models.Category, docs []*models.Document, docCategory []int) (bool, error) {
	seeded := false
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories)`).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}

		for _, c := range categories {
			if err := tx.QueryRow(ctx,
				`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
				c.Name, c.Description,
			).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
				return err
			}
		}

		for i, d := range docs {
			if i < len(docCategory) && docCategory[i] < len(categories) {
				d.CategoryID = &categories[docCategory[i]].ID
			}
			if err := tx.QueryRow(ctx, `
				INSERT INTO documents (title, description, content, category_id, created_by)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id, created_at, updated_at`,
				d.Title, d.Description, d.Content, d.CategoryID, d.CreatedBy,
			).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		logger.Log.Error("Ошибка начального заполнения (repo)", zap.Error(err))
		return false, err
	}
	return seeded, nil
}
