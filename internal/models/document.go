package models

import "time"

type Document struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	Content      *string    `json:"content,omitempty"`
	Excerpt      string     `json:"excerpt,omitempty"`
	CategoryID   *string    `json:"category_id"`
	FilePath     *string    `json:"file_path"`
	CreatedBy    string     `json:"created_by"`
	UpdatedBy    *string    `json:"updated_by"`
	IsRestricted bool       `json:"is_restricted"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Category     *Category  `json:"category,omitempty"`
	ViewedAt     *time.Time `json:"viewed_at,omitempty"`
}

// DocumentDetails — документ для страницы просмотра.
type DocumentDetails struct {
	Document
	CreatorName string      `json:"creator_name"`
	Permissions Permissions `json:"permissions"`
}

// swagger:model DocumentRequest
type DocumentRequest struct {
	Title        string `json:"title"         example:"Processo de emissão de notas"`
	Description  string `json:"description"   example:"Passo a passo para emitir notas"`
	Content      string `json:"content"       example:"<h1>Visão geral</h1><p>...</p>"`
	CategoryID   string `json:"category_id"   example:"3f7c1f9e-2b1d-4c7a-9a57-1d2f5c8b9e10"`
	IsRestricted bool   `json:"is_restricted"`
}

type DocumentFilter struct {
	Query         string
	CategoryID    string
	IncludeHidden bool
	Limit         int
	Offset        int
}

type DocumentPage struct {
	Items []*Document `json:"items"`
	Total int         `json:"total"`
}
