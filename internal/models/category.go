package models

import "time"

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryWithCount struct {
	Category
	DocsCount int `json:"docs_count"`
}

// swagger:model CategoryRequest
type CategoryRequest struct {
	Name        string `json:"name"        example:"Financeiro"`
	Description string `json:"description" example:"Procedimentos de faturamento"`
}
