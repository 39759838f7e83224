package models

import "time"

type UserDocumentView struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	ViewedAt   time.Time `json:"viewed_at"`
}
