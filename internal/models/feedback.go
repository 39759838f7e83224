package models

import "time"

type DocumentFeedback struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// swagger:model FeedbackRequest
type FeedbackRequest struct {
	Rating  int    `json:"rating"  example:"5"`
	Comment string `json:"comment" example:"Muito claro, obrigado!"`
}

type SubmitFeedbackInput struct {
	DocumentID string
	UserID     string
	Role       string
	Rating     int
	Comment    string
}

type DocumentFeedbackSummary struct {
	DocumentID    string              `json:"document_id"`
	AverageRating float64             `json:"average_rating"`
	Count         int                 `json:"count"`
	Items         []*DocumentFeedback `json:"items"`
}

// FeedbackEntry — строка админской панели отзывов.
type FeedbackEntry struct {
	DocumentFeedback
	DocumentTitle string  `json:"document_title"`
	CategoryID    *string `json:"category_id"`
	CategoryName  *string `json:"category_name"`
	UserEmail     *string `json:"user_email"`
	UserName      *string `json:"user_name"`
}

type FeedbackFilter struct {
	Rating     int
	CategoryID string
	Term       string
}
