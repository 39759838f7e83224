package repository

import (
	"context"
	"docportal/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ViewRepository struct {
	db *pgxpool.Pool
}

func NewViewRepository(db *pgxpool.Pool) *ViewRepository {
	return &ViewRepository{db: db}
}

// Upsert — одна строка на (документ, пользователь), viewed_at перезаписывается.
func (r *ViewRepository) Upsert(ctx context.Context, documentID, userID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_document_views (document_id, user_id, viewed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (document_id, user_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at`,
		documentID, userID,
	)
	return err
}

// Recent — последние просмотренные документы пользователя.
func (r *ViewRepository) Recent(ctx context.Context, userID string, limit int, includeHidden bool) ([]*models.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT d.id, d.title, d.description, d.category_id, d.created_by, d.is_restricted,
		       d.created_at, d.updated_at, v.viewed_at
		FROM user_document_views v
		JOIN documents d ON d.id = v.document_id
		WHERE v.user_id = $1 AND ($3 OR d.is_restricted = false)
		ORDER BY v.viewed_at DESC
		LIMIT $2`, userID, limit, includeHidden)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Document, 0, limit)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Description, &d.CategoryID, &d.CreatedBy, &d.IsRestricted,
			&d.CreatedAt, &d.UpdatedAt, &d.ViewedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
