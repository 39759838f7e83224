package repository

import (
	"context"
	"docportal/internal/logger"
	"docportal/internal/models"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type FeedbackRepository struct {
	db *pgxpool.Pool
}

func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Insert добавляет отзыв. Уникален набор (документ, пользователь, комментарий);
// ошибку 23505 отдаёт как есть, разбор делает сервис.
func (r *FeedbackRepository) Insert(ctx context.Context, fb *models.DocumentFeedback) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO document_feedback (document_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		fb.DocumentID, fb.UserID, fb.Rating, fb.Comment,
	).Scan(&fb.ID, &fb.CreatedAt)
}

// ExistsFor сообщает, оставлял ли пользователь отзыв на документ.
func (r *FeedbackRepository) ExistsFor(ctx context.Context, documentID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM document_feedback WHERE document_id = $1 AND user_id = $2)`,
		documentID, userID,
	).Scan(&ok)
	return ok, err
}

func (r *FeedbackRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.DocumentFeedback, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, document_id, user_id, rating, comment, created_at
		FROM document_feedback
		WHERE document_id = $1
		ORDER BY created_at DESC`, documentID)
	if err != nil {
		logger.Log.Error("Ошибка получения отзывов (repo)", zap.String("doc_id", documentID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.DocumentFeedback, 0)
	for rows.Next() {
		var fb models.DocumentFeedback
		if err := rows.Scan(&fb.ID, &fb.DocumentID, &fb.UserID, &fb.Rating, &fb.Comment, &fb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &fb)
	}
	return out, rows.Err()
}

// ListAll — отзывы для админской панели с документом, категорией и автором.
func (r *FeedbackRepository) ListAll(ctx context.Context, f models.FeedbackFilter) ([]*models.FeedbackEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Rating > 0 {
		where = append(where, "fb.rating = "+arg(f.Rating))
	}
	if f.CategoryID != "" {
		where = append(where, "d.category_id = "+arg(f.CategoryID))
	}
	if term := strings.TrimSpace(f.Term); term != "" {
		p := arg("%" + term + "%")
		where = append(where, fmt.Sprintf(
			"(d.title ILIKE %[1]s OR fb.comment ILIKE %[1]s OR u.full_name ILIKE %[1]s OR u.name ILIKE %[1]s OR u.email ILIKE %[1]s)", p))
	}

	q := `
SELECT fb.id, fb.document_id, fb.user_id, fb.rating, fb.comment, fb.created_at,
       d.title, d.category_id, c.name, u.email, COALESCE(u.full_name, u.name)
FROM document_feedback fb
JOIN documents d ON d.id = fb.document_id
LEFT JOIN categories c ON c.id = d.category_id
LEFT JOIN users u ON u.id = fb.user_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY fb.created_at DESC"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		logger.Log.Error("Ошибка получения отзывов для панели (repo)", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.FeedbackEntry, 0)
	for rows.Next() {
		var e models.FeedbackEntry
		if err := rows.Scan(
			&e.ID, &e.DocumentID, &e.UserID, &e.Rating, &e.Comment, &e.CreatedAt,
			&e.DocumentTitle, &e.CategoryID, &e.CategoryName, &e.UserEmail, &e.UserName,
		); err != nil {
			logger.Log.Error("Ошибка сканирования отзыва (repo)", zap.Error(err))
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
