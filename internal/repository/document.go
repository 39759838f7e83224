package repository

import (
	"context"
	"docportal/internal/logger"
	"docportal/internal/models"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DocumentRepository struct {
	db *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentSelect = `
SELECT d.id, d.title, d.description, d.content, d.category_id, d.file_path,
       d.created_by, d.updated_by, d.is_restricted, d.created_at, d.updated_at,
       c.id, c.name, c.description, c.created_at, c.updated_at
FROM documents d
LEFT JOIN categories c ON c.id = d.category_id`

// scanDocument читает документ вместе с категорией (из LEFT JOIN всё nullable).
func scanDocument(row pgx.Row) (*models.Document, error) {
	var (
		d          models.Document
		catID      *string
		catName    *string
		catDesc    *string
		catCreated *time.Time
		catUpdated *time.Time
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Content, &d.CategoryID, &d.FilePath,
		&d.CreatedBy, &d.UpdatedBy, &d.IsRestricted, &d.CreatedAt, &d.UpdatedAt,
		&catID, &catName, &catDesc, &catCreated, &catUpdated,
	)
	if err != nil {
		return nil, err
	}
	if catID != nil {
		d.Category = &models.Category{ID: *catID, Description: catDesc}
		if catName != nil {
			d.Category.Name = *catName
		}
		if catCreated != nil {
			d.Category.CreatedAt = *catCreated
		}
		if catUpdated != nil {
			d.Category.UpdatedAt = *catUpdated
		}
	}
	return &d, nil
}

// List — поиск по заголовку/тексту, фильтр по категории, свежие сверху.
func (r *DocumentRepository) List(ctx context.Context, f models.DocumentFilter) (*models.DocumentPage, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + q + "%")
		where = append(where, fmt.Sprintf("(d.title ILIKE %s OR d.content ILIKE %s)", p, p))
	}
	if f.CategoryID != "" {
		where = append(where, "d.category_id = "+arg(f.CategoryID))
	}
	if !f.IncludeHidden {
		where = append(where, "d.is_restricted = false")
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents d`+cond, args...).Scan(&total); err != nil {
		logger.Log.Error("Ошибка подсчёта документов (repo)", zap.Error(err))
		return nil, err
	}

	query := documentSelect + cond + ` ORDER BY d.updated_at DESC`
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Log.Error("Ошибка получения документов (repo)", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	page := &models.DocumentPage{Items: make([]*models.Document, 0), Total: total}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			logger.Log.Error("Ошибка сканирования документа (repo)", zap.Error(err))
			return nil, err
		}
		page.Items = append(page.Items, d)
	}
	return page, rows.Err()
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, documentSelect+` WHERE d.id = $1`, id))
	if err != nil {
		if err != pgx.ErrNoRows {
			logger.Log.Error("Ошибка получения документа по ID (repo)", zap.String("doc_id", id), zap.Error(err))
		}
		return nil, err
	}
	return d, nil
}

// Visible сообщает, есть ли документ; скрытые учитываются только при includeRestricted.
func (r *DocumentRepository) Visible(ctx context.Context, id string, includeRestricted bool) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1 AND (NOT is_restricted OR $2))`,
		id, includeRestricted,
	).Scan(&ok)
	return ok, err
}

func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	logger.Log.Info("Репозиторий: сохранение документа", zap.String("title", d.Title), zap.String("created_by", d.CreatedBy))
	err := r.db.QueryRow(ctx, `
		INSERT INTO documents (title, description, content, category_id, file_path, created_by, is_restricted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		d.Title, d.Description, d.Content, d.CategoryID, d.FilePath, d.CreatedBy, d.IsRestricted,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка сохранения документа (repo)", zap.Error(err))
	}
	return err
}

// Update возвращает pgx.ErrNoRows, если документа нет.
func (r *DocumentRepository) Update(ctx context.Context, d *models.Document) error {
	logger.Log.Info("Репозиторий: обновление документа", zap.String("doc_id", d.ID))
	err := r.db.QueryRow(ctx, `
		UPDATE documents
		SET title=$1, description=$2, content=$3, category_id=$4, is_restricted=$5, updated_by=$6, updated_at=now()
		WHERE id=$7
		RETURNING created_by, created_at, updated_at`,
		d.Title, d.Description, d.Content, d.CategoryID, d.IsRestricted, d.UpdatedBy, d.ID,
	).Scan(&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil && err != pgx.ErrNoRows {
		logger.Log.Error("Ошибка обновления документа (repo)", zap.String("doc_id", d.ID), zap.Error(err))
	}
	return err
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	logger.Log.Info("Репозиторий: удаление документа", zap.String("doc_id", id))
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		logger.Log.Error("Ошибка удаления документа (repo)", zap.String("doc_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
