package repository

import (
	"context"
	"docportal/internal/logger"
	"docportal/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type CategoryRepository struct {
	db *pgxpool.Pool
}

func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `c.id, c.name, c.description, c.created_at, c.updated_at`

func scanCategory(row pgx.Row, c *models.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
}

// ListWithCounts — все категории по имени вместе с числом документов.
func (r *CategoryRepository) ListWithCounts(ctx context.Context) ([]*models.CategoryWithCount, error) {
	q := `
SELECT ` + categoryColumns + `, COALESCE(d.cnt, 0) AS docs_count
FROM categories c
LEFT JOIN (
  SELECT category_id, COUNT(*) cnt FROM documents GROUP BY category_id
) d ON d.category_id = c.id
ORDER BY c.name`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		logger.Log.Error("Ошибка получения категорий (repo)", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.CategoryWithCount, 0)
	for rows.Next() {
		var c models.CategoryWithCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.DocsCount); err != nil {
			logger.Log.Error("Ошибка сканирования категории (repo)", zap.Error(err))
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id), &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	logger.Log.Info("Создание категории (repo)", zap.String("name", c.Name))
	return r.db.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		c.Name, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	logger.Log.Info("Обновление категории (repo)", zap.String("category_id", c.ID))
	err := r.db.QueryRow(ctx,
		`UPDATE categories SET name=$1, description=$2, updated_at=now() WHERE id=$3 RETURNING created_at, updated_at`,
		c.Name, c.Description, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		logger.Log.Error("Ошибка обновления категории (repo)", zap.String("category_id", c.ID), zap.Error(err))
	}
	return err
}

// Delete возвращает pgx.ErrNoRows, если категории нет.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		logger.Log.Error("Ошибка удаления категории (repo)", zap.String("category_id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
