package repository

import (
	"context"
	"docportal/internal/logger"
	"docportal/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// UserRepository — профили поверх пользователей auth-сервиса (таблица users).
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.db.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	return role, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	logger.Log.Debug("Получение пользователя по ID (repo)", zap.String("user_id", id))
	var u models.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, name, full_name, role, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.FullName, &u.Role, &u.CreatedAt)
	if err != nil {
		if err != pgx.ErrNoRows {
			logger.Log.Error("Ошибка получения пользователя по ID (repo)", zap.String("user_id", id), zap.Error(err))
		}
		return nil, err
	}
	return &u, nil
}

// Upsert создаёт профиль или обновляет e-mail и имя. Роль не трогает.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	logger.Log.Info("Сохранение профиля пользователя (repo)", zap.String("user_id", u.ID), zap.String("email", u.Email))
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, full_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = COALESCE(EXCLUDED.name, users.name),
		    full_name = COALESCE(EXCLUDED.full_name, users.full_name)
		RETURNING role, created_at`,
		u.ID, u.Email, u.Name, u.FullName,
	).Scan(&u.Role, &u.CreatedAt)
	if err != nil {
		logger.Log.Error("Ошибка сохранения профиля (repo)", zap.String("user_id", u.ID), zap.Error(err))
	}
	return err
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, email, name, full_name, role, created_at FROM users ORDER BY email`)
	if err != nil {
		logger.Log.Error("Ошибка получения пользователей (repo)", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			logger.Log.Error("Ошибка сканирования пользователя (repo)", zap.Error(err))
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// SetRole возвращает pgx.ErrNoRows, если профиля нет.
func (r *UserRepository) SetRole(ctx context.Context, userID, role string) error {
	logger.Log.Info("Изменение роли пользователя (repo)", zap.String("user_id", userID), zap.String("role", role))
	tag, err := r.db.Exec(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
