package services

import (
	"context"
	"docportal/internal/backend"
	"docportal/internal/logger"
	"docportal/internal/models"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrCategoryNotFound = errors.New("категория не найдена")

type CategoryRepo interface {
	ListWithCounts(ctx context.Context) ([]*models.CategoryWithCount, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id string) error
}

type CategoryService struct{ repo CategoryRepo }

func NewCategoryService(r CategoryRepo) *CategoryService {
	return &CategoryService{repo: r}
}

func (s *CategoryService) List(ctx context.Context) ([]*models.CategoryWithCount, error) {
	return s.repo.ListWithCounts(ctx)
}

func categoryFromRequest(req models.CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, backend.NewValidationError("name", "название категории обязательно")
	}
	c := &models.Category{Name: name}
	if d := strings.TrimSpace(req.Description); d != "" {
		c.Description = &d
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	c, err := categoryFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		logger.WithCtx(ctx).Error("Ошибка создания категории (service)", zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, req models.CategoryRequest) (*models.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrCategoryNotFound
	}
	c, err := categoryFromRequest(req)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.repo.Update(ctx, c); err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

// Delete удаляет категорию; документы остаются без категории.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrCategoryNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if backend.IsNotFound(err) {
			return ErrCategoryNotFound
		}
		return err
	}
	logger.WithCtx(ctx).Info("Категория удалена", zap.String("category_id", id))
	return nil
}
