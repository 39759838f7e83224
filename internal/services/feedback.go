package services

import (
	"context"
	"docportal/internal/backend"
	"docportal/internal/config"
	"docportal/internal/logger"
	"docportal/internal/metrics"
	"docportal/internal/models"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDocumentNotFound = errors.New("документ не найден")
	ErrFeedbackExists   = errors.New("отзыв на этот документ уже оставлен")
)

type FeedbackRepo interface {
	Insert(ctx context.Context, fb *models.DocumentFeedback) error
	ExistsFor(ctx context.Context, documentID, userID string) (bool, error)
	ListByDocument(ctx context.Context, documentID string) ([]*models.DocumentFeedback, error)
	ListAll(ctx context.Context, f models.FeedbackFilter) ([]*models.FeedbackEntry, error)
}

type DocumentChecker interface {
	Visible(ctx context.Context, id string, includeRestricted bool) (bool, error)
}

type FeedbackConfig struct {
	// ConflictPolicy: retry повторяет вставку с изменённым комментарием,
	// reject допускает один отзыв на пару (документ, пользователь).
	ConflictPolicy string
	MaxAttempts    int
	RetryDelay     time.Duration
}

type FeedbackService struct {
	repo  FeedbackRepo
	docs  DocumentChecker
	cfg   FeedbackConfig
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFeedbackService(repo FeedbackRepo, docs DocumentChecker, cfg FeedbackConfig) *FeedbackService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if cfg.ConflictPolicy == "" {
		cfg.ConflictPolicy = config.FeedbackPolicyRetry
	}
	return &FeedbackService{repo: repo, docs: docs, cfg: cfg, now: time.Now, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func validateFeedback(in models.SubmitFeedbackInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return backend.NewValidationError("rating", "оценка должна быть от 1 до 5")
	}
	if _, err := uuid.Parse(in.DocumentID); err != nil {
		return backend.NewValidationError("document_id", "некорректный идентификатор документа")
	}
	if _, err := uuid.Parse(in.UserID); err != nil {
		return backend.NewValidationError("user_id", "некорректный идентификатор пользователя")
	}
	return nil
}

// Submit сохраняет отзыв. При нарушении уникальности (документ, пользователь, комментарий)
// под политикой retry делает до MaxAttempts попыток, дописывая к комментарию
// отметку времени; любая другая ошибка прерывает попытки сразу.
// Скрытый документ для viewer не существует.
func (s *FeedbackService) Submit(ctx context.Context, in models.SubmitFeedbackInput) (*models.DocumentFeedback, error) {
	if err := validateFeedback(in); err != nil {
		return nil, err
	}
	log := logger.WithCtx(ctx).With(zap.String("doc_id", in.DocumentID))

	if err := s.checkVisible(ctx, in.DocumentID, in.Role); err != nil {
		return nil, err
	}

	if s.cfg.ConflictPolicy == config.FeedbackPolicyReject {
		exists, err := s.repo.ExistsFor(ctx, in.DocumentID, in.UserID)
		if err != nil {
			return nil, fmt.Errorf("проверка отзыва: %w", err)
		}
		if exists {
			metrics.FeedbackAttempts.WithLabelValues("conflict").Inc()
			return nil, ErrFeedbackExists
		}
	}

	base := strings.TrimSpace(in.Comment)
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		comment := base
		if attempt > 1 {
			comment = strings.TrimSpace(base + " (" + strconv.FormatInt(s.now().UnixMilli(), 10) + ")")
		}
		fb := &models.DocumentFeedback{
			DocumentID: in.DocumentID,
			UserID:     in.UserID,
			Rating:     in.Rating,
		}
		if comment != "" {
			fb.Comment = &comment
		}

		err := s.repo.Insert(ctx, fb)
		if err == nil {
			metrics.FeedbackAttempts.WithLabelValues("ok").Inc()
			log.Info("Отзыв сохранён", zap.String("feedback_id", fb.ID), zap.Int("attempt", attempt))
			return fb, nil
		}

		if !backend.IsConflict(err) {
			metrics.FeedbackAttempts.WithLabelValues("error").Inc()
			log.Error("Ошибка сохранения отзыва", zap.Int("attempt", attempt), zap.Error(err))
			return nil, fmt.Errorf("сохранение отзыва: %w", err)
		}

		metrics.FeedbackAttempts.WithLabelValues("conflict").Inc()
		if s.cfg.ConflictPolicy == config.FeedbackPolicyReject {
			return nil, ErrFeedbackExists
		}

		lastErr = err
		log.Warn("Конфликт уникальности отзыва, повторяем", zap.Int("attempt", attempt))
		if attempt < s.cfg.MaxAttempts {
			if err := s.sleep(ctx, s.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("отзыв не сохранён после %d попыток: %w", s.cfg.MaxAttempts, lastErr)
}

func (s *FeedbackService) checkVisible(ctx context.Context, documentID, role string) error {
	ok, err := s.docs.Visible(ctx, documentID, canSeeRestricted(role))
	if err != nil {
		return fmt.Errorf("проверка документа: %w", err)
	}
	if !ok {
		return ErrDocumentNotFound
	}
	return nil
}

// ForDocument возвращает отзывы документа со средней оценкой.
func (s *FeedbackService) ForDocument(ctx context.Context, documentID, role string) (*models.DocumentFeedbackSummary, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, backend.NewValidationError("document_id", "некорректный идентификатор документа")
	}
	if err := s.checkVisible(ctx, documentID, role); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.DocumentFeedback{}
	}
	sum := &models.DocumentFeedbackSummary{DocumentID: documentID, Items: items, Count: len(items)}
	if len(items) > 0 {
		total := 0
		for _, fb := range items {
			total += fb.Rating
		}
		sum.AverageRating = math.Round(float64(total)/float64(len(items))*10) / 10
	}
	return sum, nil
}

// Dashboard — список отзывов для админской панели.
func (s *FeedbackService) Dashboard(ctx context.Context, f models.FeedbackFilter) ([]*models.FeedbackEntry, error) {
	if f.Rating < 0 || f.Rating > 5 {
		return nil, backend.NewValidationError("rating", "оценка должна быть от 1 до 5")
	}
	if f.CategoryID != "" {
		if _, err := uuid.Parse(f.CategoryID); err != nil {
			return nil, backend.NewValidationError("category_id", "некорректный идентификатор категории")
		}
	}
	return s.repo.ListAll(ctx, f)
}
