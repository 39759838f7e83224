package services

import (
	"context"
	"docportal/internal/backend"
	"docportal/internal/logger"
	"docportal/internal/models"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	recentLimit     = 5
	excerptRunes    = 200
	unknownCreator  = "Usuário Desconhecido"
)

type DocumentRepo interface {
	List(ctx context.Context, f models.DocumentFilter) (*models.DocumentPage, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, d *models.Document) error
	Update(ctx context.Context, d *models.Document) error
	Delete(ctx context.Context, id string) error
}

type ViewRepo interface {
	Upsert(ctx context.Context, documentID, userID string) error
	Recent(ctx context.Context, userID string, limit int, includeHidden bool) ([]*models.Document, error)
}

type DocumentService struct {
	repo   DocumentRepo
	users  UserRepo
	views  ViewRepo
	policy *bluemonday.Policy
}

func NewDocumentService(repo DocumentRepo, users UserRepo, views ViewRepo) *DocumentService {
	p := bluemonday.UGCPolicy()
	p.AllowElements("img")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("style").OnElements("span", "p", "div")
	return &DocumentService{repo: repo, users: users, views: views, policy: p}
}

// canSeeRestricted — скрытые документы видят только editor и admin.
func canSeeRestricted(role string) bool {
	return models.PermissionsFor(role).CanEdit
}

func (s *DocumentService) List(ctx context.Context, f models.DocumentFilter, role string) (*models.DocumentPage, error) {
	if f.CategoryID != "" {
		if _, err := uuid.Parse(f.CategoryID); err != nil {
			return nil, backend.NewValidationError("category_id", "некорректный идентификатор категории")
		}
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.IncludeHidden = canSeeRestricted(role)

	page, err := s.repo.List(ctx, f)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка получения списка документов (service)", zap.Error(err))
		return nil, err
	}
	// в списке полный текст не нужен
	for _, d := range page.Items {
		if d.Content != nil {
			d.Excerpt = Excerpt(*d.Content, excerptRunes)
			d.Content = nil
		}
	}
	return page, nil
}

// Get — документ для просмотра. Просмотр фиксируется, его ошибка только логируется.
func (s *DocumentService) Get(ctx context.Context, id, userID, role string) (*models.DocumentDetails, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDocumentNotFound
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if doc.IsRestricted && !canSeeRestricted(role) {
		return nil, ErrDocumentNotFound
	}

	if userID != "" {
		if err := s.views.Upsert(ctx, id, userID); err != nil {
			logger.WithCtx(ctx).Warn("Не удалось сохранить просмотр документа", zap.String("doc_id", id), zap.Error(err))
		}
	}

	return &models.DocumentDetails{
		Document:    *doc,
		CreatorName: s.creatorName(ctx, doc.CreatedBy),
		Permissions: models.PermissionsFor(role),
	}, nil
}

// creatorName: full_name, затем name, затем часть e-mail до @.
func (s *DocumentService) creatorName(ctx context.Context, userID string) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return unknownCreator
	}
	return DisplayName(u)
}

func DisplayName(u *models.User) string {
	if u.FullName != nil && strings.TrimSpace(*u.FullName) != "" {
		return *u.FullName
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		return *u.Name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return unknownCreator
}

func (s *DocumentService) Recent(ctx context.Context, userID, role string) ([]*models.Document, error) {
	return s.views.Recent(ctx, userID, recentLimit, canSeeRestricted(role))
}

func (s *DocumentService) build(req models.DocumentRequest) (*models.Document, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, backend.NewValidationError("title", "заголовок обязателен")
	}
	if utf8.RuneCountInString(title) > 255 {
		return nil, backend.NewValidationError("title", "заголовок длиннее 255 символов")
	}
	if _, err := uuid.Parse(req.CategoryID); err != nil {
		return nil, backend.NewValidationError("category_id", "категория обязательна")
	}
	d := &models.Document{
		Title:        title,
		CategoryID:   &req.CategoryID,
		IsRestricted: req.IsRestricted,
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		d.Description = &desc
	}
	if req.Content != "" {
		clean := s.policy.Sanitize(req.Content)
		d.Content = &clean
	}
	return d, nil
}

func mapWriteError(err error) error {
	switch {
	case backend.IsForeignKey(err):
		return backend.NewValidationError("category_id", "категория не найдена")
	case backend.IsBadInput(err):
		return backend.NewValidationError("", "некорректные данные документа")
	}
	return err
}

func (s *DocumentService) Create(ctx context.Context, userID string, req models.DocumentRequest) (*models.Document, error) {
	d, err := s.build(req)
	if err != nil {
		return nil, err
	}
	d.CreatedBy = userID

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, mapWriteError(err)
	}
	logger.WithCtx(ctx).Info("Документ создан", zap.String("doc_id", d.ID), zap.String("title", d.Title))
	return d, nil
}

func (s *DocumentService) Update(ctx context.Context, id, userID string, req models.DocumentRequest) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDocumentNotFound
	}
	d, err := s.build(req)
	if err != nil {
		return nil, err
	}
	d.ID = id
	d.UpdatedBy = &userID

	if err := s.repo.Update(ctx, d); err != nil {
		if backend.IsNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, mapWriteError(err)
	}
	logger.WithCtx(ctx).Info("Документ обновлён", zap.String("doc_id", id))
	return d, nil
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrDocumentNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if backend.IsNotFound(err) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("удаление документа: %w", err)
	}
	logger.WithCtx(ctx).Info("Документ удалён", zap.String("doc_id", id))
	return nil
}

var spaces = regexp.MustCompile(`\s+`)

// Excerpt — начало текста документа без разметки.
func Excerpt(html string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	text := strings.TrimSpace(spaces.ReplaceAllString(doc.Text(), " "))
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:limit])) + "…"
}
