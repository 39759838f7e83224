package services

import (
	"context"
	"docportal/internal/backend"
	"docportal/internal/models"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDocRepo struct {
	docs      map[string]*models.Document
	createErr error
	created   *models.Document
	filter    models.DocumentFilter
}

func (m *mockDocRepo) List(_ context.Context, f models.DocumentFilter) (*models.DocumentPage, error) {
	m.filter = f
	page := &models.DocumentPage{}
	for _, d := range m.docs {
		cp := *d
		page.Items = append(page.Items, &cp)
	}
	page.Total = len(page.Items)
	return page, nil
}

func (m *mockDocRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDocRepo) Create(_ context.Context, d *models.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	d.ID = "new-doc"
	m.created = d
	return nil
}

func (m *mockDocRepo) Update(_ context.Context, d *models.Document) error {
	if _, ok := m.docs[d.ID]; !ok {
		return pgx.ErrNoRows
	}
	return nil
}

func (m *mockDocRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.docs, id)
	return nil
}

type mockViews struct {
	err     error
	upserts int
}

func (m *mockViews) Upsert(_ context.Context, _, _ string) error {
	m.upserts++
	return m.err
}

func (m *mockViews) Recent(_ context.Context, _ string, limit int, _ bool) ([]*models.Document, error) {
	return make([]*models.Document, 0, limit), nil
}

type profileRepo struct {
	mockUserRepo
	user *models.User
}

func (p *profileRepo) GetByID(_ context.Context, _ string) (*models.User, error) {
	if p.user == nil {
		return nil, pgx.ErrNoRows
	}
	return p.user, nil
}

func newDocFixture() (*DocumentService, *mockDocRepo, *mockViews, *profileRepo) {
	content := "<h1>Olá</h1>\n<p>Conteúdo   do documento</p>"
	repo := &mockDocRepo{docs: map[string]*models.Document{
		testDocID: {ID: testDocID, Title: "Pública", Content: &content, CreatedBy: testUserID},
		"0b7e1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d": {
			ID: "0b7e1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d", Title: "Restrita", IsRestricted: true, CreatedBy: testUserID,
		},
	}}
	views := &mockViews{}
	users := &profileRepo{user: &models.User{Email: "joana.silva@empresa.com.br"}}
	return NewDocumentService(repo, users, views), repo, views, users
}

func TestDocumentGet_RecordsViewAndCreator(t *testing.T) {
	s, _, views, _ := newDocFixture()

	d, err := s.Get(context.Background(), testDocID, testUserID, models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, "joana.silva", d.CreatorName)
	assert.Equal(t, 1, views.upserts)
	assert.False(t, d.Permissions.CanEdit)
}

func TestDocumentGet_ViewFailureIsNotFatal(t *testing.T) {
	s, _, views, _ := newDocFixture()
	views.err = errors.New("db down")

	_, err := s.Get(context.Background(), testDocID, testUserID, models.RoleEditor)
	assert.NoError(t, err)
}

func TestDocumentGet_RestrictedHiddenFromViewer(t *testing.T) {
	s, _, _, _ := newDocFixture()
	id := "0b7e1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d"

	_, err := s.Get(context.Background(), id, testUserID, models.RoleViewer)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	d, err := s.Get(context.Background(), id, testUserID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, d.Permissions.CanDelete)
}

func TestDocumentGet_UnknownID(t *testing.T) {
	s, _, _, _ := newDocFixture()

	_, err := s.Get(context.Background(), "not-a-uuid", testUserID, models.RoleViewer)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = s.Get(context.Background(), "11111111-2222-4333-8444-555555555555", testUserID, models.RoleViewer)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentList_ExcerptAndVisibility(t *testing.T) {
	s, repo, _, _ := newDocFixture()

	page, err := s.List(context.Background(), models.DocumentFilter{Limit: 1000}, models.RoleViewer)
	require.NoError(t, err)
	assert.False(t, repo.filter.IncludeHidden)
	assert.Equal(t, maxPageSize, repo.filter.Limit)
	for _, d := range page.Items {
		assert.Nil(t, d.Content)
		if d.ID == testDocID {
			assert.Equal(t, "Olá Conteúdo do documento", d.Excerpt)
		}
	}

	_, err = s.List(context.Background(), models.DocumentFilter{}, models.RoleEditor)
	require.NoError(t, err)
	assert.True(t, repo.filter.IncludeHidden)
	assert.Equal(t, defaultPageSize, repo.filter.Limit)
}

func TestDocumentCreate_SanitizesAndValidates(t *testing.T) {
	s, repo, _, _ := newDocFixture()

	_, err := s.Create(context.Background(), testUserID, models.DocumentRequest{Title: " ", CategoryID: testDocID})
	assert.True(t, backend.IsValidation(err))

	_, err = s.Create(context.Background(), testUserID, models.DocumentRequest{Title: "Sem categoria"})
	assert.True(t, backend.IsValidation(err))

	d, err := s.Create(context.Background(), testUserID, models.DocumentRequest{
		Title:      "Novo",
		CategoryID: testDocID,
		Content:    `<p>ok</p><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-doc", d.ID)
	assert.Equal(t, testUserID, repo.created.CreatedBy)
	assert.False(t, strings.Contains(*repo.created.Content, "script"))
}

func TestDocumentCreate_UnknownCategory(t *testing.T) {
	s, repo, _, _ := newDocFixture()
	repo.createErr = &pgconn.PgError{Code: "23503"}

	_, err := s.Create(context.Background(), testUserID, models.DocumentRequest{Title: "Novo", CategoryID: testDocID})
	var ve *backend.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "category_id", ve.Field)
}

func TestDocumentDelete(t *testing.T) {
	s, _, _, _ := newDocFixture()

	require.NoError(t, s.Delete(context.Background(), testDocID))
	assert.ErrorIs(t, s.Delete(context.Background(), testDocID), ErrDocumentNotFound)
}

func TestDisplayName(t *testing.T) {
	full, name := "Ana Lima", "Ana"
	assert.Equal(t, "Ana Lima", DisplayName(&models.User{FullName: &full, Name: &name, Email: "a@b.c"}))
	assert.Equal(t, "Ana", DisplayName(&models.User{Name: &name, Email: "a@b.c"}))
	assert.Equal(t, "ana", DisplayName(&models.User{Email: "ana@b.c"}))
	assert.Equal(t, unknownCreator, DisplayName(&models.User{}))
}

func TestExcerpt_Truncates(t *testing.T) {
	got := Excerpt("<p>"+strings.Repeat("a", 300)+"</p>", 10)
	assert.Equal(t, strings.Repeat("a", 10)+"…", got)
}
