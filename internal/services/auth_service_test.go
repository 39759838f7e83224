package services

import (
	"context"
	"docportal/internal/attempts"
	"docportal/internal/backend"
	"docportal/internal/models"
	"errors"
	"testing"
	"time"
)

// Мок-репозиторий (заглушка)
type mockUserRepo struct {
	roles    map[string]string
	roleErr  error
	lastUser *models.User
}

func (m *mockUserRepo) GetRole(_ context.Context, userID string) (string, error) {
	if m.roleErr != nil {
		return "", m.roleErr
	}
	r, ok := m.roles[userID]
	if !ok {
		return "", backend.ErrNotFound
	}
	return r, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, u *models.User) error {
	m.lastUser = u
	return nil
}

func (m *mockUserRepo) List(_ context.Context) ([]*models.User, error) { return nil, nil }

func (m *mockUserRepo) SetRole(_ context.Context, userID, role string) error {
	if _, ok := m.roles[userID]; !ok {
		return backend.ErrNotFound
	}
	m.roles[userID] = role
	return nil
}

type mockAuthAPI struct {
	signInErr   error
	signInCalls int
	signedOut   string
	signUpMeta  map[string]any
	newPassword string
}

func (m *mockAuthAPI) SignUp(_ context.Context, email, _ string, meta map[string]any, _ string) (*models.AuthUser, *models.Session, error) {
	m.signUpMeta = meta
	return &models.AuthUser{ID: "u-new", Email: email}, nil, nil
}

func (m *mockAuthAPI) SignInWithPassword(_ context.Context, _, _ string) (*models.Session, error) {
	m.signInCalls++
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return &models.Session{AccessToken: "access"}, nil
}

func (m *mockAuthAPI) RefreshSession(_ context.Context, _ string) (*models.Session, error) {
	return &models.Session{AccessToken: "fresh"}, nil
}

func (m *mockAuthAPI) SignOut(_ context.Context, token string) error {
	m.signedOut = token
	return nil
}

func (m *mockAuthAPI) ResetPasswordForEmail(_ context.Context, _, _ string) error { return nil }

func (m *mockAuthAPI) UpdatePassword(_ context.Context, _, password string) (*models.AuthUser, error) {
	m.newPassword = password
	return &models.AuthUser{ID: "u-1"}, nil
}

type mockIdentity struct {
	user        *models.AuthUser
	invalidated string
}

func (m *mockIdentity) GetUser(_ context.Context, _ string) (*models.AuthUser, error) {
	return m.user, nil
}

func (m *mockIdentity) GetSession(_ context.Context, token string) (*models.Session, error) {
	return &models.Session{AccessToken: token, User: m.user}, nil
}

func (m *mockIdentity) Invalidate(token string) { m.invalidated = token }

func newTestAuthService(api *mockAuthAPI, id *mockIdentity, repo *mockUserRepo) *AuthService {
	guard := attempts.NewGuard(attempts.NewMemoryStore(), 3, 15*time.Minute)
	return NewAuthService(api, id, repo, guard, AuthConfig{AllowedEmailDomain: "empresa.com.br", SiteURL: "https://portal"})
}

func TestValidatePassword(t *testing.T) {
	cases := map[string]bool{
		"curta":          false,
		"semmaiuscula1!": false,
		"SemNumero!!":    false,
		"SemEspecial1":   false,
		"Segura#2024":    true,
	}
	for pw, ok := range cases {
		err := ValidatePassword(pw)
		if ok && err != nil {
			t.Fatalf("пароль %q должен пройти: %v", pw, err)
		}
		if !ok && !backend.IsValidation(err) {
			t.Fatalf("пароль %q должен быть отклонён", pw)
		}
	}
}

func TestSignUp_DomainCheck(t *testing.T) {
	api := &mockAuthAPI{}
	repo := &mockUserRepo{roles: map[string]string{}}
	s := newTestAuthService(api, &mockIdentity{}, repo)

	_, _, err := s.SignUp(context.Background(), models.SignUpRequest{Email: "ana@gmail.com", Password: "Segura#2024"})
	if !backend.IsValidation(err) {
		t.Fatalf("ожидалась ошибка валидации домена, получено %v", err)
	}

	u, _, err := s.SignUp(context.Background(), models.SignUpRequest{Email: "Ana@Empresa.com.br", Password: "Segura#2024", FullName: "Ana Lima"})
	if err != nil {
		t.Fatalf("ошибка регистрации: %v", err)
	}
	if u.ID != "u-new" || repo.lastUser == nil || *repo.lastUser.FullName != "Ana Lima" {
		t.Fatal("профиль пользователя не сохранён")
	}
	if repo.lastUser.Email != "ana@empresa.com.br" {
		t.Fatalf("e-mail не нормализован: %s", repo.lastUser.Email)
	}
	if api.signUpMeta["full_name"] != "Ana Lima" {
		t.Fatal("full_name не передан в метаданные")
	}
}

func TestSignIn_BlocksAfterFailures(t *testing.T) {
	api := &mockAuthAPI{signInErr: &backend.APIError{Status: 400, Message: "Invalid login credentials"}}
	s := newTestAuthService(api, &mockIdentity{}, &mockUserRepo{})

	for want := 2; want >= 0; want-- {
		_, err := s.SignIn(context.Background(), "ana@empresa.com.br", "errada", "10.0.0.1")
		var lf *LoginFailedError
		if !errors.As(err, &lf) || lf.AttemptsLeft != want {
			t.Fatalf("ожидалось осталось %d попыток, получено %v", want, err)
		}
	}

	_, err := s.SignIn(context.Background(), "ana@empresa.com.br", "Segura#2024", "10.0.0.1")
	var blocked *attempts.BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("ожидалась блокировка, получено %v", err)
	}
	if api.signInCalls != 3 {
		t.Fatalf("заблокированный вход не должен доходить до бэкенда, вызовов: %d", api.signInCalls)
	}

	// другой ip не заблокирован
	api.signInErr = nil
	if _, err := s.SignIn(context.Background(), "ana@empresa.com.br", "Segura#2024", "10.0.0.2"); err != nil {
		t.Fatalf("вход с другого ip: %v", err)
	}
}

func TestSignIn_RateLimitDoesNotCountAsFailure(t *testing.T) {
	api := &mockAuthAPI{signInErr: &backend.APIError{Status: 429}}
	s := newTestAuthService(api, &mockIdentity{}, &mockUserRepo{})

	_, err := s.SignIn(context.Background(), "ana@empresa.com.br", "x", "ip")
	if !backend.IsRateLimited(err) {
		t.Fatalf("ожидалась ошибка лимита, получено %v", err)
	}
}

func TestSignOut_InvalidatesIdentity(t *testing.T) {
	api := &mockAuthAPI{}
	id := &mockIdentity{}
	s := newTestAuthService(api, id, &mockUserRepo{})

	if err := s.SignOut(context.Background(), "tok"); err != nil {
		t.Fatal(err)
	}
	if id.invalidated != "tok" || api.signedOut != "tok" {
		t.Fatal("сессия не отозвана или кэш не очищен")
	}
}

func TestResetPassword_Mismatch(t *testing.T) {
	api := &mockAuthAPI{}
	s := newTestAuthService(api, &mockIdentity{}, &mockUserRepo{})

	err := s.ResetPassword(context.Background(), "tok", models.ResetPasswordRequest{Password: "Segura#2024", ConfirmPassword: "Segura#2025"})
	if !backend.IsValidation(err) || api.newPassword != "" {
		t.Fatal("несовпадающие пароли должны отклоняться до вызова бэкенда")
	}

	err = s.ResetPassword(context.Background(), "tok", models.ResetPasswordRequest{Password: "Segura#2024", ConfirmPassword: "Segura#2024"})
	if err != nil || api.newPassword != "Segura#2024" {
		t.Fatalf("пароль не обновлён: %v", err)
	}
}

func TestRole_FallsBackToViewer(t *testing.T) {
	repo := &mockUserRepo{roles: map[string]string{"a": "admin", "e": "editor", "x": "superuser"}}
	s := newTestAuthService(&mockAuthAPI{}, &mockIdentity{}, repo)
	ctx := context.Background()

	if s.Role(ctx, "a") != models.RoleAdmin || s.Role(ctx, "e") != models.RoleEditor {
		t.Fatal("роль прочитана неверно")
	}
	if s.Role(ctx, "x") != models.RoleViewer || s.Role(ctx, "missing") != models.RoleViewer {
		t.Fatal("неизвестная роль должна становиться viewer")
	}

	repo.roleErr = errors.New("db down")
	if s.Role(ctx, "a") != models.RoleViewer {
		t.Fatal("при ошибке ожидался viewer")
	}
}

func TestProfile(t *testing.T) {
	repo := &mockUserRepo{roles: map[string]string{"u-1": "editor"}}
	s := newTestAuthService(&mockAuthAPI{}, &mockIdentity{user: &models.AuthUser{ID: "u-1"}}, repo)

	p, err := s.Profile(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != models.RoleEditor || !p.Permissions.CanEdit || p.Permissions.CanDelete {
		t.Fatalf("неверные права: %+v", p)
	}

	anon := newTestAuthService(&mockAuthAPI{}, &mockIdentity{}, repo)
	if _, err := anon.Profile(context.Background(), "tok"); !errors.Is(err, backend.ErrUnauthorized) {
		t.Fatalf("ожидался ErrUnauthorized, получено %v", err)
	}
}

func TestSetRole(t *testing.T) {
	repo := &mockUserRepo{roles: map[string]string{"u-1": "viewer"}}
	s := newTestAuthService(&mockAuthAPI{}, &mockIdentity{}, repo)

	if err := s.SetRole(context.Background(), "u-1", "root"); !backend.IsValidation(err) {
		t.Fatal("недопустимая роль должна отклоняться")
	}
	if err := s.SetRole(context.Background(), "u-1", "editor"); err != nil || repo.roles["u-1"] != "editor" {
		t.Fatalf("роль не изменена: %v", err)
	}
	if err := s.SetRole(context.Background(), "nope", "editor"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}
