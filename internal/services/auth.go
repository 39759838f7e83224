package services

import (
	"context"
	"docportal/internal/attempts"
	"docportal/internal/backend"
	"docportal/internal/logger"
	"docportal/internal/metrics"
	"docportal/internal/models"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("неверный e-mail или пароль")

// LoginFailedError — неудачный вход с числом оставшихся попыток.
type LoginFailedError struct {
	Reason       string
	AttemptsLeft int
}

func (e *LoginFailedError) Error() string {
	if e.AttemptsLeft <= 0 {
		return "слишком много попыток входа, аккаунт временно заблокирован"
	}
	return fmt.Sprintf("%s. Осталось попыток: %d", e.Reason, e.AttemptsLeft)
}

// AuthAPI — операции auth-сервиса бэкенда.
type AuthAPI interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any, redirectTo string) (*models.AuthUser, *models.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*models.AuthUser, error)
}

// IdentityReader — дросселированные чтения identity.
type IdentityReader interface {
	GetUser(ctx context.Context, accessToken string) (*models.AuthUser, error)
	GetSession(ctx context.Context, accessToken string) (*models.Session, error)
	Invalidate(accessToken string)
}

type UserRepo interface {
	GetRole(ctx context.Context, userID string) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, u *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	SetRole(ctx context.Context, userID, role string) error
}

type AuthConfig struct {
	AllowedEmailDomain string
	SiteURL            string
}

type AuthService struct {
	api      AuthAPI
	identity IdentityReader
	users    UserRepo
	guard    *attempts.Guard
	cfg      AuthConfig
}

func NewAuthService(api AuthAPI, identity IdentityReader, users UserRepo, guard *attempts.Guard, cfg AuthConfig) *AuthService {
	return &AuthService{api: api, identity: identity, users: users, guard: guard, cfg: cfg}
}

// ValidatePassword — не короче 8 символов, заглавная буква, цифра и спецсимвол.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return backend.NewValidationError("password", "пароль должен быть не короче 8 символов")
	}
	var upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(`!@#$%^&*()_+-=[]{};':"\|,.<>/?`, r):
			special = true
		}
	}
	if !upper {
		return backend.NewValidationError("password", "пароль должен содержать заглавную букву")
	}
	if !digit {
		return backend.NewValidationError("password", "пароль должен содержать цифру")
	}
	if !special {
		return backend.NewValidationError("password", "пароль должен содержать спецсимвол")
	}
	return nil
}

func (s *AuthService) checkDomain(email string) error {
	if s.cfg.AllowedEmailDomain == "" {
		return nil
	}
	if !strings.HasSuffix(email, "@"+s.cfg.AllowedEmailDomain) {
		return backend.NewValidationError("email", "разрешены только корпоративные адреса @"+s.cfg.AllowedEmailDomain)
	}
	return nil
}

// SignUp регистрирует пользователя в auth-сервисе и заводит профиль.
// Сессия nil, если бэкенд ждёт подтверждения почты.
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthUser, *models.Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, nil, backend.NewValidationError("email", "e-mail и пароль обязательны")
	}
	if err := s.checkDomain(email); err != nil {
		return nil, nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, nil, err
	}

	fullName := strings.TrimSpace(req.FullName)
	meta := map[string]any{"full_name": fullName, "email": email}

	logger.WithCtx(ctx).Info("Регистрация пользователя (service)", zap.String("email", email))
	user, session, err := s.api.SignUp(ctx, email, req.Password, meta, s.redirect("/auth/callback"))
	if err != nil {
		logger.WithCtx(ctx).Warn("Ошибка регистрации (service)", zap.String("email", email), zap.Error(err))
		return nil, nil, err
	}

	if user != nil && user.ID != "" {
		profile := &models.User{ID: user.ID, Email: email}
		if fullName != "" {
			profile.Name, profile.FullName = &fullName, &fullName
		}
		// профиль не критичен для регистрации
		if err := s.users.Upsert(ctx, profile); err != nil {
			logger.WithCtx(ctx).Error("Ошибка сохранения профиля после регистрации", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return user, session, nil
}

// SignIn — вход по паролю с ограничением неудачных попыток по email:ip.
func (s *AuthService) SignIn(ctx context.Context, email, password, ip string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, backend.NewValidationError("email", "e-mail и пароль обязательны")
	}
	key := attempts.Key(email, ip)

	if err := s.guard.Check(ctx, key); err != nil {
		var blocked *attempts.BlockedError
		if errors.As(err, &blocked) {
			metrics.LoginBlocked.Inc()
			logger.WithCtx(ctx).Warn("Вход заблокирован (service)", zap.String("email", email), zap.String("ip", ip))
			return nil, err
		}
		logger.WithCtx(ctx).Error("Ошибка хранилища попыток входа", zap.Error(err))
	}

	session, err := s.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		if backend.IsRateLimited(err) || !isCredentialsError(err) {
			return nil, err
		}
		left, ferr := s.guard.Fail(ctx, key)
		if ferr != nil {
			logger.WithCtx(ctx).Error("Ошибка учёта неудачного входа", zap.Error(ferr))
			return nil, ErrInvalidCredentials
		}
		logger.WithCtx(ctx).Warn("Неудачный вход (service)", zap.String("email", email), zap.Int("attempts_left", left))
		return nil, &LoginFailedError{Reason: ErrInvalidCredentials.Error(), AttemptsLeft: left}
	}

	if err := s.guard.Success(ctx, key); err != nil {
		logger.WithCtx(ctx).Error("Ошибка сброса попыток входа", zap.Error(err))
	}
	logger.WithCtx(ctx).Info("Вход выполнен (service)", zap.String("email", email))
	return session, nil
}

func isCredentialsError(err error) bool {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 400 || apiErr.Status == 401 || apiErr.Status == 422
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, backend.NewValidationError("refresh_token", "refresh-токен обязателен")
	}
	return s.api.RefreshSession(ctx, refreshToken)
}

// SignOut отзывает сессию и забывает закэшированную identity токена.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	s.identity.Invalidate(accessToken)
	if err := s.api.SignOut(ctx, accessToken); err != nil {
		logger.WithCtx(ctx).Warn("Ошибка выхода на бэкенде (service)", zap.Error(err))
		return err
	}
	return nil
}

// ForgotPassword отправляет письмо для восстановления. Отсутствие адреса не раскрываем.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return backend.NewValidationError("email", "e-mail обязателен")
	}
	redirect := s.redirect("/auth/callback?redirect_to=/reset-password")
	if err := s.api.ResetPasswordForEmail(ctx, email, redirect); err != nil {
		logger.WithCtx(ctx).Error("Не удалось отправить письмо для сброса пароля", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("не удалось сбросить пароль: %w", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, accessToken string, req models.ResetPasswordRequest) error {
	if req.Password == "" || req.ConfirmPassword == "" {
		return backend.NewValidationError("password", "пароль и подтверждение обязательны")
	}
	if req.Password != req.ConfirmPassword {
		return backend.NewValidationError("confirm_password", "пароли не совпадают")
	}
	if err := ValidatePassword(req.Password); err != nil {
		return err
	}
	if _, err := s.api.UpdatePassword(ctx, accessToken, req.Password); err != nil {
		logger.WithCtx(ctx).Error("Ошибка смены пароля (service)", zap.Error(err))
		return err
	}
	return nil
}

func (s *AuthService) Session(ctx context.Context, accessToken string) (*models.Session, error) {
	return s.identity.GetSession(ctx, accessToken)
}

// Role — роль пользователя из таблицы users; при любой ошибке viewer.
func (s *AuthService) Role(ctx context.Context, userID string) string {
	role, err := s.users.GetRole(ctx, userID)
	if err != nil {
		if !backend.IsNotFound(err) {
			logger.WithCtx(ctx).Warn("Не удалось получить роль, используем viewer", zap.String("user_id", userID), zap.Error(err))
		}
		return models.RoleViewer
	}
	return models.NormalizeRole(role)
}

// Profile — пользователь, его роль и права.
func (s *AuthService) Profile(ctx context.Context, accessToken string) (*models.ProfileResponse, error) {
	user, err := s.identity.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, backend.ErrUnauthorized
	}
	role := s.Role(ctx, user.ID)
	return &models.ProfileResponse{
		User:        user,
		Role:        role,
		Permissions: models.PermissionsFor(role),
	}, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

func (s *AuthService) SetRole(ctx context.Context, userID, role string) error {
	switch role {
	case models.RoleAdmin, models.RoleEditor, models.RoleViewer:
	default:
		return backend.NewValidationError("role", "допустимые роли: admin, editor, viewer")
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		if backend.IsNotFound(err) {
			return backend.ErrNotFound
		}
		return err
	}
	logger.WithCtx(ctx).Info("Роль пользователя изменена", zap.String("target_user_id", userID), zap.String("role", role))
	return nil
}

func (s *AuthService) redirect(path string) string {
	if s.cfg.SiteURL == "" {
		return ""
	}
	return s.cfg.SiteURL + path
}
