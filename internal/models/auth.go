package models

import (
	"time"

	"golang.org/x/oauth2"
)

// AuthUser — пользователь в представлении auth API бэкенда.
type AuthUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// FullName — имя из user_metadata (full_name, затем name).
func (u *AuthUser) FullName() string {
	if u == nil {
		return ""
	}
	for _, k := range []string{"full_name", "name"} {
		if v, ok := u.UserMetadata[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *AuthUser `json:"user"`
}

// Token — сессия как oauth2-токен (для oauth2.StaticTokenSource).
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.ExpiresAt,
	}
}

// swagger:model SignUpRequest
type SignUpRequest struct {
	Email    string `json:"email"     example:"maria@empresa.com.br"`
	Password string `json:"password"  example:"Segura#2024"`
	FullName string `json:"full_name" example:"Maria Souza"`
}

// swagger:model SignInRequest
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}
