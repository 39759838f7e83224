package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docportal/internal/models"

	"golang.org/x/oauth2"
)

// AuthClient — типизированный клиент auth API управляемого бэкенда.
// Все запросы несут публичный ключ в заголовке apikey; запросы от имени
// пользователя дополнительно несут его access-токен (через oauth2-транспорт).
type AuthClient struct {
	baseURL string
	http    *http.Client
}

func NewAuthClient(baseURL, anonKey string, timeout time.Duration) *AuthClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: &apiKeyTransport{key: anonKey, base: http.DefaultTransport},
		},
	}
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("apikey", t.key)
	return t.base.RoundTrip(r)
}

// userClient — http-клиент, подписывающий запросы bearer-токеном пользователя.
func (c *AuthClient) userClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	cl := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	cl.Timeout = c.http.Timeout
	return cl
}

type tokenResponse struct {
	AccessToken  string           `json:"access_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int64            `json:"expires_in"`
	ExpiresAt    int64            `json:"expires_at"`
	RefreshToken string           `json:"refresh_token"`
	User         *models.AuthUser `json:"user"`
}

func (t *tokenResponse) session() *models.Session {
	s := &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		User:         t.User,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}
	return s
}

// GetUser — текущий пользователь по access-токену (GET /user).
func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*models.AuthUser, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	var u models.AuthUser
	if err := c.do(ctx, c.userClient(ctx, accessToken), http.MethodGet, "/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetSession — сессия для access-токена: токен проверяется на бэкенде,
// срок действия берётся из claim exp.
func (c *AuthClient) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	u, err := c.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	s := &models.Session{
		AccessToken: accessToken,
		TokenType:   "bearer",
		User:        u,
	}
	if exp, err := TokenExpiry(accessToken); err == nil {
		s.ExpiresAt = exp
	}
	return s, nil
}

// SignUp регистрирует пользователя. Если бэкенд требует подтверждения почты,
// сессия будет nil, а пользователь заполнен.
func (c *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any, redirectTo string) (*models.AuthUser, *models.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}
	path := "/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	var raw json.RawMessage
	if err := c.do(ctx, c.http, http.MethodPost, path, body, &raw); err != nil {
		return nil, nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err == nil && tr.AccessToken != "" {
		return tr.User, tr.session(), nil
	}
	var u models.AuthUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, nil, fmt.Errorf("signup: разбор ответа: %w", err)
	}
	return &u, nil, nil
}

// SignInWithPassword — вход по e-mail и паролю (grant_type=password).
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, c.http, http.MethodPost, "/token?grant_type=password",
		map[string]string{"email": email, "password": password}, &tr)
	if err != nil {
		return nil, err
	}
	return tr.session(), nil
}

// RefreshSession — новая пара токенов по refresh-токену.
func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, c.http, http.MethodPost, "/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refreshToken}, &tr)
	if err != nil {
		return nil, err
	}
	return tr.session(), nil
}

// SignOut отзывает сессию на бэкенде.
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, c.userClient(ctx, accessToken), http.MethodPost, "/logout", nil, nil)
}

// ResetPasswordForEmail отправляет письмо для восстановления пароля.
func (c *AuthClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, c.http, http.MethodPost, path, map[string]string{"email": email}, nil)
}

// UpdatePassword меняет пароль текущего пользователя.
func (c *AuthClient) UpdatePassword(ctx context.Context, accessToken, password string) (*models.AuthUser, error) {
	var u models.AuthUser
	err := c.do(ctx, c.userClient(ctx, accessToken), http.MethodPut, "/user",
		map[string]string{"password": password}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *AuthClient) do(ctx context.Context, cl *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("auth %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("auth %s %s: чтение ответа: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Code = eb.ErrorCode
			apiErr.Message = firstNonEmpty(eb.Msg, eb.Message, eb.ErrorDescription, eb.Error)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("auth %s %s: разбор ответа: %w", method, path, err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
