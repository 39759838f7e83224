package handlers

import (
	"docportal/internal/logger"
	"docportal/internal/models"
	"docportal/internal/reqctx"
	"docportal/internal/services"
	helpers "docportal/internal/utils/helpers"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signUpResponse struct {
	User    *models.AuthUser `json:"user"`
	Session *models.Session  `json:"session"`
	// сессии ещё нет, нужно подтвердить e-mail
	ConfirmationRequired bool `json:"confirmation_required"`
}

type setRoleRequest struct {
	Role string `json:"role" example:"editor"`
}

// SignUp godoc
// @Summary Регистрация по корпоративному e-mail
// @Tags auth
// @Accept json
// @Produce json
// @Param input body models.SignUpRequest true "Данные регистрации"
// @Success 201 {object} signUpResponse
// @Failure 400 {object} helpers.Response "Ошибка валидации"
// @Router /api/auth/signup [post]
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("Ошибка декодирования JSON в SignUp", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}

	user, session, err := h.authService.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, "signup", err)
		return
	}

	helpers.JSON(w, http.StatusCreated, signUpResponse{
		User:                 user,
		Session:              session,
		ConfirmationRequired: session == nil,
	})
}

// SignIn godoc
// @Summary Вход по e-mail и паролю
// @Description После 5 неудачных попыток с одного IP вход блокируется на 15 минут.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body models.SignInRequest true "Данные для входа"
// @Success 200 {object} models.Session
// @Failure 401 {object} helpers.Response "Неверный e-mail или пароль"
// @Failure 429 {object} helpers.Response "Вход временно заблокирован"
// @Router /api/auth/signin [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("Ошибка декодирования JSON в SignIn", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password, helpers.ClientIP(r))
	if err != nil {
		writeError(w, r, "signin", err)
		return
	}
	helpers.JSON(w, http.StatusOK, session)
}

// SignOut godoc
// @Summary Выход
// @Tags auth
// @Security ApiKeyAuth
// @Success 204 {string} string "No Content"
// @Router /api/auth/signout [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token, _ := reqctx.GetAccessToken(r.Context())
	if err := h.authService.SignOut(r.Context(), token); err != nil {
		writeError(w, r, "signout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh godoc
// @Summary Обновление сессии по refresh-токену
// @Tags auth
// @Accept json
// @Produce json
// @Param input body models.RefreshRequest true "Refresh-токен"
// @Success 200 {object} models.Session
// @Failure 401 {object} helpers.Response "Недействительный refresh-токен"
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	session, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, "refresh", err)
		return
	}
	helpers.JSON(w, http.StatusOK, session)
}

// ForgotPassword godoc
// @Summary Запрос письма для сброса пароля
// @Tags auth
// @Accept json
// @Produce json
// @Param input body models.ForgotPasswordRequest true "E-mail"
// @Success 200 {object} helpers.Response
// @Router /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, "forgot_password", err)
		return
	}
	helpers.JSON(w, http.StatusOK, "Если адрес зарегистрирован, письмо со ссылкой отправлено")
}

// ResetPassword godoc
// @Summary Установка нового пароля
// @Description Токен берётся из ссылки в письме восстановления.
// @Tags auth
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body models.ResetPasswordRequest true "Новый пароль и подтверждение"
// @Success 200 {object} helpers.Response
// @Failure 400 {object} helpers.Response "Ошибка валидации"
// @Router /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	token, _ := reqctx.GetAccessToken(r.Context())
	if err := h.authService.ResetPassword(r.Context(), token, req); err != nil {
		writeError(w, r, "reset_password", err)
		return
	}
	helpers.JSON(w, http.StatusOK, "Пароль изменён")
}

// Session godoc
// @Summary Текущая сессия
// @Tags auth
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.Session
// @Failure 401 {object} helpers.Response
// @Router /api/auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := helpers.BearerToken(r)
	session, err := h.authService.Session(r.Context(), token)
	if err != nil {
		writeError(w, r, "session", err)
		return
	}
	if session == nil {
		helpers.Error(w, http.StatusUnauthorized, "Сессия не найдена")
		return
	}
	helpers.JSON(w, http.StatusOK, session)
}

// Profile godoc
// @Summary Профиль: пользователь, роль и права
// @Tags profile
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.ProfileResponse
// @Failure 401 {object} helpers.Response
// @Router /api/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	token, _ := reqctx.GetAccessToken(r.Context())
	profile, err := h.authService.Profile(r.Context(), token)
	if err != nil {
		writeError(w, r, "profile", err)
		return
	}
	helpers.JSON(w, http.StatusOK, profile)
}

// ListUsers godoc
// @Summary Список пользователей
// @Tags admin
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {array} models.User
// @Router /api/admin/users [get]
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, "list_users", err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	helpers.JSON(w, http.StatusOK, users)
}

// SetRole godoc
// @Summary Изменить роль пользователя
// @Tags admin
// @Security ApiKeyAuth
// @Accept json
// @Param id path string true "ID пользователя"
// @Param input body setRoleRequest true "Новая роль"
// @Success 204 {string} string "No Content"
// @Failure 400 {object} helpers.Response
// @Failure 404 {object} helpers.Response
// @Router /api/admin/users/{id}/role [patch]
func (h *AuthHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	if err := h.authService.SetRole(r.Context(), mux.Vars(r)["id"], req.Role); err != nil {
		writeError(w, r, "set_role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
