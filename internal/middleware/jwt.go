package middleware

import (
	"context"
	"docportal/internal/backend"
	"docportal/internal/logger"
	"docportal/internal/models"
	"docportal/internal/reqctx"
	helpers "docportal/internal/utils/helpers"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// IdentityLookup — дросселированное чтение пользователя по токену.
type IdentityLookup interface {
	GetUser(ctx context.Context, accessToken string) (*models.AuthUser, error)
}

type RoleResolver interface {
	Role(ctx context.Context, userID string) string
}

// Auth проверяет bearer-токен и кладёт в контекст user_id, роль и сам токен.
// Если задан jwtSecret, подпись и срок проверяются локально до обращения к бэкенду.
func Auth(identity IdentityLookup, roles RoleResolver, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			log := logger.WithCtx(r.Context())

			token := helpers.BearerToken(r)
			if token == "" {
				log.Warn("Auth: отсутствует access token")
				helpers.Error(w, http.StatusUnauthorized, "Отсутствует access token")
				return
			}

			if _, err := backend.VerifyToken(token, jwtSecret); err != nil {
				log.Warn("Auth: неверный или просроченный токен", zap.Error(err))
				helpers.Error(w, http.StatusUnauthorized, "Неверный или просроченный токен")
				return
			}

			user, err := identity.GetUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, backend.ErrUnauthorized) || backend.IsNotFound(err) {
					log.Warn("Auth: бэкенд отклонил токен", zap.Error(err))
					helpers.Error(w, http.StatusUnauthorized, "Неверный или просроченный токен")
					return
				}
				log.Error("Auth: ошибка обращения к сервису авторизации", zap.Error(err))
				helpers.Error(w, http.StatusServiceUnavailable, "Сервис авторизации недоступен")
				return
			}
			if user == nil {
				// 429 без кэша: пользователь неизвестен
				log.Warn("Auth: пользователь не определён")
				helpers.Error(w, http.StatusUnauthorized, "Требуется авторизация")
				return
			}

			ctx := reqctx.WithUserID(r.Context(), user.ID)
			role := roles.Role(ctx, user.ID)
			ctx = reqctx.WithRole(ctx, role)
			ctx = reqctx.WithAccessToken(ctx, token)

			logger.WithCtx(ctx).Debug("Auth: токен валиден", zap.String("role", role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
