package handlers

import (
	"docportal/internal/attempts"
	"docportal/internal/backend"
	"docportal/internal/logger"
	"docportal/internal/services"
	helpers "docportal/internal/utils/helpers"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// writeError переводит ошибку сервиса в HTTP-статус и пишет конверт с ошибкой.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := logger.WithCtx(r.Context()).With(zap.String("op", op))

	var (
		ve      *backend.ValidationError
		blocked *attempts.BlockedError
		failed  *services.LoginFailedError
		apiErr  *backend.APIError
	)
	switch {
	case errors.As(err, &ve):
		log.Warn("Некорректный запрос", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &blocked):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(blocked.Remaining.Seconds())+1))
		helpers.Error(w, http.StatusTooManyRequests,
			fmt.Sprintf("Слишком много попыток входа. Попробуйте через %d мин.", blocked.Minutes()))
	case errors.As(err, &failed):
		helpers.Error(w, http.StatusUnauthorized, failed.Error())
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, backend.ErrUnauthorized):
		helpers.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, backend.ErrNotFound):
		helpers.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrFeedbackExists):
		helpers.Error(w, http.StatusConflict, err.Error())
	case backend.IsConflict(err):
		log.Warn("Конфликт при записи", zap.Error(err))
		helpers.Error(w, http.StatusConflict, "Запись уже существует")
	case backend.IsRateLimited(err):
		log.Warn("Сервис авторизации ограничил частоту запросов", zap.Error(err))
		helpers.Error(w, http.StatusTooManyRequests, "Слишком много запросов, попробуйте позже")
	case errors.Is(err, backend.ErrStorageDisabled):
		helpers.Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		log.Warn("Сервис авторизации отклонил запрос", zap.Error(err))
		helpers.Error(w, apiErr.Status, apiErr.Error())
	default:
		log.Error("Внутренняя ошибка", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
}
