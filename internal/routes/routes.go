package routes

import (
	"docportal/internal/handlers"
	"docportal/internal/metrics"
	"docportal/internal/middleware"
	"docportal/internal/models"
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Categories *handlers.CategoryHandler
	Documents  *handlers.DocumentHandler
	Feedback   *handlers.FeedbackHandler
	Seed       *handlers.SeedHandler
	Logs       *handlers.AdminLogsHandler
}

// InitRoutes регистрирует маршруты; auth это middleware.Auth, собранный в app.
func InitRoutes(router *mux.Router, h Handlers, auth func(http.Handler) http.Handler) {
	router.Use(middleware.RequestID, middleware.Logging, middleware.Recoverer)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/auth/signup", h.Auth.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/signin", h.Auth.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.Auth.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/forgot-password", h.Auth.ForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/auth/session", h.Auth.Session).Methods(http.MethodGet)

	// --- Защищённые токеном ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth, middleware.AdminFastLane)

	protected.HandleFunc("/auth/signout", h.Auth.SignOut).Methods(http.MethodPost)
	protected.HandleFunc("/auth/reset-password", h.Auth.ResetPassword).Methods(http.MethodPost)
	protected.HandleFunc("/profile", h.Auth.Profile).Methods(http.MethodGet)

	protected.HandleFunc("/categories", h.Categories.ListCategories).Methods(http.MethodGet)
	protected.HandleFunc("/documents", h.Documents.ListDocuments).Methods(http.MethodGet)
	protected.HandleFunc("/documents/recent", h.Documents.RecentDocuments).Methods(http.MethodGet)
	protected.HandleFunc("/documents/{id}", h.Documents.GetDocument).Methods(http.MethodGet)
	protected.HandleFunc("/documents/{id}/feedback", h.Feedback.DocumentFeedback).Methods(http.MethodGet)
	protected.HandleFunc("/documents/{id}/feedback", h.Feedback.SubmitFeedback).Methods(http.MethodPost)

	editors := protected.PathPrefix("").Subrouter()
	editors.Use(middleware.AnyRole(models.RoleEditor, models.RoleAdmin))
	editors.HandleFunc("/documents", h.Documents.CreateDocument).Methods(http.MethodPost)
	editors.HandleFunc("/documents/{id}", h.Documents.UpdateDocument).Methods(http.MethodPut)
	editors.HandleFunc("/uploads/images", h.Documents.UploadImage).Methods(http.MethodPost)

	admin := protected.PathPrefix("").Subrouter()
	admin.Use(middleware.OnlyRole(models.RoleAdmin))
	admin.HandleFunc("/documents/{id}", h.Documents.DeleteDocument).Methods(http.MethodDelete)
	admin.HandleFunc("/admin/categories", h.Categories.CreateCategory).Methods(http.MethodPost)
	admin.HandleFunc("/admin/categories/{id}", h.Categories.UpdateCategory).Methods(http.MethodPut)
	admin.HandleFunc("/admin/categories/{id}", h.Categories.DeleteCategory).Methods(http.MethodDelete)
	admin.HandleFunc("/admin/feedback", h.Feedback.Dashboard).Methods(http.MethodGet)
	admin.HandleFunc("/admin/users", h.Auth.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/admin/users/{id}/role", h.Auth.SetRole).Methods(http.MethodPatch)
	admin.HandleFunc("/admin/seed", h.Seed.Seed).Methods(http.MethodPost)
	admin.HandleFunc("/admin/logs/days", h.Logs.ListDays).Methods(http.MethodGet)
	admin.HandleFunc("/admin/logs", h.Logs.GetLogs).Methods(http.MethodGet)
	admin.HandleFunc("/admin/logs/stats", h.Logs.Stats).Methods(http.MethodGet)
}
