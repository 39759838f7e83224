package app

import (
	"context"
	"docportal/internal/attempts"
	"docportal/internal/authcache"
	"docportal/internal/backend"
	"docportal/internal/config"
	"docportal/internal/db"
	"docportal/internal/handlers"
	"docportal/internal/logger"
	"docportal/internal/middleware"
	"docportal/internal/repository"
	"docportal/internal/routes"
	"docportal/internal/services"
	"errors"
	"fmt"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// InitApp собирает зависимости и маршруты. cleanup закрывает пул и внешние клиенты.
func InitApp(ctx context.Context, cfg *config.Config) (router *mux.Router, cleanup func(), err error) {
	if err := migrate(ctx, cfg); err != nil {
		return nil, nil, fmt.Errorf("миграции: %w", err)
	}

	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){conn.Close}
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)
	docRepo := repository.NewDocumentRepository(conn)
	categoryRepo := repository.NewCategoryRepository(conn)
	feedbackRepo := repository.NewFeedbackRepository(conn)
	viewRepo := repository.NewViewRepository(conn)
	seedRepo := repository.NewSeedRepository(conn)

	// Бэкенд: auth с дросселированием чтений identity, хранилище картинок
	authClient := backend.NewAuthClient(cfg.AuthURL(), cfg.BackendAnonKey, cfg.BackendTimeout)
	identity := authcache.New(authClient, authcache.Options{
		Interval: cfg.AuthThrottleInterval,
		TTL:      cfg.AuthCacheTTL,
	})

	var uploader services.ObjectUploader
	storage, err := backend.NewStorage(ctx, backend.StorageConfig{
		Endpoint:      cfg.StorageEndpoint,
		Region:        cfg.StorageRegion,
		AccessKey:     cfg.StorageAccessKey,
		SecretKey:     cfg.StorageSecretKey,
		Bucket:        cfg.StorageBucket,
		PublicBaseURL: cfg.PublicObjectURL(),
	})
	switch {
	case err == nil:
		uploader = storage
	case errors.Is(err, backend.ErrStorageDisabled):
		logger.Log.Warn("Загрузка изображений отключена: нет ключей хранилища")
	default:
		cleanup()
		return nil, nil, err
	}

	store, closeStore, err := attemptStore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, closeStore)
	guard := attempts.NewGuard(store, cfg.MaxLoginAttempts, cfg.LoginBlockTime)

	// Сервисы
	authService := services.NewAuthService(authClient, identity, userRepo, guard, services.AuthConfig{
		AllowedEmailDomain: cfg.AllowedEmailDomain,
		SiteURL:            cfg.SiteURL,
	})
	docService := services.NewDocumentService(docRepo, userRepo, viewRepo)
	categoryService := services.NewCategoryService(categoryRepo)
	feedbackService := services.NewFeedbackService(feedbackRepo, docRepo, services.FeedbackConfig{
		ConflictPolicy: cfg.FeedbackConflictPolicy,
		MaxAttempts:    cfg.FeedbackMaxAttempts,
		RetryDelay:     cfg.FeedbackRetryDelay,
	})
	uploadService := services.NewUploadService(uploader)
	seedService := services.NewSeedService(seedRepo)

	// Хендлеры
	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Categories: handlers.NewCategoryHandler(categoryService),
		Documents:  handlers.NewDocumentHandler(docService, uploadService),
		Feedback:   handlers.NewFeedbackHandler(feedbackService),
		Seed:       handlers.NewSeedHandler(seedService),
		Logs:       handlers.NewAdminLogsHandler(logger.Dir),
	}

	// Маршруты
	router = mux.NewRouter()
	routes.InitRoutes(router, h, middleware.Auth(identity, authService, cfg.JWTSecret))

	return router, cleanup, nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	sqlDB, err := db.OpenSQL(ctx, cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return db.RunMigrations(ctx, sqlDB)
}

// attemptStore — Redis, если задан REDIS_ADDR, иначе память процесса.
func attemptStore(ctx context.Context, cfg *config.Config) (attempts.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return attempts.NewMemoryStore(), func() {}, nil
	}
	rs, err := attempts.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	logger.Log.Info("Попытки входа хранятся в Redis", zap.String("addr", cfg.RedisAddr))
	return rs, func() { _ = rs.Close() }, nil
}
