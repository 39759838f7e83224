package main

import (
	"context"
	"docportal/internal/config"
	"docportal/internal/db"
	"docportal/internal/logger"
	"flag"

	"go.uber.org/zap"
)

// Ручной запуск миграций: go run ./cmd/migrate -cmd status|up|down
func main() {
	command := flag.String("cmd", "up", "команда goose: up, down, status, version")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	ctx := context.Background()
	sqlDB, err := db.OpenSQL(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Не удалось подключиться к базе", zap.String("dsn", cfg.GetDSNSafe()), zap.Error(err))
	}
	defer sqlDB.Close()

	if *command == "up" {
		err = db.RunMigrations(ctx, sqlDB)
	} else {
		err = db.Goose(ctx, sqlDB, *command)
	}
	if err != nil {
		logger.Log.Fatal("Ошибка миграции", zap.String("cmd", *command), zap.Error(err))
	}
	logger.Log.Info("Миграции выполнены", zap.String("cmd", *command))
}
