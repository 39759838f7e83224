package db

import (
	"context"
	"database/sql"
	"docportal/internal/config"
	"embed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// OpenSQL открывает database/sql поверх pgx: goose работает только с *sql.DB.
func OpenSQL(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	database, err := sql.Open("pgx", cfg.GetDSN())
	if err != nil {
		return nil, err
	}
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func setup() error {
	goose.SetBaseFS(migrationFiles)
	return goose.SetDialect("postgres")
}

// Goose выполняет произвольную команду goose (down, status, version...).
func Goose(ctx context.Context, database *sql.DB, command string) error {
	if err := setup(); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, database, "migrations")
}

// RunMigrations применяет встроенные SQL-миграции через goose. При database == nil ничего не делает.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := setup(); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, "migrations")
}
