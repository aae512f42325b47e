package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/HardCodeMatter/file-fortress-api/internal/config"
	"github.com/HardCodeMatter/file-fortress-api/internal/db/migrations"
)

var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded goose migrations on postgres. SQLite
// databases are created from the models instead.
func Migrate(ctx context.Context, cfg config.DBConfig, gdb *gorm.DB) error {
	if cfg.Driver == "sqlite" {
		return AutoMigrate(gdb)
	}

	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	return RunMigrations(ctx, sqlDB)
}

func RunMigrations(ctx context.Context, sqlDB *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
