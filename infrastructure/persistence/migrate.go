package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"social-publisher/infrastructure/persistence/migrations"
)

// RunMigrations brings the PostgreSQL schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
