package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationState is the applied state of one embedded migration.
type MigrationState struct {
	Version   string
	Applied   bool
	AppliedAt time.Time
}

// NewMigrator builds a goose provider over the embedded migrations.
func NewMigrator(db *sqlx.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return provider, nil
}

// Migrate applies pending migrations, each in its own transaction, and returns the versions applied.
func Migrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	provider, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	results, err := provider.Up(ctx)
	var applied []string
	for _, r := range results {
		if r == nil || r.Error != nil {
			continue
		}
		applied = append(applied, migrationName(r.Source))
	}
	if err != nil {
		return applied, fmt.Errorf("apply migrations: %w", err)
	}
	return applied, nil
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, db *sqlx.DB) (string, error) {
	provider, err := NewMigrator(db)
	if err != nil {
		return "", err
	}
	result, err := provider.Down(ctx)
	if err != nil {
		return "", fmt.Errorf("rollback migration: %w", err)
	}
	return migrationName(result.Source), nil
}

// MigrationStatus reports every embedded migration and whether it has been applied.
func MigrationStatus(ctx context.Context, db *sqlx.DB) ([]MigrationState, error) {
	provider, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationState{
			Version:   migrationName(st.Source),
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}

func migrationName(src *goose.Source) string {
	if src == nil {
		return ""
	}
	return strings.TrimSuffix(path.Base(src.Path), ".sql")
}
