package store

import (
	"context"
	"fmt"

	"github.com/archon-labs/intelligence-engine/pkg/migration"
	"github.com/archon-labs/intelligence-engine/pkg/observability"
)

// DefaultMigrationsSource is the file:// URL pkg/migration's source/file
// driver reads from when the caller doesn't override it (spec §6:
// "migrations live under internal/store/migrations, run by golang-migrate
// at adapter startup").
const DefaultMigrationsSource = "file://internal/store/migrations"

// RunMigrations brings the pattern store's schema up to date using
// pkg/migration's golang-migrate wrapper. Safe to call on every boot —
// Up is idempotent and returns nil when the schema is already current.
func RunMigrations(ctx context.Context, dsn, source string, obs observability.Observability) error {
	if source == "" {
		source = DefaultMigrationsSource
	}
	migrator, err := migration.New(
		migration.WithDriver(migration.DriverPostgres),
		migration.WithDSN(dsn),
		migration.WithSource(source),
		migration.WithLogger(newMigrationLogger(obs)),
	)
	if err != nil {
		return fmt.Errorf("store: build migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("store: run migrations: %w", err)
	}
	return nil
}

// migrationLogger adapts observability.Logger to pkg/migration's Logger
// interface — the method sets match but each package defines its own
// Field type, so calls need translating rather than a bare type
// assertion.
type migrationLogger struct {
	obs observability.Observability
}

func newMigrationLogger(obs observability.Observability) migration.Logger {
	return &migrationLogger{obs: obs}
}

func (l *migrationLogger) Debug(ctx context.Context, msg string, fields ...migration.Field) {
	l.obs.Logger().Debug(ctx, msg, toObsFields(fields)...)
}

func (l *migrationLogger) Info(ctx context.Context, msg string, fields ...migration.Field) {
	l.obs.Logger().Info(ctx, msg, toObsFields(fields)...)
}

func (l *migrationLogger) Warn(ctx context.Context, msg string, fields ...migration.Field) {
	l.obs.Logger().Warn(ctx, msg, toObsFields(fields)...)
}

func (l *migrationLogger) Error(ctx context.Context, msg string, fields ...migration.Field) {
	l.obs.Logger().Error(ctx, msg, toObsFields(fields)...)
}

func toObsFields(fields []migration.Field) []observability.Field {
	out := make([]observability.Field, len(fields))
	for i, f := range fields {
		out[i] = observability.Any(f.Key, f.Value)
	}
	return out
}
