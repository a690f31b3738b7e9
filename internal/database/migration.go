package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_create_plans",
		sql: `
			CREATE TABLE IF NOT EXISTS plans (
				plan_id    UUID PRIMARY KEY,
				profile    JSONB NOT NULL,
				plan       JSONB NOT NULL,
				plan_name  TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
	},
	{
		version: "002_create_plans_created_at_idx",
		sql:     `CREATE INDEX IF NOT EXISTS plans_created_at_idx ON plans (created_at DESC)`,
	},
	{
		version: "003_create_exercise_images",
		sql: `
			CREATE TABLE IF NOT EXISTS exercise_images (
				plan_id      UUID NOT NULL REFERENCES plans(plan_id) ON DELETE CASCADE,
				exercise_key TEXT NOT NULL,
				name         TEXT NOT NULL,
				visual_cue   TEXT NOT NULL DEFAULT '',
				image        TEXT,
				created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (plan_id, exercise_key)
			)`,
	},
}

// RunMigrations applies every migration not yet recorded in schema_migrations, in order.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.version, err)
		}
		if exists {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", m.version, err)
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", m.version, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.version, err)
		}
		log.Info().Str("version", m.version).Msg("Applied migration")
	}
	return nil
}
