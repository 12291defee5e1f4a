package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_adaptive_schema.sql
var createAdaptiveSchemaSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createAdaptiveSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS proficiency_trends;
				DROP TABLE IF EXISTS adaptive_sessions;
				DROP TABLE IF EXISTS attempt_responses;
				DROP TABLE IF EXISTS attempts;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS question_sets;
				DROP TABLE IF EXISTS topics;
			`)
			return err
		},
	)
}
