package repository

import (
	"context"
	"database/sql"
	"io/fs"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	session "github.com/DotRed108/go-session"
)

// RegisterModels registers the session models with the persistence client.
func RegisterModels() {
	persistence.RegisterModel((*session.UserProfile)(nil))
}

// Setup builds a persistence client over the database, registers the
// embedded migrations, and runs them.
func Setup(ctx context.Context, cfg persistence.Config, db *sql.DB) (*persistence.Client, error) {
	RegisterModels()

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(session.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client, nil
}
