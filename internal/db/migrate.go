package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var Migrations embed.FS

const migrationsDir = "migrations"

// withMigrator opens a database/sql handle for goose. The pgx database/sql
// driver must be registered by the caller.
func withMigrator(connectionURL string, op func(db *sql.DB) error) (err error) {
	db, err := goose.OpenDBWithDriver("pgx", connectionURL)
	if err != nil {
		return fmt.Errorf("failed to connect with database: %w", err)
	}

	defer func() {
		dbErr := db.Close()
		if dbErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close database connection: %w", dbErr))
		}
	}()

	goose.SetBaseFS(Migrations)
	err = goose.SetDialect("postgres")
	if err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return op(db)
}

// MigrateTo applies migrations up to version, or all of them when version is
// "latest".
func MigrateTo(ctx context.Context, connectionURL string, version string) (err error) {
	var target int64
	if version != "latest" {
		target, err = strconv.ParseInt(version, 10, 64)
		if err != nil {
			err = fmt.Errorf("failed to parse version: %w", err)
			return
		}
	}
	return withMigrator(connectionURL, func(db *sql.DB) error {
		if version == "latest" {
			return goose.UpContext(ctx, db, migrationsDir)
		}
		return goose.UpToContext(ctx, db, migrationsDir, target)
	})
}

// SchemaVersion returns the version of the last applied migration.
func SchemaVersion(connectionURL string) (version int64, err error) {
	err = withMigrator(connectionURL, func(db *sql.DB) (err error) {
		version, err = goose.GetDBVersion(db)
		return
	})
	return
}
