package db

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBConnection interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

// Repository is the document store for fleet records and trips. It works on
// a pool, a single connection or a transaction alike.
type Repository struct {
	DBConnection
}

func NewRepository(conn DBConnection) Repository {
	return Repository{conn}
}

func (repo Repository) WithinTransaction(ctx context.Context, op func(Repository) error) (err error) {
	tx, err := repo.DBConnection.Begin(ctx)
	if err != nil {
		return
	}
	defer tx.Rollback(ctx)
	err = op(Repository{tx})
	if err != nil {
		return
	}
	err = tx.Commit(ctx)
	return
}

var activeTripConstraints = map[string]bool{
	"trips_pkey":                  true,
	"trips_one_active_per_driver": true,
	"trips_one_active_per_bus":    true,
}

func isActiveTripViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && activeTripConstraints[pgErr.ConstraintName]
}
