package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

type Options struct {
	URL      string `json:"url" mapstructure:"url"`
	MaxConns int32  `json:"max-conns" mapstructure:"max-conns"`
}

func NewOptions() *Options {
	return &Options{MaxConns: 10}
}

func (o *Options) Validate() []error {
	var errs []error
	if o.URL == "" {
		errs = append(errs, errors.New("db.url: is required"))
	}
	if o.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("db.max-conns: must be positive (got %d)", o.MaxConns))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.URL, "db.url", o.URL, "URL-formatted connection string to the database server. Currently only postgres:// URLs are supported.")
	fs.Int32Var(&o.MaxConns, "db.max-conns", o.MaxConns, "Maximum number of pooled database connections.")
}

// Connect opens a connection pool and checks that the server is reachable.
func (o *Options) Connect(ctx context.Context) (pool *pgxpool.Pool, err error) {
	config, err := pgxpool.ParseConfig(o.URL)
	if err != nil {
		err = fmt.Errorf("invalid database url: %w", err)
		return
	}
	config.MaxConns = o.MaxConns
	pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		err = fmt.Errorf("failed to connect to database: %w", err)
		return
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		pool = nil
		err = fmt.Errorf("failed to ping database: %w", err)
	}
	return
}
