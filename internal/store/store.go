// Package store is the pgx-backed repository over the durable call state:
// interactions, the turn ledger, outbound-call jobs and profile records.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// Provider tags every interaction row created for a gateway call.
	Provider = "twilio"

	uniqueViolation = "23505"
)

type Repository struct {
	db *pgxpool.Pool
}

func Connect(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Supabase's connection pooler (PgBouncer in transaction mode) does not
	// support prepared statements, so the statement cache must stay off.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// isUniqueViolation reports whether err is a unique-constraint conflict, the
// signal all idempotent inserts branch on.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// jsonbArg converts raw JSON bytes to a query argument, mapping empty to NULL.
func jsonbArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
