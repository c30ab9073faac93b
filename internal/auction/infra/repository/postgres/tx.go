package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is what both pgx.Tx and *pgxpool.Pool offer
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pick runs on tx when there is one, on the pool otherwise
func pick(tx pgx.Tx, pool *pgxpool.Pool) querier {
	if tx != nil {
		return tx
	}
	return pool
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapErr turns the postgres errors the engine retries on into ErrConcurrencyConflict
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConcurrencyConflict, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
