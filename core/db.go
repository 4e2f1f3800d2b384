package core

import (
	"context"
	"database/sql"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// Atomizer runs a function within a single durable transactional unit:
	// every write made through the provided executor is committed on a nil
	// return and rolled back otherwise, on every exit path.
	Atomizer interface {
		Atomic(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)
