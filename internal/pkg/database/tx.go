package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxFunc is the body of a unit of work.
type TxFunc func(tx *sqlx.Tx) error

// Transactor opens a unit of work: fn runs inside one database transaction
// that is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// SQLTransactor runs units of work on a sqlx pool.
type SQLTransactor struct {
	db   *sqlx.DB
	opts *sql.TxOptions
}

func NewTransactor(db *sqlx.DB) *SQLTransactor {
	return &SQLTransactor{
		db:   db,
		opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
}

func (t *SQLTransactor) WithinTx(ctx context.Context, fn TxFunc) error {
	tx, err := t.db.BeginTxx(ctx, t.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
