// package dbutil opens sqlite databases and runs transactions against them.
package dbutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Reader is satisfied by *sqlx.DB and *sqlx.Tx
type Reader interface {
	Get(dst any, query string, args ...any) error
	Select(dst any, query string, args ...any) error
}

var (
	_ Reader = &sqlx.DB{}
	_ Reader = &sqlx.Tx{}
)

// Open opens the sqlite database at p.
// The special path ":memory:" opens a private in-memory database.
func Open(p string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if p == ":memory:" {
		// each connection would get its own database
		db.SetMaxOpenConns(1)
	}
	for _, stmt := range []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting up %s: %w", p, err)
		}
	}
	return db, nil
}

// DoTx runs fn in a transaction, committing if it returns nil.
func DoTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// DoTx1 is DoTx for functions which return a value.
func DoTx1[T any](ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) (T, error)) (ret T, _ error) {
	err := DoTx(ctx, db, func(tx *sqlx.Tx) error {
		var err error
		ret, err = fn(tx)
		return err
	})
	return ret, err
}

// NewTestDB opens a database in a temporary directory, which is closed when the test ends.
func NewTestDB(t testing.TB) *sqlx.DB {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
