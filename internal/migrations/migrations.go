// package migrations applies an ordered list of schema statements to a database.
package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"
)

// State is a schema, described by the statements which create it.
// States are immutable; ApplyStmt returns a new State.
type State struct {
	stmts []string
}

func InitialState() *State {
	return &State{}
}

// ApplyStmt returns the state after stmt has been applied.
func (s *State) ApplyStmt(stmt string) *State {
	stmts := make([]string, len(s.stmts), len(s.stmts)+1)
	copy(stmts, s.stmts)
	return &State{stmts: append(stmts, stmt)}
}

// Version is the number of statements in the state.
func (s *State) Version() int {
	return len(s.stmts)
}

// Migrate brings db up to the target state.
// Statements which were applied by a previous call are skipped.
func Migrate(ctx context.Context, db *sqlx.DB, target *State) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return err
	}
	var current int
	if err := tx.Get(&current, `SELECT coalesce(max(version), 0) FROM schema_version`); err != nil {
		return err
	}
	if current > target.Version() {
		return fmt.Errorf("database is at version %d, which is newer than %d", current, target.Version())
	}
	for i := current; i < target.Version(); i++ {
		if _, err := tx.Exec(target.stmts[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if current < target.Version() {
		if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, target.Version()); err != nil {
			return err
		}
		logctx.Info(ctx, "migrated database", zap.Int("from", current), zap.Int("to", target.Version()))
	}
	return tx.Commit()
}
