// package sqlstores implements content addressed storage and the build index on sqlite.
package sqlstores

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/jmoiron/sqlx"

	"ufork.dev/uscheme/internal/cadata"
	"ufork.dev/uscheme/internal/dbutil"
	"ufork.dev/uscheme/internal/migrations"
)

func Migration(x *migrations.State) *migrations.State {
	return x.
		ApplyStmt(`CREATE TABLE blobs (
		id BLOB NOT NULL,
		data BLOB NOT NULL,

		PRIMARY KEY(id)
	) WITHOUT ROWID, STRICT;`).
		ApplyStmt(`CREATE TABLE artifacts (
		source_id BLOB NOT NULL,
		artifact_id BLOB NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,

		FOREIGN KEY(artifact_id) REFERENCES blobs(id),
		PRIMARY KEY(source_id)
	) WITHOUT ROWID, STRICT;`)
}

// Schema is the complete schema used by the build cache.
func Schema() *migrations.State {
	return Migration(migrations.InitialState())
}

// Setup migrates db to Schema.
func Setup(ctx context.Context, db *sqlx.DB) error {
	return migrations.Migrate(ctx, db, Schema())
}

type txStore struct {
	tx      *sqlx.Tx
	hf      cadata.HashFunc
	maxSize int
}

func (s *txStore) Post(ctx context.Context, data []byte) (cadata.ID, error) {
	if len(data) > s.maxSize {
		return cadata.ID{}, cadata.ErrTooLarge
	}
	id := s.hf(data)
	if _, err := s.tx.Exec(`INSERT INTO blobs (id, data)
		VALUES (?, ?) ON CONFLICT DO NOTHING`, id[:], data); err != nil {
		return cadata.ID{}, err
	}
	return id, nil
}

func (s *txStore) Get(ctx context.Context, id *cadata.ID, buf []byte) (int, error) {
	var data []byte
	if err := s.tx.Get(&data, `SELECT data FROM blobs WHERE id = ?`, id[:]); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = cadata.ErrNotFound{Key: id}
		}
		return 0, err
	}
	if len(data) > len(buf) {
		return 0, io.ErrShortBuffer
	}
	return copy(buf, data), nil
}

func (s *txStore) Delete(ctx context.Context, id *cadata.ID) error {
	if _, err := s.tx.Exec(`DELETE FROM artifacts WHERE artifact_id = ?`, id[:]); err != nil {
		return err
	}
	_, err := s.tx.Exec(`DELETE FROM blobs WHERE id = ?`, id[:])
	return err
}

func (s *txStore) Exists(ctx context.Context, id *cadata.ID) (bool, error) {
	var exists bool
	if err := s.tx.Get(&exists, `SELECT EXISTS(
		SELECT 1 FROM blobs WHERE id = ?
	)`, id[:]); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *txStore) List(ctx context.Context, span cadata.Span, ids []cadata.ID) (int, error) {
	begin := cadata.BeginFromSpan(span)
	rows, err := s.tx.Query(`SELECT id FROM blobs
		WHERE id >= ?
		ORDER BY id
		LIMIT ?
	`, begin[:], len(ids))
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int
	for rows.Next() && n < len(ids) {
		var id cadata.ID
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		if !span.Contains(id, func(a, b cadata.ID) int { return a.Compare(b) }) {
			break
		}
		ids[n] = id
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

var _ cadata.Store = &Store{}

// Store is a cadata.Store holding blobs in a sqlite table.
type Store struct {
	db      *sqlx.DB
	hf      cadata.HashFunc
	maxSize int
}

func NewStore(db *sqlx.DB, hf cadata.HashFunc, maxSize int) *Store {
	return &Store{db: db, hf: hf, maxSize: maxSize}
}

func (s *Store) Post(ctx context.Context, data []byte) (cadata.ID, error) {
	return dbutil.DoTx1(ctx, s.db, func(tx *sqlx.Tx) (cadata.ID, error) {
		return s.txStore(tx).Post(ctx, data)
	})
}

func (s *Store) Get(ctx context.Context, id *cadata.ID, buf []byte) (int, error) {
	return dbutil.DoTx1(ctx, s.db, func(tx *sqlx.Tx) (int, error) {
		return s.txStore(tx).Get(ctx, id, buf)
	})
}

func (s *Store) Exists(ctx context.Context, id *cadata.ID) (bool, error) {
	return dbutil.DoTx1(ctx, s.db, func(tx *sqlx.Tx) (bool, error) {
		return s.txStore(tx).Exists(ctx, id)
	})
}

func (s *Store) Delete(ctx context.Context, id *cadata.ID) error {
	return dbutil.DoTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.txStore(tx).Delete(ctx, id)
	})
}

func (s *Store) List(ctx context.Context, span cadata.Span, ids []cadata.ID) (int, error) {
	return dbutil.DoTx1(ctx, s.db, func(tx *sqlx.Tx) (int, error) {
		return s.txStore(tx).List(ctx, span, ids)
	})
}

func (s *Store) MaxSize() int {
	return s.maxSize
}

func (s *Store) txStore(tx *sqlx.Tx) *txStore {
	return &txStore{tx: tx, hf: s.hf, maxSize: s.maxSize}
}

// Index maps source IDs to the IDs of the artifacts built from them.
type Index struct {
	db *sqlx.DB
}

func NewIndex(db *sqlx.DB) *Index {
	return &Index{db: db}
}

// Get returns the artifact built from the source, if there is one.
func (ix *Index) Get(ctx context.Context, sourceID cadata.ID) (cadata.ID, bool, error) {
	var ret cadata.ID
	err := ix.db.GetContext(ctx, &ret, `SELECT artifact_id FROM artifacts WHERE source_id = ?`, sourceID[:])
	if errors.Is(err, sql.ErrNoRows) {
		return cadata.ID{}, false, nil
	}
	if err != nil {
		return cadata.ID{}, false, err
	}
	return ret, true, nil
}

// Put records that the artifact was built from the source.
func (ix *Index) Put(ctx context.Context, sourceID, artifactID cadata.ID) error {
	return dbutil.DoTx(ctx, ix.db, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO artifacts (source_id, artifact_id) VALUES (?, ?)
			ON CONFLICT (source_id) DO UPDATE SET artifact_id = excluded.artifact_id`, sourceID[:], artifactID[:])
		return err
	})
}

// Count returns the number of indexed artifacts.
func (ix *Index) Count(ctx context.Context) (ret int64, _ error) {
	err := ix.db.GetContext(ctx, &ret, `SELECT count(*) FROM artifacts`)
	return ret, err
}
