// Package store persists the fleet topology and its configuration in SQLite.
// Writes come from the importer and the CLI; the job core only reads.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/newtron-network/fleetscan/pkg/util"
)

// MaxOpenConns bounds the process-wide connection pool.
const MaxOpenConns = 5

var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
}

const schema = `
CREATE TABLE IF NOT EXISTS containers (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	num  INTEGER NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS racks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	container_id INTEGER NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	idx          INTEGER NOT NULL,
	width        INTEGER NOT NULL,
	height       INTEGER NOT NULL,
	UNIQUE (container_id, idx)
);
CREATE TABLE IF NOT EXISTS devices (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	rack_id INTEGER NOT NULL REFERENCES racks(id) ON DELETE CASCADE,
	ip      TEXT NOT NULL UNIQUE,
	row_idx INTEGER NOT NULL,
	col_idx INTEGER NOT NULL,
	UNIQUE (rack_id, row_idx, col_idx)
);
CREATE TABLE IF NOT EXISTS credentials (
	vendor   TEXT NOT NULL,
	position INTEGER NOT NULL,
	username TEXT NOT NULL,
	password TEXT NOT NULL,
	PRIMARY KEY (vendor, position)
);
CREATE TABLE IF NOT EXISTS pool_templates (
	name     TEXT PRIMARY KEY,
	url1     TEXT NOT NULL DEFAULT '',
	url2     TEXT NOT NULL DEFAULT '',
	url3     TEXT NOT NULL DEFAULT '',
	worker   TEXT NOT NULL DEFAULT '',
	password TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS error_patterns (
	position INTEGER PRIMARY KEY,
	vendor   TEXT NOT NULL,
	pattern  TEXT NOT NULL,
	message  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the SQLite-backed topology and configuration store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database on one connection.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: database path is required")
	}

	dsn := path
	if path != ":memory:" {
		q := url.Values{}
		for _, p := range pragmas {
			q.Add("_pragma", p)
		}
		dsn = path + "?" + q.Encode()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, util.NewPersistenceError("open "+path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(MaxOpenConns)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	util.WithField("path", path).Debug("store opened")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if s.path == ":memory:" {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			return util.NewPersistenceError("pragma", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return util.NewPersistenceError("migrate", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// withTx runs fn in a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return util.NewPersistenceError(op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return util.NewPersistenceError(op, err)
	}
	util.WithOperation(op).Debug("committed")
	return nil
}
