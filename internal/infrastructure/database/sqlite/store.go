// Package sqlite is the on-device key/value store behind the local
// persistence adapter. Each key holds one JSON blob.
package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/turtacn/PersonaQuiz/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PersonaQuiz/pkg/errors"
)

// Store is a KV over the local_entries table.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
	once   sync.Once
}

// Open creates the parent directory of path, opens the database, applies
// pragmas and migrates the schema.
func Open(path string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "create local data dir")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "open local database")
	}
	// A single writer keeps SQLite free of SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "apply pragmas")
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Opened local store", logging.String("path", path))
	return &Store{db: db, logger: log, now: time.Now}, nil
}

// NewWithDB wraps an already migrated database (for tests).
func NewWithDB(db *sql.DB, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{db: db, logger: log, now: time.Now}
}

// DefaultPath returns $XDG_DATA_HOME/personaquiz/local.db, falling back to
// ~/.local/share.
func DefaultPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "personaquiz", "local.db")
}

// Get returns nil, nil when key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM local_entries WHERE key = ?`, key).Scan(&payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("get %s", key))
	}
	return payload, nil
}

// Put inserts or replaces key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_entries (key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("put %s", key))
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_entries WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("delete %s", key))
	}
	return nil
}

// Keys lists every stored key in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM local_entries ORDER BY key`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database once.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
		if err != nil {
			s.logger.Error("Failed to close local store", logging.Err(err))
		}
	})
	return err
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
