package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/store"
)

// ============================================================================
// SQLITE SUPPORT POLICY
// ============================================================================
// SQLite is the default history store for single-instance deployments.
//
// Supported:
// - Query history CRUD and aggregate stats
// - Similar-question lookup (cosine similarity computed in Go)
//
// NOT Supported:
// - Concurrent writers across processes (use PostgreSQL)
// - Indexed vector search (candidates are scanned, newest first)
// ============================================================================

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the history database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Notes:
	// - When using the `modernc.org/sqlite` driver, each pragma must be prefixed with `_pragma=`.
	// - WAL prevents readers from blocking the single writer.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite: single connection is optimal with WAL
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS query_record (
		id TEXT PRIMARY KEY,
		trace_id TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT '',
		db_score REAL NOT NULL DEFAULT 0,
		web_score REAL NOT NULL DEFAULT 0,
		filtered INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		embedding BLOB,
		embedding_model TEXT NOT NULL DEFAULT '',
		created_ts INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_query_record_created_ts ON query_record (created_ts)`,
	`CREATE INDEX IF NOT EXISTS idx_query_record_source ON query_record (source)`,
}

// Migrate creates the history schema.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate sqlite schema")
		}
	}
	return nil
}
