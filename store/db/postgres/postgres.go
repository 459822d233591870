package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the PostgreSQL history database at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", redact(profile.DSN))
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS query_record (
		id UUID PRIMARY KEY,
		trace_id TEXT NOT NULL DEFAULT '',
		question TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT '',
		db_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		web_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		filtered BOOLEAN NOT NULL DEFAULT FALSE,
		error TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		embedding vector,
		embedding_model TEXT NOT NULL DEFAULT '',
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_query_record_created_ts ON query_record (created_ts)`,
	`CREATE INDEX IF NOT EXISTS idx_query_record_source ON query_record (source)`,
}

// Migrate creates the pgvector extension and the history schema.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate postgres schema")
		}
	}
	return nil
}

func placeholder(n int) string {
	return "$" + fmt.Sprint(n)
}

func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// redact hides the password of a postgres URL DSN in error messages.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return dsn[:scheme+3] + userinfo[:colon] + ":***" + dsn[at:]
	}
	return dsn
}
