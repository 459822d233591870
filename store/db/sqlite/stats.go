package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/gridiron/store"
)

// StatsDB is the nflfastR SQLite file, opened query-only.
type StatsDB struct {
	db *sql.DB
}

// NewStatsDB opens the statistics database at path. The file must exist.
func NewStatsDB(path string) (*StatsDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "stats database %s", path)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open stats db: %s", path)
	}
	db.SetMaxOpenConns(4)
	return &StatsDB{db: db}, nil
}

func (s *StatsDB) Dialect() string {
	return "SQLite"
}

func (s *StatsDB) Close() error {
	return s.db.Close()
}

func (s *StatsDB) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeTables returns each table's CREATE statement followed by sample rows.
func (s *StatsDB) DescribeTables(ctx context.Context, tables []string) (string, error) {
	existing, err := s.ListTables(ctx)
	if err != nil {
		return "", err
	}
	known, unknown := store.FilterTables(tables, existing)
	if len(known) == 0 {
		return "", errors.Errorf("unknown tables %v; available: %s", unknown, strings.Join(existing, ", "))
	}

	var sb strings.Builder
	for _, table := range known {
		var ddl string
		if err := s.db.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE name = ?`, table).Scan(&ddl); err != nil {
			return "", errors.Wrapf(err, "failed to describe %s", table)
		}
		sb.WriteString(strings.TrimSpace(ddl))
		sb.WriteString("\n\n")

		sample, err := s.Query(ctx, fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d`, table, store.SampleRows), store.SampleRows)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "/*\n%d rows from %s table:\n%s\n*/\n\n", len(sample.Rows), table, sample.Format())
	}
	if len(unknown) > 0 {
		fmt.Fprintf(&sb, "Unknown tables ignored: %s\n", strings.Join(unknown, ", "))
	}
	return strings.TrimSpace(sb.String()), nil
}

// Query validates and runs a read-only statement.
func (s *StatsDB) Query(ctx context.Context, query string, maxRows int) (*store.QueryResult, error) {
	q, err := store.ValidateReadOnly(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()
	return store.ScanRows(rows, maxRows)
}
