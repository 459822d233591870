package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/gridiron/store"
)

// StatsDB serves the statistics tables from PostgreSQL.
// Every query runs in a read-only transaction.
type StatsDB struct {
	db *sql.DB
}

// NewStatsDB opens the statistics database at dsn.
func NewStatsDB(dsn string) (*StatsDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open stats db: %s", redact(dsn))
	}
	db.SetMaxOpenConns(4)
	return &StatsDB{db: db}, nil
}

func (s *StatsDB) Dialect() string {
	return "PostgreSQL"
}

func (s *StatsDB) Close() error {
	return s.db.Close()
}

func (s *StatsDB) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name <> 'query_record' ORDER BY table_name`)
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

// DescribeTables renders a CREATE TABLE outline from information_schema plus sample rows.
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
		rows, err := s.db.QueryContext(ctx, `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = `+placeholder(1)+` ORDER BY ordinal_position`, table)
		if err != nil {
			return "", errors.Wrapf(err, "failed to describe %s", table)
		}
		var cols []string
		for rows.Next() {
			var name, typ string
			if err := rows.Scan(&name, &typ); err != nil {
				rows.Close()
				return "", errors.Wrapf(err, "failed to scan column of %s", table)
			}
			cols = append(cols, fmt.Sprintf("\t%q %s", name, strings.ToUpper(typ)))
		}
		rows.Close()
		fmt.Fprintf(&sb, "CREATE TABLE %q (\n%s\n)\n\n", table, strings.Join(cols, ",\n"))

		sample, err := s.Query(ctx, fmt.Sprintf(`SELECT * FROM %q LIMIT %d`, table, store.SampleRows), store.SampleRows)
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

// Query validates and runs a read-only statement inside a read-only transaction.
func (s *StatsDB) Query(ctx context.Context, query string, maxRows int) (*store.QueryResult, error) {
	q, err := store.ValidateReadOnly(query)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin read-only transaction")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	defer rows.Close()
	return store.ScanRows(rows, maxRows)
}
