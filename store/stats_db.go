package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// StatsDB is the read-only NFL statistics database queried by the database agent.
type StatsDB interface {
	// Dialect is the SQL dialect name shown to the model ("SQLite", "PostgreSQL").
	Dialect() string
	ListTables(ctx context.Context) ([]string, error)
	// DescribeTables returns the schema and a few sample rows of each table.
	DescribeTables(ctx context.Context, tables []string) (string, error)
	// Query runs a read-only statement and returns at most maxRows rows.
	Query(ctx context.Context, query string, maxRows int) (*QueryResult, error)
	Close() error
}

// SampleRows is how many example rows DescribeTables includes per table.
const SampleRows = 3

// ErrUnsafeQuery rejects anything but a single read-only statement.
var ErrUnsafeQuery = errors.New("only a single read-only SELECT or WITH statement is allowed")

var (
	stringLiteral    = regexp.MustCompile(`'(?:[^']|'')*'`)
	quotedIdentifier = regexp.MustCompile(`"(?:[^"]|"")*"`)
	lineComment      = regexp.MustCompile(`--[^\n]*`)
	blockComment     = regexp.MustCompile(`(?s)/\*.*?\*/`)
	forbiddenWord    = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|attach|detach|pragma|vacuum|reindex|grant|revoke|copy|merge|into)\b`)
	leadingKeyword   = regexp.MustCompile(`(?i)^(select|with)\b`)
)

// ValidateReadOnly returns the statement without a trailing semicolon,
// or ErrUnsafeQuery when it is not a single SELECT/WITH statement.
func ValidateReadOnly(query string) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimRight(q, "; \t\n"))
	if q == "" {
		return "", errors.Wrap(ErrUnsafeQuery, "empty statement")
	}

	// Literals and quoted identifiers may legitimately contain keywords and semicolons.
	bare := stringLiteral.ReplaceAllString(q, "''")
	bare = quotedIdentifier.ReplaceAllString(bare, `""`)
	bare = blockComment.ReplaceAllString(bare, " ")
	bare = lineComment.ReplaceAllString(bare, " ")
	bare = strings.TrimSpace(bare)

	if !leadingKeyword.MatchString(bare) {
		return "", errors.Wrap(ErrUnsafeQuery, "statement must start with SELECT or WITH")
	}
	if strings.Contains(bare, ";") {
		return "", errors.Wrap(ErrUnsafeQuery, "multiple statements")
	}
	if m := forbiddenWord.FindString(bare); m != "" {
		return "", errors.Wrapf(ErrUnsafeQuery, "forbidden keyword %s", strings.ToUpper(m))
	}
	return q, nil
}

// QueryResult is a tabular query result rendered as text for the model.
type QueryResult struct {
	Columns   []string
	Rows      [][]string
	Truncated bool
}

// Format renders the result as a pipe-separated table.
func (r *QueryResult) Format() string {
	if r == nil || len(r.Columns) == 0 {
		return "(no columns)"
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(r.Columns, " | "))
	sb.WriteByte('\n')
	for _, row := range r.Rows {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteByte('\n')
	}
	switch {
	case len(r.Rows) == 0:
		sb.WriteString("(0 rows)")
	case r.Truncated:
		fmt.Fprintf(&sb, "(truncated to %d rows)", len(r.Rows))
	default:
		fmt.Fprintf(&sb, "(%d rows)", len(r.Rows))
	}
	return sb.String()
}

// ScanRows reads at most maxRows rows; Truncated is set when more were available.
func ScanRows(rows *sql.Rows, maxRows int) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}
	result := &QueryResult{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate rows")
	}
	return result, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", x), "0"), ".")
	default:
		return fmt.Sprint(x)
	}
}

// FilterTables keeps the requested tables that exist, preserving request order.
// Unknown names are returned separately so callers can report them.
func FilterTables(requested, existing []string) (known, unknown []string) {
	set := make(map[string]string, len(existing))
	for _, t := range existing {
		set[strings.ToLower(t)] = t
	}
	for _, r := range requested {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if t, ok := set[strings.ToLower(r)]; ok {
			known = append(known, t)
		} else {
			unknown = append(unknown, r)
		}
	}
	return known, unknown
}
