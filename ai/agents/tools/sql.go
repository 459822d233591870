package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/store"
)

// Tool names of the SQL toolkit.
const (
	ListTablesName     = "list_tables"
	DescribeTablesName = "describe_tables"
	CheckQueryName     = "check_query"
	RunQueryName       = "run_query"
)

// JSON field name mappings for LLM compatibility.
// Some models answer {"sql": ...} or {"table_names": ...} instead of the declared names.
var sqlFieldNameMappings = map[string]string{
	"sql":         "query",
	"statement":   "query",
	"table_names": "tables",
	"tableNames":  "tables",
}

// normalizeJSONFields renames known aliases to the declared argument names.
func normalizeJSONFields(inputJSON string) string {
	var raw map[string]any
	if err := json.Unmarshal([]byte(inputJSON), &raw); err != nil {
		return inputJSON
	}
	normalized := make(map[string]any, len(raw))
	for key, value := range raw {
		if mapped, ok := sqlFieldNameMappings[key]; ok {
			key = mapped
		}
		normalized[key] = value
	}
	out, err := json.Marshal(normalized)
	if err != nil {
		return inputJSON
	}
	return string(out)
}

// QueryLog collects the statements run_query executed, in order.
type QueryLog struct {
	mu      sync.Mutex
	queries []string
}

func (l *QueryLog) add(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queries = append(l.queries, q)
}

// Queries returns a copy of the executed statements.
func (l *QueryLog) Queries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.queries...)
}

// ListTablesTool lists the statistics tables.
type ListTablesTool struct {
	db store.StatsDB
}

// NewListTablesTool creates the list_tables tool.
func NewListTablesTool(db store.StatsDB) *ListTablesTool {
	return &ListTablesTool{db: db}
}

func (t *ListTablesTool) Name() string { return ListTablesName }

func (t *ListTablesTool) Description() string {
	return "Input is an empty object. Output is a comma-separated list of tables in the database."
}

func (t *ListTablesTool) Parameters() *llm.JSONSchema {
	return llm.ObjectSchema(nil)
}

func (t *ListTablesTool) Run(ctx context.Context, _ string) (string, error) {
	tables, err := t.db.ListTables(ctx)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "(no tables)", nil
	}
	return strings.Join(tables, ", "), nil
}

// DescribeTablesInput is the argument of describe_tables.
type DescribeTablesInput struct {
	Tables []string `json:"tables"`
}

// DescribeTablesTool returns schema and sample rows.
type DescribeTablesTool struct {
	db store.StatsDB
}

// NewDescribeTablesTool creates the describe_tables tool.
func NewDescribeTablesTool(db store.StatsDB) *DescribeTablesTool {
	return &DescribeTablesTool{db: db}
}

func (t *DescribeTablesTool) Name() string { return DescribeTablesName }

func (t *DescribeTablesTool) Description() string {
	return fmt.Sprintf(`Input: {"tables": ["table1", "table2"]}
Output: the schema and %d sample rows of each table.
Call list_tables first to be sure the tables exist.`, store.SampleRows)
}

func (t *DescribeTablesTool) Parameters() *llm.JSONSchema {
	return llm.ObjectSchema(map[string]*llm.JSONSchema{
		"tables": {
			Type:        "array",
			Description: "table names from list_tables",
			Items:       &llm.JSONSchema{Type: "string"},
		},
	})
}

func (t *DescribeTablesTool) Run(ctx context.Context, input string) (string, error) {
	var in DescribeTablesInput
	if err := json.Unmarshal([]byte(normalizeJSONFields(input)), &in); err != nil {
		// Some models send a bare comma-separated string.
		var single struct {
			Tables string `json:"tables"`
		}
		if err2 := json.Unmarshal([]byte(normalizeJSONFields(input)), &single); err2 != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
		in.Tables = strings.Split(single.Tables, ",")
	}
	if len(in.Tables) == 0 {
		return "", fmt.Errorf("tables is required")
	}
	return t.db.DescribeTables(ctx, in.Tables)
}

// QueryInput is the argument of check_query and run_query.
type QueryInput struct {
	Query string `json:"query"`
}

func parseQueryInput(input string) (string, error) {
	var in QueryInput
	if err := json.Unmarshal([]byte(normalizeJSONFields(input)), &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	return in.Query, nil
}

func queryParameters(desc string) *llm.JSONSchema {
	return llm.ObjectSchema(map[string]*llm.JSONSchema{
		"query": {Type: "string", Description: desc},
	})
}

// CheckQueryTool validates a statement without running it.
// Only the read-only guard runs here; syntax errors surface from run_query.
type CheckQueryTool struct{}

// NewCheckQueryTool creates the check_query tool.
func NewCheckQueryTool() *CheckQueryTool {
	return &CheckQueryTool{}
}

func (t *CheckQueryTool) Name() string { return CheckQueryName }

func (t *CheckQueryTool) Description() string {
	return `Double check a query before running it.
Input: {"query": "SELECT ..."}
Output: "OK" with the normalized statement, or the reason it would be rejected.`
}

func (t *CheckQueryTool) Parameters() *llm.JSONSchema {
	return queryParameters("a single SELECT or WITH statement")
}

func (t *CheckQueryTool) Run(_ context.Context, input string) (string, error) {
	q, err := parseQueryInput(input)
	if err != nil {
		return "", err
	}
	normalized, err := store.ValidateReadOnly(q)
	if err != nil {
		return "", err
	}
	return "OK: " + normalized, nil
}

// RunQueryTool executes a read-only statement.
type RunQueryTool struct {
	db      store.StatsDB
	maxRows int
	log     *QueryLog
}

// NewRunQueryTool creates the run_query tool. log may be nil.
func NewRunQueryTool(db store.StatsDB, maxRows int, log *QueryLog) *RunQueryTool {
	if maxRows <= 0 {
		maxRows = 50
	}
	return &RunQueryTool{db: db, maxRows: maxRows, log: log}
}

func (t *RunQueryTool) Name() string { return RunQueryName }

func (t *RunQueryTool) Description() string {
	return fmt.Sprintf(`Execute a SQL query against the database and get back the result.
Input: {"query": "SELECT ..."}
Output: a pipe-separated table of at most %d rows.
If the query is not correct, an error message is returned; rewrite the query and try again.`, t.maxRows)
}

func (t *RunQueryTool) Parameters() *llm.JSONSchema {
	return queryParameters("a single read-only SELECT or WITH statement")
}

func (t *RunQueryTool) Run(ctx context.Context, input string) (string, error) {
	q, err := parseQueryInput(input)
	if err != nil {
		return "", err
	}
	result, err := t.db.Query(ctx, q, t.maxRows)
	if err != nil {
		return "", err
	}
	if t.log != nil {
		t.log.add(strings.TrimSpace(q))
	}
	return result.Format(), nil
}
