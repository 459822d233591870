package store

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
		ok    bool
	}{
		{"select", "SELECT COUNT(*) FROM nflfastR_pbp;", "SELECT COUNT(*) FROM nflfastR_pbp", true},
		{"lowercase with", "with t as (select 1) select * from t", "with t as (select 1) select * from t", true},
		{"keyword inside literal", "SELECT * FROM plays WHERE desc = 'pass; DROP TABLE x'", "SELECT * FROM plays WHERE desc = 'pass; DROP TABLE x'", true},
		{"replace function", "SELECT REPLACE(posteam, 'LA', 'LAR') FROM team_stats", "SELECT REPLACE(posteam, 'LA', 'LAR') FROM team_stats", true},
		{"updated_at column", `SELECT "updated_at" FROM team_stats`, `SELECT "updated_at" FROM team_stats`, true},
		{"empty", "  ;  ", "", false},
		{"delete", "DELETE FROM team_stats", "", false},
		{"two statements", "SELECT 1; DROP TABLE team_stats", "", false},
		{"pragma", "PRAGMA table_info(team_stats)", "", false},
		{"attach", "SELECT 1 FROM (SELECT 1) ATTACH", "", false},
		{"writable cte", "WITH d AS (DELETE FROM team_stats RETURNING *) SELECT * FROM d", "", false},
		{"select into", "SELECT * INTO backup FROM team_stats", "", false},
		{"comment hides nothing", "/* hi */ SELECT 1 -- trailing", "/* hi */ SELECT 1 -- trailing", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateReadOnly(tt.query)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsafeQuery))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryResult_Format(t *testing.T) {
	r := &QueryResult{Columns: []string{"posteam", "wins"}, Rows: [][]string{{"KC", "14"}, {"BAL", "13"}}}
	assert.Equal(t, "posteam | wins\nKC | 14\nBAL | 13\n(2 rows)", r.Format())

	r.Truncated = true
	assert.Contains(t, r.Format(), "(truncated to 2 rows)")

	empty := &QueryResult{Columns: []string{"x"}}
	assert.Equal(t, "x\n(0 rows)", empty.Format())

	var nilResult *QueryResult
	assert.Equal(t, "(no columns)", nilResult.Format())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", formatValue(nil))
	assert.Equal(t, "KC", formatValue([]byte("KC")))
	assert.Equal(t, "0.4512", formatValue(0.45123))
	assert.Equal(t, "3.5", formatValue(3.5))
	assert.Equal(t, "100", formatValue(100.0))
	assert.Equal(t, "0", formatValue(0.0))
	assert.Equal(t, "42", formatValue(int64(42)))
}

func TestFilterTables(t *testing.T) {
	known, unknown := FilterTables([]string{" TEAM_STATS", "plays", "", "nflfastR_pbp"}, []string{"nflfastR_pbp", "team_stats"})
	assert.Equal(t, []string{"team_stats", "nflfastR_pbp"}, known)
	assert.Equal(t, []string{"plays"}, unknown)
}
