package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/store"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$3", placeholder(3))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}

func TestRedact(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://grid:s3cret@db:5432/gridiron?sslmode=disable", "postgres://grid:***@db:5432/gridiron?sslmode=disable"},
		{"postgres://grid@db/gridiron", "postgres://grid@db/gridiron"},
		{"host=db user=grid dbname=gridiron", "host=db user=grid dbname=gridiron"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, redact(tt.dsn))
	}
}

func TestNewDB_RequiresDSN(t *testing.T) {
	_, err := NewDB(&profile.Profile{})
	assert.Error(t, err)
	_, err = NewDB(nil)
	assert.Error(t, err)
}

// TestQueryRecord_Integration runs against a live pgvector instance.
// Set GRIDIRON_TEST_POSTGRES_DSN to enable it.
func TestQueryRecord_Integration(t *testing.T) {
	dsn := os.Getenv("GRIDIRON_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GRIDIRON_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	driver, err := NewDB(&profile.Profile{DSN: dsn})
	require.NoError(t, err)
	defer driver.Close()
	require.NoError(t, driver.Migrate(ctx))

	since := time.Now().Unix()
	created, err := driver.CreateQueryRecord(ctx, &store.QueryRecord{
		Question: "Who won Super Bowl LVIII?", Answer: "The Chiefs.", Source: "web", Method: "single",
		Embedding: []float32{1, 0, 0}, EmbeddingModel: "integration-test",
	})
	require.NoError(t, err)

	list, err := driver.ListQueryRecords(ctx, &store.FindQueryRecord{ID: &created.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "The Chiefs.", list[0].Answer)

	hits, err := driver.FindSimilarQueries(ctx, &store.SimilarQueryOptions{
		Vector: []float32{1, 0, 0}, Model: "integration-test", Threshold: 0.99, Limit: 1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)

	hits, err = driver.FindSimilarQueries(ctx, &store.SimilarQueryOptions{
		Vector: []float32{1, 0, 0}, Model: "integration-test", Threshold: 0.99, Source: "database",
	})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, created.ID, h.ID)
	}

	stats, err := driver.GetSourceStats(ctx, since)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.BySource["web"], int64(1))
}
