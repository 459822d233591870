package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/gridiron/store"
)

const queryRecordColumns = `id, trace_id, question, answer, source, method, db_score, web_score,
	filtered, error, duration_ms, created_ts`

// CreateQueryRecord inserts a record, assigning ID and CreatedTs when unset.
func (d *DB) CreateQueryRecord(ctx context.Context, create *store.QueryRecord) (*store.QueryRecord, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	var embedding any
	if len(create.Embedding) > 0 {
		embedding = pgvector.NewVector(create.Embedding)
	}

	stmt := `INSERT INTO query_record (` + queryRecordColumns + `, embedding, embedding_model)
		VALUES (` + placeholders(14) + `)`
	_, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.TraceID, create.Question, create.Answer, create.Source, create.Method,
		create.DBScore, create.WebScore, create.Filtered, create.Error, create.DurationMs, create.CreatedTs,
		embedding, create.EmbeddingModel,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create query record")
	}
	return create, nil
}

// ListQueryRecords lists records newest first.
func (d *DB) ListQueryRecords(ctx context.Context, find *store.FindQueryRecord) ([]*store.QueryRecord, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id::text = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Source != nil {
		where, args = append(where, "source = "+placeholder(len(args)+1)), append(args, *find.Source)
	}
	if find.Filtered != nil {
		where, args = append(where, "filtered = "+placeholder(len(args)+1)), append(args, *find.Filtered)
	}
	if find.CreatedAfter > 0 {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, find.CreatedAfter)
	}

	query := `SELECT ` + queryRecordColumns + ` FROM query_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
		if find.Offset > 0 {
			query += " OFFSET " + placeholder(len(args)+1)
			args = append(args, find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list query records")
	}
	defer rows.Close()

	list := []*store.QueryRecord{}
	for rows.Next() {
		record, err := scanQueryRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanQueryRecord(rows *sql.Rows, extra ...any) (*store.QueryRecord, error) {
	var r store.QueryRecord
	dest := append([]any{
		&r.ID, &r.TraceID, &r.Question, &r.Answer, &r.Source, &r.Method, &r.DBScore, &r.WebScore,
		&r.Filtered, &r.Error, &r.DurationMs, &r.CreatedTs,
	}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan query record")
	}
	return &r, nil
}

// FindSimilarQueries performs vector similarity search using pgvector.
func (d *DB) FindSimilarQueries(ctx context.Context, opts *store.SimilarQueryOptions) ([]*store.QueryRecordWithScore, error) {
	if len(opts.Vector) == 0 {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	// The <=> operator computes cosine distance (1 - cosine_similarity)
	// So we order by distance ASC to get most similar first
	vector := pgvector.NewVector(opts.Vector)
	where := []string{
		"embedding IS NOT NULL",
		"embedding_model = " + placeholder(2),
		"NOT filtered",
		"error = ''",
		"answer <> ''",
		"1 - (embedding <=> " + placeholder(1) + ") >= " + placeholder(3),
	}
	args := []any{vector, opts.Model, opts.Threshold}
	if opts.CreatedAfter > 0 {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, opts.CreatedAfter)
	}
	if opts.Source != "" {
		where, args = append(where, "source = "+placeholder(len(args)+1)), append(args, opts.Source)
	}

	query := `SELECT ` + queryRecordColumns + `, 1 - (embedding <=> ` + placeholder(1) + `) AS score
		FROM query_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> ` + placeholder(1) + `
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find similar queries")
	}
	defer rows.Close()

	results := []*store.QueryRecordWithScore{}
	for rows.Next() {
		var score float32
		record, err := scanQueryRecord(rows, &score)
		if err != nil {
			return nil, err
		}
		results = append(results, &store.QueryRecordWithScore{QueryRecord: record, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetSourceStats aggregates records created at or after since.
func (d *DB) GetSourceStats(ctx context.Context, since int64) (*store.SourceStats, error) {
	stats := &store.SourceStats{Since: since, BySource: map[string]int64{}, ByMethod: map[string]int64{}}

	err := d.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE filtered),
		COUNT(*) FILTER (WHERE error <> ''),
		COALESCE(AVG(db_score) FILTER (WHERE NOT filtered), 0),
		COALESCE(AVG(web_score) FILTER (WHERE NOT filtered), 0),
		COALESCE(AVG(duration_ms), 0)
		FROM query_record WHERE created_ts >= `+placeholder(1), since).Scan(
		&stats.Total, &stats.Filtered, &stats.Failed, &stats.AvgDBScore, &stats.AvgWebScore, &stats.AvgDurationMs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get source stats")
	}

	for column, into := range map[string]map[string]int64{"source": stats.BySource, "method": stats.ByMethod} {
		if err := d.countBy(ctx, column, since, into); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// countBy groups non-empty values of column; column is one of a fixed set of names.
func (d *DB) countBy(ctx context.Context, column string, since int64, into map[string]int64) error {
	rows, err := d.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM query_record
		WHERE created_ts >= `+placeholder(1)+` AND `+column+` <> '' GROUP BY `+column, since)
	if err != nil {
		return errors.Wrapf(err, "failed to count by %s", column)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return errors.Wrapf(err, "failed to scan %s count", column)
		}
		into[key] = count
	}
	return rows.Err()
}
