package store

// QueryRecord is one answered (or refused) question.
type QueryRecord struct {
	ID       string  `json:"id"`
	TraceID  string  `json:"trace_id"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Source   string  `json:"source"` // database, web or "" when no agent answered
	Method   string  `json:"method"` // arbitration method, "routed" or "filtered"
	DBScore  float64 `json:"db_score"`
	WebScore float64 `json:"web_score"`
	Filtered bool    `json:"filtered"`
	// Error is the failure message when no usable answer was produced.
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedTs  int64  `json:"created_ts"`

	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"-"`
}

// FindQueryRecord specifies conditions for listing query records.
// Results are ordered newest first.
type FindQueryRecord struct {
	ID           *string
	Source       *string
	Filtered     *bool
	CreatedAfter int64
	Limit        int
	Offset       int
}

// SimilarQueryOptions configures a nearest-question lookup.
// Only successful, unfiltered records with an embedding from Model are candidates.
type SimilarQueryOptions struct {
	Vector       []float32
	Model        string
	Threshold    float32 // minimum cosine similarity
	Limit        int
	CreatedAfter int64
	Source       string // only records answered by this source; empty means any
}

// QueryRecordWithScore is a similar-question hit.
type QueryRecordWithScore struct {
	*QueryRecord
	Score float32 `json:"score"`
}

// SourceStats aggregates history since a point in time.
type SourceStats struct {
	Since         int64            `json:"since"`
	Total         int64            `json:"total"`
	Filtered      int64            `json:"filtered"`
	Failed        int64            `json:"failed"`
	BySource      map[string]int64 `json:"by_source"`
	ByMethod      map[string]int64 `json:"by_method"`
	AvgDBScore    float64          `json:"avg_db_score"`
	AvgWebScore   float64          `json:"avg_web_score"`
	AvgDurationMs float64          `json:"avg_duration_ms"`
}
