// Package routing decides whether a question is in scope and which data source and table should serve it.
package routing

import "context"

// Route is the data source chosen for a question.
type Route string

const (
	RouteDatabase Route = "database"
	RouteWeb      Route = "web"
)

// Stage names the relevance filter layer that produced a verdict.
type Stage string

const (
	StageKeyword  Stage = "keyword"
	StageLLM      Stage = "llm"
	StageFallback Stage = "fallback" // classifier unavailable or unparseable, question let through
)

// Verdict is the outcome of the relevance filter.
type Verdict struct {
	Relevant bool     `json:"relevant"`
	Stage    Stage    `json:"stage"`
	Keywords []string `json:"keywords,omitempty"`
	Reason   string   `json:"reason"`
	Cached   bool     `json:"cached,omitempty"`
}

// MatchResult contains the result of rule-based source matching.
type MatchResult struct {
	Route      Route    // Selected source
	Keywords   []string // Trigger keywords that decided the route
	Confidence float32  // Confidence score (0-1)
	Matched    bool     // Whether any rule keyword matched
}

// RelevanceChecker screens questions before any agent runs.
type RelevanceChecker interface {
	CheckRelevance(ctx context.Context, question string) (Verdict, error)
}

// SourceSelector picks the data source for single-route mode.
type SourceSelector interface {
	SelectSource(question string) MatchResult
}

// TableSelector picks the table guidance handed to the database agent.
type TableSelector interface {
	SelectTable(question string) TableContext
}
