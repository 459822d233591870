// Package v1 serves the question-answering HTTP API.
package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/gridiron/ai/agents/orchestrator"
	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/store"
)

// Asker answers questions. *orchestrator.Orchestrator satisfies it.
type Asker interface {
	Ask(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

// HistoryReader reads answered questions. *store.Store satisfies it.
type HistoryReader interface {
	ListQueryRecords(ctx context.Context, find *store.FindQueryRecord) ([]*store.QueryRecord, error)
	GetQueryRecord(ctx context.Context, id string) (*store.QueryRecord, error)
	GetSourceStats(ctx context.Context, since int64) (*store.SourceStats, error)
}

// APIV1Service holds the handlers of /api/v1.
type APIV1Service struct {
	Profile    *profile.Profile
	Asker      Asker
	History    HistoryReader // optional; history routes answer 503 without it
	Markdown   *MarkdownService
	AskTimeout time.Duration

	now func() time.Time
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, asker Asker, history HistoryReader) *APIV1Service {
	return &APIV1Service{
		Profile:    p,
		Asker:      asker,
		History:    history,
		Markdown:   NewMarkdownService(),
		AskTimeout: 3 * time.Minute,
		now:        time.Now,
	}
}

// RegisterRoutes mounts the API on g. askMiddleware wraps only the ask route.
func (s *APIV1Service) RegisterRoutes(g *echo.Group, askMiddleware ...echo.MiddlewareFunc) {
	g.POST("/ask", s.Ask, askMiddleware...)
	g.GET("/history", s.ListHistory)
	g.GET("/history/feed.rss", s.HistoryFeed)
	g.GET("/history/:id", s.GetHistory)
	g.GET("/stats", s.Stats)
}

func (s *APIV1Service) history() (HistoryReader, error) {
	if s.History == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "history is disabled")
	}
	return s.History, nil
}
