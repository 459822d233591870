package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/gridiron/ai/agents/orchestrator"
)

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question      string `json:"question"`
	Mode          string `json:"mode,omitempty"`
	ShowReasoning bool   `json:"show_reasoning,omitempty"`
	NoCache       bool   `json:"no_cache,omitempty"`
}

// Scores are the heuristic scores of both answers; zero for an agent that did not run.
type Scores struct {
	Database float64 `json:"database"`
	Web      float64 `json:"web"`
}

// AskResponse is the answer to POST /api/v1/ask.
type AskResponse struct {
	ID         string                     `json:"id,omitempty"`
	TraceID    string                     `json:"trace_id"`
	Answer     string                     `json:"answer"`
	AnswerHTML string                     `json:"answer_html"`
	Error      string                     `json:"error,omitempty"`
	Mode       string                     `json:"mode"`
	Source     string                     `json:"source,omitempty"`
	Method     string                     `json:"method"`
	Scores     Scores                     `json:"scores"`
	Filtered   bool                       `json:"filtered"`
	Cached     bool                       `json:"cached"`
	SQL        []string                   `json:"sql,omitempty"`
	Sources    []string                   `json:"sources,omitempty"`
	Reasoning  []string                   `json:"reasoning,omitempty"`
	Timings    []orchestrator.StageTiming `json:"timings,omitempty"`
	DurationMs int64                      `json:"duration_ms"`
}

// Ask answers one question.
func (s *APIV1Service) Ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	mode, err := orchestrator.ParseMode(req.Mode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if s.AskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AskTimeout)
		defer cancel()
	}

	res, err := s.Asker.Ask(ctx, orchestrator.Request{
		Question:      req.Question,
		Mode:          mode,
		ShowReasoning: req.ShowReasoning,
		SkipCache:     req.NoCache,
	})
	if err != nil {
		return askError(err)
	}

	out := &AskResponse{
		ID:         res.ID,
		TraceID:    res.TraceID,
		Answer:     res.Answer,
		Error:      res.ErrorText(),
		Mode:       string(res.Mode),
		Source:     string(res.Source),
		Method:     res.Method,
		Scores:     Scores{Database: res.DBScore, Web: res.WebScore},
		Filtered:   res.Filtered,
		Cached:     res.Cached,
		SQL:        res.SQL,
		Sources:    res.Sources,
		Reasoning:  res.Reasoning,
		Timings:    res.Timings,
		DurationMs: res.Duration.Milliseconds(),
	}
	if out.AnswerHTML, err = s.Markdown.RenderHTML(res.Answer); err != nil {
		slog.Warn("failed to render answer", "trace_id", res.TraceID, "error", err)
	}
	return c.JSON(http.StatusOK, out)
}

func askError(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyQuestion), errors.Is(err, orchestrator.ErrUnknownMode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrAgentUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "answering took too long")
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never seen.
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request canceled")
	default:
		slog.Error("ask failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer the question")
	}
}
