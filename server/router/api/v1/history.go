package v1

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/gridiron/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	// maxFilterScan bounds how many records a filtered listing inspects.
	maxFilterScan = 2000
)

// historyEnv declares the variables a history filter can use, e.g.
// `source == "web" && web_score > 6.0` or `question.contains("Ravens")`.
var historyEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("method", cel.StringType),
		cel.Variable("question", cel.StringType),
		cel.Variable("answer", cel.StringType),
		cel.Variable("db_score", cel.DoubleType),
		cel.Variable("web_score", cel.DoubleType),
		cel.Variable("filtered", cel.BoolType),
		cel.Variable("failed", cel.BoolType),
		cel.Variable("duration_ms", cel.IntType),
		cel.Variable("created_ts", cel.IntType),
	)
})

// RecordFilter is a compiled history filter.
type RecordFilter struct {
	prg cel.Program
}

// CompileFilter parses and type-checks a CEL filter over history records.
func CompileFilter(expr string) (*RecordFilter, error) {
	env, err := historyEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter expression: %s", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("filter must be a boolean expression, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter program")
	}
	return &RecordFilter{prg: prg}, nil
}

// Match evaluates the filter against r.
func (f *RecordFilter) Match(r *store.QueryRecord) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{
		"id":          r.ID,
		"source":      r.Source,
		"method":      r.Method,
		"question":    r.Question,
		"answer":      r.Answer,
		"db_score":    r.DBScore,
		"web_score":   r.WebScore,
		"filtered":    r.Filtered,
		"failed":      r.Error != "",
		"duration_ms": r.DurationMs,
		"created_ts":  r.CreatedTs,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to evaluate filter")
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, errors.Errorf("filter returned %T, want bool", out.Value())
	}
	return ok, nil
}

// ListHistoryResponse is the answer to GET /api/v1/history.
type ListHistoryResponse struct {
	Records []*store.QueryRecord `json:"records"`
}

// ListHistory lists answered questions newest first, optionally narrowed by a CEL filter.
func (s *APIV1Service) ListHistory(c echo.Context) error {
	history, err := s.history()
	if err != nil {
		return err
	}
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	expr := c.QueryParam("filter")
	if expr == "" {
		records, err := history.ListQueryRecords(ctx, &store.FindQueryRecord{Limit: limit})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to list history").SetInternal(err)
		}
		return c.JSON(http.StatusOK, &ListHistoryResponse{Records: nonNil(records)})
	}

	filter, err := CompileFilter(expr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	matched := make([]*store.QueryRecord, 0, limit)
	for offset := 0; offset < maxFilterScan && len(matched) < limit; offset += maxHistoryLimit {
		page, err := history.ListQueryRecords(ctx, &store.FindQueryRecord{Limit: maxHistoryLimit, Offset: offset})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to list history").SetInternal(err)
		}
		for _, r := range page {
			ok, err := filter.Match(r)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			if ok {
				matched = append(matched, r)
				if len(matched) == limit {
					break
				}
			}
		}
		if len(page) < maxHistoryLimit {
			break
		}
	}
	return c.JSON(http.StatusOK, &ListHistoryResponse{Records: matched})
}

// GetHistory returns one answered question by id.
func (s *APIV1Service) GetHistory(c echo.Context) error {
	history, err := s.history()
	if err != nil {
		return err
	}
	id := c.Param("id")
	record, err := history.GetQueryRecord(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get history record").SetInternal(err)
	}
	if record == nil {
		return echo.NewHTTPError(http.StatusNotFound, "history record not found")
	}
	return c.JSON(http.StatusOK, record)
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("invalid limit %q", s)
	}
	return min(n, maxHistoryLimit), nil
}

func nonNil(records []*store.QueryRecord) []*store.QueryRecord {
	if records == nil {
		return []*store.QueryRecord{}
	}
	return records
}
