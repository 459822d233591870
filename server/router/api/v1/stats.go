package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	defaultStatsHours = 24
	maxStatsHours     = 24 * 365
)

// Stats aggregates history over the last `hours` hours (default 24).
func (s *APIV1Service) Stats(c echo.Context) error {
	history, err := s.history()
	if err != nil {
		return err
	}
	hours := defaultStatsHours
	if v := c.QueryParam("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxStatsHours {
			return echo.NewHTTPError(http.StatusBadRequest, "hours must be between 1 and 8760")
		}
		hours = n
	}

	since := s.now().Add(-time.Duration(hours) * time.Hour).Unix()
	stats, err := history.GetSourceStats(c.Request().Context(), since)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute stats").SetInternal(err)
	}
	return c.JSON(http.StatusOK, stats)
}
