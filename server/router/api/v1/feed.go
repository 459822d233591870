package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/gridiron/internal/strutil"
	"github.com/hrygo/gridiron/store"
)

const feedSize = 30

// HistoryFeed serves recently answered questions as RSS 2.0.
// Refused and failed questions are left out.
func (s *APIV1Service) HistoryFeed(c echo.Context) error {
	history, err := s.history()
	if err != nil {
		return err
	}
	filtered := false
	records, err := history.ListQueryRecords(c.Request().Context(), &store.FindQueryRecord{
		Filtered: &filtered,
		Limit:    feedSize * 2,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list history").SetInternal(err)
	}

	base := strings.TrimRight(s.instanceURL(c), "/")
	feed := &feeds.Feed{
		Title:       "gridiron: recently answered NFL questions",
		Link:        &feeds.Link{Href: base + "/"},
		Description: "Questions answered from NFL play-by-play statistics and the web",
		Created:     s.now(),
	}
	for _, r := range records {
		if r.Error != "" {
			continue
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          r.ID,
			Title:       strutil.Truncate(r.Question, 120),
			Link:        &feeds.Link{Href: base + "/api/v1/history?filter=" + url.QueryEscape(fmt.Sprintf("id == %q", r.ID))},
			Description: r.Answer,
			Created:     time.Unix(r.CreatedTs, 0).UTC(),
		})
		if len(feed.Items) == feedSize {
			break
		}
	}
	if len(feed.Items) > 0 {
		feed.Updated = feed.Items[0].Created
	}

	rss, err := feed.ToRss()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render feed").SetInternal(err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func (s *APIV1Service) instanceURL(c echo.Context) string {
	if s.Profile != nil && s.Profile.InstanceURL != "" {
		return s.Profile.InstanceURL
	}
	return c.Scheme() + "://" + c.Request().Host
}
