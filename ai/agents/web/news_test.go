package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>League News</title>
<item>
  <title>Ravens sign veteran linebacker</title>
  <link>https://news.example.com/ravens-sign-lb</link>
  <description>&lt;p&gt;Baltimore &lt;b&gt;signed&lt;/b&gt; a veteran linebacker on Friday.&lt;/p&gt;</description>
  <pubDate>Fri, 05 Sep 2025 15:00:00 +0000</pubDate>
</item>
<item>
  <title>Chiefs injury report: Mahomes limited</title>
  <link>https://news.example.com/mahomes-limited</link>
  <description>Patrick Mahomes was limited in practice with an ankle issue.</description>
  <pubDate>Sat, 06 Sep 2025 12:00:00 +0000</pubDate>
</item>
<item>
  <title>Old Ravens story</title>
  <link>https://news.example.com/old</link>
  <description>From the summer.</description>
  <pubDate>Sun, 01 Jun 2025 12:00:00 +0000</pubDate>
</item>
</channel></rss>`

func newTestNews(t *testing.T, urls ...string) *NewsFeeds {
	t.Helper()
	n := NewNewsFeeds(urls, nil, 0)
	n.now = func() time.Time { return time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC) }
	return n
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, newsFeed)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewsFeeds_Search(t *testing.T) {
	srv := feedServer(t)
	news := newTestNews(t, srv.URL+"/broken", srv.URL+"/rss")
	assert.Equal(t, "news", news.Name())

	results, err := news.Search(context.Background(), "Latest Ravens news", 3)
	require.NoError(t, err)
	require.Len(t, results, 1, "old items are skipped")
	assert.Equal(t, "Ravens sign veteran linebacker", results[0].Title)
	assert.Equal(t, "Baltimore signed a veteran linebacker on Friday.", results[0].Snippet)

	results, err = news.Search(context.Background(), "Is Mahomes injured this week?", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://news.example.com/mahomes-limited", results[0].URL)
}

func TestNewsFeeds_AllFeedsFail(t *testing.T) {
	srv := feedServer(t)
	_, err := newTestNews(t, srv.URL+"/broken").Search(context.Background(), "Ravens news", 3)
	assert.Error(t, err)
}

func TestIsNewsQuestion(t *testing.T) {
	assert.True(t, IsNewsQuestion("Any injury updates on the Bills?"))
	assert.True(t, IsNewsQuestion("Who did the Jets sign in free agency?"))
	assert.False(t, IsNewsQuestion("Who led the league in rushing yards in 2021?"))
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"ravens", "linebacker"}, queryTerms("Which linebacker did the Ravens sign?"))
}
