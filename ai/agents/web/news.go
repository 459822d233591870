package web

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hrygo/gridiron/ai/internal/nfl"
	"github.com/hrygo/gridiron/internal/strutil"
)

// newsMarkers flag questions about recent events, where league news feeds help.
var newsMarkers = strutil.NewKeywordSet(
	"news", "latest", "recent", "recently", "today", "tonight", "this week", "injury", "injured",
	"injuries", "trade", "traded", "trades", "rumor", "rumors", "signed", "signs", "released",
	"free agent", "free agency", "fired", "hired", "suspended", "announced", "currently", "right now",
)

// stopWords are long words too common to match headlines on.
var stopWords = strutil.NewKeywordSet(
	"which", "where", "about", "there", "their", "these", "those", "would", "could", "should",
	"after", "before", "being", "still", "going", "first", "think",
)

// IsNewsQuestion reports whether news headlines are worth fetching for question.
func IsNewsQuestion(question string) bool {
	return newsMarkers.Contains(question)
}

// NewsFeeds reads league news from RSS/Atom feeds.
type NewsFeeds struct {
	urls   []string
	parser *gofeed.Parser
	maxAge time.Duration
	now    func() time.Time
}

// NewNewsFeeds creates a feed reader over urls. Items older than maxAge are skipped (default 14 days).
func NewNewsFeeds(urls []string, client *http.Client, maxAge time.Duration) *NewsFeeds {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	return &NewsFeeds{urls: urls, parser: parser, maxAge: maxAge, now: time.Now}
}

func (n *NewsFeeds) Name() string { return "news" }

type scoredItem struct {
	result    SearchResult
	overlap   int
	published time.Time
}

// Search returns the headlines that share terms with query, best match first.
// A feed that fails to load is skipped; the call fails only when every feed failed.
func (n *NewsFeeds) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 3
	}
	terms := queryTerms(query)
	cutoff := n.now().Add(-n.maxAge)

	var items []scoredItem
	var lastErr error
	loaded := 0
	for _, u := range n.urls {
		feed, err := n.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			slog.Warn("news feed unavailable", "url", u, "error", err)
			lastErr = err
			continue
		}
		loaded++
		for _, item := range feed.Items {
			published := itemTime(item)
			if !published.IsZero() && published.Before(cutoff) {
				continue
			}
			text := strings.ToLower(item.Title + " " + item.Description)
			overlap := 0
			for _, term := range terms {
				if strings.Contains(text, term) {
					overlap++
				}
			}
			if overlap == 0 {
				continue
			}
			items = append(items, scoredItem{
				result: SearchResult{
					Title:   strings.TrimSpace(item.Title),
					URL:     item.Link,
					Snippet: strutil.Truncate(htmlText(item.Description), 300),
				},
				overlap:   overlap,
				published: published,
			})
		}
	}
	if loaded == 0 && lastErr != nil {
		return nil, lastErr
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].overlap != items[j].overlap {
			return items[i].overlap > items[j].overlap
		}
		return items[i].published.After(items[j].published)
	})
	results := make([]SearchResult, 0, min(len(items), maxResults))
	for _, it := range items[:min(len(items), maxResults)] {
		results = append(results, it.result)
	}
	return results, nil
}

func itemTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed
	default:
		return time.Time{}
	}
}

// queryTerms keeps team names and the longer words of the question.
func queryTerms(query string) []string {
	terms := nfl.TeamNames.Find(query)
	for _, w := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(w) >= 5 && !newsMarkers.Contains(w) && !stopWords.Contains(w) && !slices.Contains(terms, w) {
			terms = append(terms, w)
		}
	}
	return terms
}

// htmlText flattens an HTML fragment (feed descriptions often carry markup) to plain text.
func htmlText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return textContent(doc)
}
