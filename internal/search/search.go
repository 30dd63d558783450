// Package search finds public web mentions through a web search API and
// query-parameterised RSS/Atom feeds.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Result is one ranked search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age"`
	Source      string `json:"source"`
}

// Searcher runs a single query.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// Query is a named preset search.
type Query struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Query string `json:"query"`
}

// ErrNotConfigured is returned when a searcher lacks its API key.
var ErrNotConfigured = errors.New("search API key not configured")

// SearchError reports a non-2xx answer from the search API.
type SearchError struct {
	Query      string
	StatusCode int
	Body       string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search API returned %d for %q: %s", e.StatusCode, e.Query, e.Body)
}

const unknownAge = "Unknown"

// Options configures New.
type Options struct {
	Provider   string // brave, feeds, both
	BaseURL    string
	APIKey     string
	Freshness  string
	SearchLang string
	Timeout    time.Duration
	Feeds      []Feed
}

// New builds the configured searcher. The Brave client is always returned
// so that callers can proxy raw queries through it.
func New(opts Options) (Searcher, *BraveClient, error) {
	brave := NewBraveClient(opts.BaseURL, opts.APIKey, opts.Timeout)
	brave.Freshness = opts.Freshness
	brave.SearchLang = opts.SearchLang

	switch opts.Provider {
	case "", "brave":
		return brave, brave, nil
	case "feeds":
		return NewFeedSearcher(opts.Feeds, opts.Timeout), brave, nil
	case "both":
		return MultiSearcher{brave, NewFeedSearcher(opts.Feeds, opts.Timeout)}, brave, nil
	default:
		return nil, nil, fmt.Errorf("unknown search provider: %s", opts.Provider)
	}
}
