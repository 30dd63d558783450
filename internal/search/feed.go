package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// Feed is a search feed whose URL contains a {query} placeholder.
type Feed struct {
	Name        string
	URLTemplate string
}

// FeedSearcher searches RSS/Atom feeds that accept a query in the URL,
// such as hnrss.org or Reddit search RSS.
type FeedSearcher struct {
	feeds  []Feed
	client *http.Client
}

// NewFeedSearcher creates a FeedSearcher.
func NewFeedSearcher(feeds []Feed, timeout time.Duration) *FeedSearcher {
	return &FeedSearcher{feeds: feeds, client: &http.Client{Timeout: timeout}}
}

// Search queries every feed and returns up to count items from each.
// It fails only when every feed fails.
func (fs *FeedSearcher) Search(ctx context.Context, query string, count int) ([]Result, error) {
	// gofeed parsers keep per-parse state, so each call gets its own.
	parser := gofeed.NewParser()
	parser.Client = fs.client
	parser.UserAgent = "vocintel/1.0"

	var all []Result
	var lastErr error
	failed := 0

	for _, f := range fs.feeds {
		feedURL := strings.ReplaceAll(f.URLTemplate, "{query}", url.QueryEscape(query))
		feed, err := parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			zap.S().Warnf("Failed to parse feed %s: %v", f.Name, err)
			failed++
			lastErr = err
			continue
		}

		n := 0
		for _, item := range feed.Items {
			if n >= count {
				break
			}
			r, ok := resultFromItem(item)
			if !ok {
				continue
			}
			all = append(all, r)
			n++
		}
		zap.S().Debugf("Parsed %d entries from %s for query: %s", n, f.Name, query)
	}

	if len(fs.feeds) > 0 && failed == len(fs.feeds) {
		return nil, fmt.Errorf("all search feeds failed: %w", lastErr)
	}
	if all == nil {
		all = []Result{}
	}
	return all, nil
}

func resultFromItem(item *gofeed.Item) (Result, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return Result{}, false
	}

	age := unknownAge
	if item.PublishedParsed != nil {
		age = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		age = item.UpdatedParsed.Format("2006-01-02")
	}

	desc := item.Description
	if desc == "" {
		desc = item.Content
	}

	return Result{
		Title:       title,
		URL:         link,
		Description: stripHTML(desc),
		Age:         age,
		Source:      SourceFromURL(link),
	}, true
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(result.String())

	return strings.Join(strings.Fields(s), " ")
}
