// Package fetch extracts the readable text of web pages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// minTextLen is the shortest extraction accepted as real page content.
const minTextLen = 100

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 4 << 20

// Result holds the results of a fetch run.
type Result struct {
	Fetched int
	Failed  int
	Skipped int
}

// ContentFetcher fetches page text via HTTP + readability extraction.
// Once a domain answers with an HTTP error, later URLs on it are skipped.
type ContentFetcher struct {
	client *http.Client

	mu            sync.Mutex
	failedDomains map[string]struct{}
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		failedDomains: make(map[string]struct{}),
	}
}

// HTTPError is returned for 4xx/5xx answers.
type HTTPError struct {
	URL  string
	Code int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetching %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Text returns the readable text of pageURL, or "" when nothing usable
// could be extracted.
func (f *ContentFetcher) Text(ctx context.Context, pageURL string) (string, error) {
	domain := domainOf(pageURL)
	if f.domainFailed(domain) {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "VoCIntel/1.0 (feedback research)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		f.markFailed(domain)
		return "", &HTTPError{URL: pageURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > minTextLen {
		return text, nil
	}
	return "", nil
}

// FetchAll fetches every URL and returns the texts that could be extracted.
func (f *ContentFetcher) FetchAll(ctx context.Context, urls []string) (map[string]string, *Result) {
	texts := make(map[string]string)
	result := &Result{}

	for _, u := range urls {
		if _, done := texts[u]; done {
			continue
		}
		if f.domainFailed(domainOf(u)) {
			result.Skipped++
			continue
		}

		text, err := f.Text(ctx, u)
		if err != nil {
			result.Failed++
			zap.S().Infof("HTTP error for %s, skipping remaining from %s", u, domainOf(u))
			continue
		}
		if text == "" {
			result.Failed++
			zap.S().Debugf("No extractable content from: %s", u)
			continue
		}
		texts[u] = text
		result.Fetched++
	}

	zap.S().Infof("Content fetch complete: %d fetched, %d failed, %d skipped", result.Fetched, result.Failed, result.Skipped)
	return texts, result
}

func (f *ContentFetcher) domainFailed(domain string) bool {
	if domain == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, failed := f.failedDomains[domain]
	return failed
}

func (f *ContentFetcher) markFailed(domain string) {
	if domain == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedDomains[domain] = struct{}{}
}

func domainOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
