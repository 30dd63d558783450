package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const BraveBaseURL = "https://api.search.brave.com"

// BraveClient queries the Brave web search API.
type BraveClient struct {
	BaseURL    string
	Freshness  string // pd, pw, pm, py; empty for no limit
	SearchLang string
	apiKey     string
	client     *http.Client
}

// NewBraveClient creates a new Brave client.
func NewBraveClient(baseURL, apiKey string, timeout time.Duration) *BraveClient {
	if baseURL == "" {
		baseURL = BraveBaseURL
	}
	return &BraveClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured returns whether the API key is available.
func (c *BraveClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Search runs a web search and maps the hits to Results.
func (c *BraveClient) Search(ctx context.Context, query string, count int) ([]Result, error) {
	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	}
	if c.Freshness != "" {
		params.Set("freshness", c.Freshness)
	}
	if c.SearchLang != "" {
		params.Set("search_lang", c.SearchLang)
	}
	params.Set("text_decorations", "false")

	body, err := c.get(ctx, query, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
				Age         string `json:"age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]Result, 0, len(result.Web.Results))
	for _, r := range result.Web.Results {
		age := r.Age
		if age == "" {
			age = unknownAge
		}
		results = append(results, Result{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
			Age:         age,
			Source:      SourceFromURL(r.URL),
		})
	}

	zap.S().Debugf("Fetched %d results from Brave for query: %s", len(results), query)
	return results, nil
}

// Raw forwards q and count unchanged and returns the upstream JSON body.
func (c *BraveClient) Raw(ctx context.Context, query string, count int) ([]byte, error) {
	return c.get(ctx, query, url.Values{
		"q":     {query},
		"count": {strconv.Itoa(count)},
	})
}

func (c *BraveClient) get(ctx context.Context, query string, params url.Values) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/res/v1/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SearchError{Query: query, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
