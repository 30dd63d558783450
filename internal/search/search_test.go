package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.reddit.com/r/LocalLLaMA/comments/1": "Reddit",
		"https://old.reddit.com/r/x":                      "Reddit",
		"https://news.ycombinator.com/item?id=1":          "Hacker News",
		"https://twitter.com/someone/status/1":            "X/Twitter",
		"https://x.com/someone":                           "X/Twitter",
		"https://github.com/mistralai/client":             "GitHub",
		"https://medium.com/@a/b":                         "Medium",
		"https://dev.to/a/b":                              "Dev.to",
		"https://stackoverflow.com/questions/1":           "Stack Overflow",
		"https://www.theverge.com/ai":                     "theverge.com",
		"https://netflix.com/":                            "netflix.com",
		"not a url":                                       "Web",
		"":                                                "Web",
	}
	for in, want := range cases {
		assert.Equal(t, want, SourceFromURL(in), in)
	}
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/res/v1/web/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Subscription-Token"))
		q := r.URL.Query()
		assert.Equal(t, "Mistral AI", q.Get("q"))
		assert.Equal(t, "5", q.Get("count"))
		assert.Equal(t, "pm", q.Get("freshness"))
		assert.Equal(t, "false", q.Get("text_decorations"))
		assert.Equal(t, "en", q.Get("search_lang"))
		io.WriteString(w, `{"web":{"results":[
			{"title":"Mistral on HN","url":"https://news.ycombinator.com/item?id=1","description":"desc","age":"2 days ago"},
			{"title":"No age","url":"https://www.example.com/a","description":"d2"}
		]}}`)
	}))
	defer srv.Close()

	c := NewBraveClient(srv.URL, "secret", 5*time.Second)
	c.Freshness = "pm"
	c.SearchLang = "en"

	results, err := c.Search(context.Background(), "Mistral AI", 5)
	require.NoError(t, err)

	want := []Result{
		{Title: "Mistral on HN", URL: "https://news.ycombinator.com/item?id=1", Description: "desc", Age: "2 days ago", Source: "Hacker News"},
		{Title: "No age", URL: "https://www.example.com/a", Description: "d2", Age: "Unknown", Source: "example.com"},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestBraveSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	results, err := NewBraveClient(srv.URL, "k", time.Second).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestBraveSearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"type":"ErrorResponse"}`)
	}))
	defer srv.Close()

	_, err := NewBraveClient(srv.URL, "k", time.Second).Search(context.Background(), "q", 5)

	var serr *SearchError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusTooManyRequests, serr.StatusCode)
	assert.Equal(t, "q", serr.Query)
	assert.Contains(t, serr.Body, "ErrorResponse")
}

func TestBraveNotConfigured(t *testing.T) {
	_, err := NewBraveClient("", "", time.Second).Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBraveRawForwardsOnlyQueryAndCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "q=hello&count=3", r.URL.RawQuery)
		io.WriteString(w, `{"web":{"results":[]}}`)
	}))
	defer srv.Close()

	c := NewBraveClient(srv.URL, "k", time.Second)
	c.Freshness = "pm"
	body, err := c.Raw(context.Background(), "hello", 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"web":{"results":[]}}`, string(body))
}

const rssDoc = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>hn</title>
<item><title>Mistral releases model</title><link>https://news.ycombinator.com/item?id=7</link>
<description>&lt;p&gt;Big &amp;amp; fast&lt;/p&gt;</description><pubDate>Mon, 02 Feb 2026 10:00:00 GMT</pubDate></item>
<item><title>Second</title><link>https://example.org/b</link></item>
<item><title>Third</title><link>https://example.org/c</link></item>
</channel></rss>`

func TestFeedSearcher(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, rssDoc)
	}))
	defer srv.Close()

	fs := NewFeedSearcher([]Feed{{Name: "HN", URLTemplate: srv.URL + "/newest?q={query}"}}, time.Second)
	results, err := fs.Search(context.Background(), "Mistral AI", 2)
	require.NoError(t, err)

	assert.Equal(t, "Mistral AI", gotQuery)
	require.Len(t, results, 2)
	assert.Equal(t, "Hacker News", results[0].Source)
	assert.Equal(t, "2026-02-02", results[0].Age)
	assert.Equal(t, "Big & fast", results[0].Description)
	assert.Equal(t, "Unknown", results[1].Age)
}

func TestFeedSearcherAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fs := NewFeedSearcher([]Feed{{Name: "bad", URLTemplate: srv.URL + "?q={query}"}}, time.Second)
	_, err := fs.Search(context.Background(), "x", 5)
	assert.Error(t, err)
}

type fakeSearcher struct {
	results map[string][]Result
	errs    map[string]error
	calls   atomic.Int32
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]Result, error) {
	f.calls.Add(1)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func TestMultiSearcher(t *testing.T) {
	ok := &fakeSearcher{results: map[string][]Result{"q": {{Title: "a"}}}}
	bad := &fakeSearcher{errs: map[string]error{"q": errors.New("down")}}

	results, err := MultiSearcher{bad, ok}.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = MultiSearcher{bad, bad}.Search(context.Background(), "q", 5)
	assert.Error(t, err)
}

// A failing first query must not stop the second.
func TestRunBatchPartialFailure(t *testing.T) {
	queries := []Query{
		{ID: "general", Label: "General Mentions", Query: "fails"},
		{ID: "pricing", Label: "Pricing", Query: "works"},
	}
	for _, concurrency := range []int{1, 4} {
		s := &fakeSearcher{
			results: map[string][]Result{"works": {{Title: "r1"}, {Title: "r2"}}},
			errs:    map[string]error{"fails": &SearchError{Query: "fails", StatusCode: 500, Body: "boom"}},
		}

		got := RunBatch(context.Background(), s, queries, 5, concurrency)

		require.Len(t, got, 2)
		assert.Equal(t, "general", got[0].QueryID)
		assert.Empty(t, got[0].Results)
		assert.NotNil(t, got[0].Results)
		assert.Contains(t, got[0].Error, "500")
		assert.Equal(t, "Pricing", got[1].QueryLabel)
		assert.Len(t, got[1].Results, 2)
		assert.Empty(t, got[1].Error)
		assert.EqualValues(t, 2, s.calls.Load())
	}
}

func TestRunBatchPreservesOrder(t *testing.T) {
	s := &fakeSearcher{results: map[string][]Result{}}
	var queries []Query
	for _, id := range strings.Split("a b c d e f g h", " ") {
		queries = append(queries, Query{ID: id, Label: id, Query: id})
		s.results[id] = []Result{{Title: id}}
	}

	got := RunBatch(context.Background(), s, queries, 5, 3)
	for i, q := range queries {
		assert.Equal(t, q.ID, got[i].QueryID)
		assert.Equal(t, q.ID, got[i].Results[0].Title)
	}
}

func TestSelect(t *testing.T) {
	presets := []Query{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := Select(presets, []string{"c", "a", "zzz"})
	assert.Equal(t, []Query{{ID: "a"}, {ID: "c"}}, got)
}

func TestNew(t *testing.T) {
	s, brave, err := New(Options{Provider: "both", APIKey: "k", Timeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, MultiSearcher{}, s)
	assert.True(t, brave.IsConfigured())

	_, _, err = New(Options{Provider: "bing"})
	assert.Error(t, err)
}
