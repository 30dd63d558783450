package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/TobiSchelling/VoCIntel/internal/classify"
	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/config"
	"github.com/TobiSchelling/VoCIntel/internal/llm"
	"github.com/TobiSchelling/VoCIntel/internal/search"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

type mockProvider struct {
	response string
	calls    int
}

func (m *mockProvider) Generate(_ context.Context, _ llm.Request) (string, error) {
	m.calls++
	return m.response, nil
}

func (m *mockProvider) Name() string { return "mock" }

// fakeSearcher answers by query text and fails for queries in fail.
type fakeSearcher struct {
	results map[string][]search.Result
	fail    map[string]bool
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	if f.fail[query] {
		return nil, &search.SearchError{Query: query, StatusCode: 429, Body: "rate limited"}
	}
	return f.results[query], nil
}

const analysis = `{"theme":"API pricing","sentiment":"mixed","competitors_mentioned":["OpenAI"],"key_points":["cheaper"],"relevance":"high"}`

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Search.Queries = []config.SearchQuery{
		{ID: "general", Label: "General Mentions", Query: "Mistral AI"},
		{ID: "pricing", Label: "Pricing", Query: "Mistral AI pricing"},
	}
	return cfg
}

func newTestPipeline(t *testing.T, s search.Searcher, p llm.Provider) (*Pipeline, *store.Store) {
	t.Helper()
	st := store.NewMemory()
	c := collect.NewCollector(st, classify.NewGateway(p, "Mistral AI"))
	return New(testConfig(), st, s, c), st
}

func TestRunContinuesAfterFailedQuery(t *testing.T) {
	s := &fakeSearcher{
		fail: map[string]bool{"Mistral AI": true},
		results: map[string][]search.Result{
			"Mistral AI pricing": {
				{Title: "Mistral pricing thread", URL: "https://www.reddit.com/r/LocalLLaMA/1", Description: "cheaper than GPT", Source: "Reddit"},
				{Title: "HN", URL: "https://news.ycombinator.com/item?id=1", Description: "pricing", Source: "Hacker News"},
			},
		},
	}
	p := &mockProvider{response: analysis}
	pl, st := newTestPipeline(t, s, p)

	r := pl.Run(context.Background(), Options{})

	if len(r.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(r.Batches))
	}
	if r.Batches[0].Error == "" || len(r.Batches[0].Results) != 0 {
		t.Errorf("first batch should carry the error: %+v", r.Batches[0])
	}
	if len(r.Batches[1].Results) != 2 {
		t.Errorf("second batch should succeed: %+v", r.Batches[1])
	}
	for _, step := range r.Steps {
		if step.Err != nil {
			t.Errorf("step %s failed: %v", step.Name, step.Err)
		}
	}

	signals, _ := st.Signals.List(context.Background())
	if len(signals) != 2 || p.calls != 2 {
		t.Fatalf("expected 2 stored signals and 2 calls, got %d and %d", len(signals), p.calls)
	}
	if signals[0].SearchQuery != "Pricing" {
		t.Errorf("expected query label on signal, got %q", signals[0].SearchQuery)
	}
}

func TestRunSkipsStoredURLs(t *testing.T) {
	res := search.Result{Title: "Mistral", URL: "https://dev.to/post", Description: "review"}
	s := &fakeSearcher{results: map[string][]search.Result{
		"Mistral AI":         {res},
		"Mistral AI pricing": {res},
	}}
	p := &mockProvider{response: analysis}
	pl, _ := newTestPipeline(t, s, p)

	pl.Run(context.Background(), Options{})
	if p.calls != 1 {
		t.Fatalf("expected duplicate URL to be analyzed once, got %d calls", p.calls)
	}

	r := pl.Run(context.Background(), Options{})
	if p.calls != 1 || len(r.Signals) != 0 {
		t.Errorf("second run should find nothing new, got %d calls", p.calls)
	}
}

func TestRunKeepsResultsWithoutURL(t *testing.T) {
	s := &fakeSearcher{results: map[string][]search.Result{
		"Mistral AI": {
			{Title: "First thread", Description: "latency complaints"},
			{Title: "Second thread", Description: "pricing praise"},
		},
	}}
	p := &mockProvider{response: analysis}
	pl, _ := newTestPipeline(t, s, p)

	r := pl.Run(context.Background(), Options{QueryIDs: []string{"general"}})
	if p.calls != 2 || len(r.Signals) != 2 {
		t.Errorf("expected both URL-less results analyzed, got %d calls and %d signals", p.calls, len(r.Signals))
	}
}

func TestRunAllQueriesFail(t *testing.T) {
	s := &fakeSearcher{fail: map[string]bool{"Mistral AI": true, "Mistral AI pricing": true}}
	p := &mockProvider{response: analysis}
	pl, _ := newTestPipeline(t, s, p)

	r := pl.Run(context.Background(), Options{})
	if len(r.Steps) != 1 || r.Steps[0].Err == nil {
		t.Fatalf("expected search step to fail, got %+v", r.Steps)
	}
	if p.calls != 0 {
		t.Errorf("expected no analysis, got %d calls", p.calls)
	}
}

func TestRunUnknownQueryID(t *testing.T) {
	pl, _ := newTestPipeline(t, &fakeSearcher{}, &mockProvider{})
	r := pl.Run(context.Background(), Options{QueryIDs: []string{"nope"}})
	if len(r.Steps) != 1 || r.Steps[0].Err == nil {
		t.Fatalf("expected an error for unknown query id, got %+v", r.Steps)
	}
}

func TestRunAnalysisFailure(t *testing.T) {
	s := &fakeSearcher{results: map[string][]search.Result{
		"Mistral AI": {{Title: "A", URL: "https://a.example", Description: "x"}},
	}}
	pl, st := newTestPipeline(t, s, &mockProvider{response: "not json"})

	r := pl.Run(context.Background(), Options{QueryIDs: []string{"general"}})
	last := r.Steps[len(r.Steps)-1]
	var perr *classify.ParseError
	if !errors.As(last.Err, &perr) {
		t.Fatalf("expected ParseError from analyze step, got %v", last.Err)
	}
	signals, _ := st.Signals.List(context.Background())
	if len(signals) != 0 {
		t.Errorf("nothing should be stored, got %d", len(signals))
	}
}

// offlineSearcher fails the test if it is ever called.
type offlineSearcher struct{ t *testing.T }

func (o offlineSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	o.t.Errorf("unexpected search for %q", query)
	return nil, nil
}

func TestDryRun(t *testing.T) {
	p := &mockProvider{}
	pl, _ := newTestPipeline(t, offlineSearcher{t}, p)

	r := pl.DryRun(context.Background(), Options{Count: 3})
	if len(r.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(r.Steps))
	}
	if !strings.Contains(r.Steps[0].Summary, "2 queries, up to 3 results") {
		t.Errorf("unexpected summary %q", r.Steps[0].Summary)
	}
	if p.calls != 0 {
		t.Error("dry run must not call the provider")
	}
}
