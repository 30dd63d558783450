// Package pipeline runs the web-signal harvest: search preset queries,
// optionally fetch page text, then analyze and store every new result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/config"
	"github.com/TobiSchelling/VoCIntel/internal/fetch"
	"github.com/TobiSchelling/VoCIntel/internal/search"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full harvest run.
type Result struct {
	Batches []search.BatchResult
	Signals []store.WebSignalRecord
	Steps   []StepResult
}

// Options narrows a harvest run.
type Options struct {
	QueryIDs   []string `json:"query_ids"`   // empty runs every preset
	Count      int      `json:"count"`       // results per query; 0 uses the configured count
	MaxAnalyze int      `json:"max_analyze"` // 0 analyzes every new result
}

// Pipeline orchestrates the 3-step harvest.
type Pipeline struct {
	cfg       *config.Config
	store     *store.Store
	searcher  search.Searcher
	collector *collect.Collector
	fetcher   *fetch.ContentFetcher
}

// New creates a new pipeline. Page text is fetched only when the config
// enables it.
func New(cfg *config.Config, s *store.Store, searcher search.Searcher, collector *collect.Collector) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		store:     s,
		searcher:  searcher,
		collector: collector,
	}
	if cfg.Search.FetchContent {
		p.fetcher = fetch.NewContentFetcher(time.Duration(cfg.Search.TimeoutSeconds) * time.Second)
	}
	return p
}

// Presets returns the configured preset queries.
func Presets(cfg *config.Config) []search.Query {
	out := make([]search.Query, 0, len(cfg.Search.Queries))
	for _, q := range cfg.Search.Queries {
		out = append(out, search.Query{ID: q.ID, Label: q.Label, Query: q.Query})
	}
	return out
}

type hit struct {
	result search.Result
	label  string
}

// Run executes the harvest. A failed query or analysis is recorded and the
// run continues.
func (p *Pipeline) Run(ctx context.Context, opts Options) *Result {
	r := &Result{}

	queries, err := p.queries(opts)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Search", Err: err})
		return r
	}

	// Step 1: Search
	hits, step := p.runSearch(ctx, r, queries, opts)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 2: Fetch content
	var texts map[string]string
	if p.fetcher != nil {
		texts, step = p.runFetch(ctx, hits)
		r.Steps = append(r.Steps, step)
	}

	// Step 3: Analyze
	step = p.runAnalyze(ctx, r, hits, texts)
	r.Steps = append(r.Steps, step)

	return r
}

// DryRun shows what would be done without calling any external service.
func (p *Pipeline) DryRun(ctx context.Context, opts Options) *Result {
	r := &Result{}

	queries, err := p.queries(opts)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Search", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Search",
		Summary: fmt.Sprintf("[dry-run] %d queries, up to %d results each", len(queries), p.count(opts)),
	})

	if p.fetcher != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Fetch", Summary: "[dry-run] Would fetch page text for new results"})
	}

	existing, _ := p.store.Signals.List(ctx)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("[dry-run] %d web signals already stored", len(existing)),
	})
	return r
}

func (p *Pipeline) queries(opts Options) ([]search.Query, error) {
	presets := Presets(p.cfg)
	if len(opts.QueryIDs) == 0 {
		return presets, nil
	}
	selected := search.Select(presets, opts.QueryIDs)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no preset queries match %v", opts.QueryIDs)
	}
	return selected, nil
}

func (p *Pipeline) count(opts Options) int {
	if opts.Count > 0 {
		return opts.Count
	}
	if p.cfg.Search.ResultCount > 0 {
		return p.cfg.Search.ResultCount
	}
	return 5
}

func (p *Pipeline) runSearch(ctx context.Context, r *Result, queries []search.Query, opts Options) ([]hit, StepResult) {
	zap.S().Infof("Step 1/3: Searching %d preset queries...", len(queries))
	r.Batches = search.RunBatch(ctx, p.searcher, queries, p.count(opts), p.cfg.Search.Concurrency)

	existing, err := p.store.Signals.List(ctx)
	if err != nil {
		return nil, StepResult{Name: "Search", Err: err}
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		if s.WebURL != "" {
			seen[s.WebURL] = true
		}
	}

	var hits []hit
	var total, failed, dupes int
	for _, b := range r.Batches {
		if b.Error != "" {
			failed++
			continue
		}
		for _, res := range b.Results {
			total++
			// hits without a URL cannot be matched against each other
			if res.URL != "" {
				if seen[res.URL] {
					dupes++
					continue
				}
				seen[res.URL] = true
			}
			hits = append(hits, hit{result: res, label: b.QueryLabel})
		}
	}

	if failed == len(r.Batches) && failed > 0 {
		return nil, StepResult{Name: "Search", Err: fmt.Errorf("all %d queries failed", failed)}
	}
	if opts.MaxAnalyze > 0 && len(hits) > opts.MaxAnalyze {
		hits = hits[:opts.MaxAnalyze]
	}
	return hits, StepResult{
		Name:    "Search",
		Summary: fmt.Sprintf("Found %d results (%d new, %d already stored, %d queries failed)", total, len(hits), dupes, failed),
	}
}

func (p *Pipeline) runFetch(ctx context.Context, hits []hit) (map[string]string, StepResult) {
	zap.S().Info("Step 2/3: Fetching page content...")
	urls := make([]string, 0, len(hits))
	for _, h := range hits {
		urls = append(urls, h.result.URL)
	}
	texts, result := p.fetcher.FetchAll(ctx, urls)
	return texts, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d pages, %d failed, %d skipped", result.Fetched, result.Failed, result.Skipped),
	}
}

func (p *Pipeline) runAnalyze(ctx context.Context, r *Result, hits []hit, texts map[string]string) StepResult {
	zap.S().Infof("Step 3/3: Analyzing %d results...", len(hits))
	var failed int
	var lastErr error
	for _, h := range hits {
		if ctx.Err() != nil {
			return StepResult{Name: "Analyze", Err: ctx.Err()}
		}
		rec, err := p.collector.AnalyzeResult(ctx, h.result, h.label, texts[h.result.URL])
		if err != nil {
			zap.S().Warnf("Error analyzing %s: %v", h.result.URL, err)
			failed++
			lastErr = err
			continue
		}
		r.Signals = append(r.Signals, *rec)
	}

	step := StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("Stored %d web signals, %d failed", len(r.Signals), failed),
	}
	if failed > 0 && len(r.Signals) == 0 {
		step.Err = fmt.Errorf("every analysis failed: %w", lastErr)
	}
	return step
}
