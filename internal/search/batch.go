package search

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one preset query. Error is empty on success.
type BatchResult struct {
	QueryID    string   `json:"queryId"`
	QueryLabel string   `json:"queryLabel"`
	Results    []Result `json:"results"`
	Error      string   `json:"error,omitempty"`
}

// RunBatch runs every query and returns one BatchResult per query in input
// order. A failing query never stops the others. With concurrency <= 1 the
// queries run one after another.
func RunBatch(ctx context.Context, s Searcher, queries []Query, count, concurrency int) []BatchResult {
	out := make([]BatchResult, len(queries))

	run := func(i int) {
		q := queries[i]
		br := BatchResult{QueryID: q.ID, QueryLabel: q.Label, Results: []Result{}}
		results, err := s.Search(ctx, q.Query, count)
		if err != nil {
			zap.S().Warnf("Error searching for %s: %v", q.Label, err)
			br.Error = err.Error()
		} else if results != nil {
			br.Results = results
		}
		out[i] = br
	}

	if concurrency <= 1 {
		for i := range queries {
			run(i)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range queries {
		g.Go(func() error {
			run(i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Select returns the presets whose ids are in ids, in preset order.
func Select(presets []Query, ids []string) []Query {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Query
	for _, q := range presets {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out
}
