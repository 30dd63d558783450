package search

import (
	"context"
	"errors"
)

// MultiSearcher concatenates the results of several searchers in order.
type MultiSearcher []Searcher

// Search fails only if every searcher fails.
func (m MultiSearcher) Search(ctx context.Context, query string, count int) ([]Result, error) {
	all := []Result{}
	var errs []error
	for _, s := range m {
		results, err := s.Search(ctx, query, count)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, results...)
	}
	if len(m) > 0 && len(errs) == len(m) {
		return nil, errors.Join(errs...)
	}
	return all, nil
}
