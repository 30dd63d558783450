package aggregate

import (
	"slices"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// Count is one group of a group-by-count.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// CountBy groups records by field and orders groups by descending count.
// Ties keep first-seen order.
func CountBy(records []store.FeedbackRecord, field func(store.FeedbackRecord) string) []Count {
	index := make(map[string]int)
	counts := []Count{}
	for _, r := range records {
		key := field(r)
		i, ok := index[key]
		if !ok {
			i = len(counts)
			index[key] = i
			counts = append(counts, Count{Key: key})
		}
		counts[i].Count++
	}
	slices.SortStableFunc(counts, func(a, b Count) int {
		return b.Count - a.Count
	})
	return counts
}

func CategoryCounts(records []store.FeedbackRecord) []Count {
	return CountBy(records, func(r store.FeedbackRecord) string { return r.Category })
}

func SentimentCounts(records []store.FeedbackRecord) []Count {
	return CountBy(records, func(r store.FeedbackRecord) string { return r.Sentiment })
}

func TierCounts(records []store.FeedbackRecord) []Count {
	return CountBy(records, func(r store.FeedbackRecord) string { return r.ARRTier })
}
