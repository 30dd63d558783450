package aggregate

import (
	"fmt"
	"slices"
	"time"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// Date ranges accepted by Filter.
const (
	RangeAll = "all"
	Range7d  = "7d"
	Range30d = "30d"
	Range90d = "90d"
)

var rangeDays = map[string]int{
	Range7d:  7,
	Range30d: 30,
	Range90d: 90,
}

// Filter narrows feedback. Values within a field are ORed and fields are
// ANDed. An empty field, or one containing "all", matches everything.
type Filter struct {
	DateRange  string   `json:"date_range"`
	Categories []string `json:"categories,omitempty"`
	Tiers      []string `json:"tiers,omitempty"`
	Sentiments []string `json:"sentiments,omitempty"`
	Urgencies  []string `json:"urgencies,omitempty"`
}

// Validate rejects unknown date ranges.
func (f Filter) Validate() error {
	if f.DateRange == "" || f.DateRange == RangeAll {
		return nil
	}
	if _, ok := rangeDays[f.DateRange]; !ok {
		return fmt.Errorf("unknown date range %q (use all, 7d, 30d or 90d)", f.DateRange)
	}
	return nil
}

// IsEmpty reports whether the filter matches every record.
func (f Filter) IsEmpty() bool {
	_, dated := rangeDays[f.DateRange]
	return !dated && matchAll(f.Categories) && matchAll(f.Tiers) &&
		matchAll(f.Sentiments) && matchAll(f.Urgencies)
}

// Matches reports whether r passes the filter. Age is measured in whole
// days before now.
func (f Filter) Matches(r store.FeedbackRecord, now time.Time) bool {
	if limit, ok := rangeDays[f.DateRange]; ok {
		if daysSince(r.Timestamp, now) > limit {
			return false
		}
	}
	return in(f.Categories, r.Category) &&
		in(f.Tiers, r.ARRTier) &&
		in(f.Sentiments, r.Sentiment) &&
		in(f.Urgencies, r.Urgency)
}

// Apply returns the matching records in their original order.
func (f Filter) Apply(records []store.FeedbackRecord, now time.Time) []store.FeedbackRecord {
	out := []store.FeedbackRecord{}
	if f.IsEmpty() {
		return append(out, records...)
	}
	for _, r := range records {
		if f.Matches(r, now) {
			out = append(out, r)
		}
	}
	return out
}

func daysSince(ts, now time.Time) int {
	return int(now.Sub(ts) / (24 * time.Hour))
}

func matchAll(values []string) bool {
	return len(values) == 0 || slices.Contains(values, RangeAll)
}

func in(values []string, v string) bool {
	return matchAll(values) || slices.Contains(values, v)
}
