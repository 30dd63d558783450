package aggregate

import (
	"time"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// Preset is a named selection template for brief generation.
type Preset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Filter      Filter `json:"filter"`
}

// Presets returns the built-in brief templates.
func Presets() []Preset {
	return []Preset{
		{
			ID:          "enterprise_churn",
			Name:        "Enterprise Churn Risk",
			Description: "Enterprise accounts showing churn signals",
			Icon:        "🚨",
			Filter: Filter{
				Tiers:      []string{store.TierEnterprise},
				Categories: []string{store.CategoryChurnSignal},
			},
		},
		{
			ID:          "feature_requests",
			Name:        "Feature Requests Summary",
			Description: "All feature requests across segments",
			Icon:        "✨",
			Filter:      Filter{Categories: []string{store.CategoryFeatureRequest}},
		},
		{
			ID:          "competitive_intel",
			Name:        "Competitive Intelligence",
			Description: "Competitive mentions and comparisons",
			Icon:        "🎯",
			Filter:      Filter{Categories: []string{store.CategoryCompetitive}},
		},
		{
			ID:          "enterprise_all",
			Name:        "Enterprise Overview",
			Description: "All feedback from enterprise customers",
			Icon:        "🏢",
			Filter:      Filter{Tiers: []string{store.TierEnterprise}},
		},
		{
			ID:          "bugs_urgent",
			Name:        "Critical Bugs",
			Description: "High and critical urgency bug reports",
			Icon:        "🐛",
			Filter: Filter{
				Categories: []string{store.CategoryBug},
				Urgencies:  []string{store.UrgencyHigh, store.UrgencyCritical},
			},
		},
		{
			ID:          "negative_sentiment",
			Name:        "Negative Feedback",
			Description: "Frustrated and negative sentiment",
			Icon:        "😟",
			Filter:      Filter{Sentiments: []string{store.SentimentNegative, store.SentimentFrustrated}},
		},
	}
}

// PresetByID looks up a built-in preset.
func PresetByID(id string) (Preset, bool) {
	for _, p := range Presets() {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Select returns the ids of the records the preset matches. Presets carry
// no date range, so the reference time is irrelevant.
func (p Preset) Select(records []store.FeedbackRecord) []string {
	ids := []string{}
	for _, r := range records {
		if p.Filter.Matches(r, time.Time{}) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// PresetCount pairs a preset with the number of records it currently matches.
type PresetCount struct {
	Preset
	Count int `json:"count"`
}

// PresetCounts gives the live match count of every preset.
func PresetCounts(records []store.FeedbackRecord) []PresetCount {
	presets := Presets()
	counts := make([]PresetCount, 0, len(presets))
	for _, p := range presets {
		counts = append(counts, PresetCount{Preset: p, Count: len(p.Select(records))})
	}
	return counts
}
