package aggregate

import (
	"time"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// PreviewSize is how many filtered records the dashboard lists.
const PreviewSize = 10

var categoryLabels = map[string]string{
	store.CategoryFeatureRequest: "Feature Request",
	store.CategoryBug:            "Bug Report",
	store.CategoryUseCaseGap:     "Use Case Gap",
	store.CategoryPricing:        "Pricing/Packaging",
	store.CategoryCompetitive:    "Competitive Intel",
	store.CategoryPraise:         "Praise",
	store.CategoryChurnSignal:    "Churn Signal",
}

// CategoryLabel is the display name of a category.
func CategoryLabel(category string) string {
	if l, ok := categoryLabels[category]; ok {
		return l
	}
	return category
}

// DashboardView is every statistic shown on the dashboard. Headline stats,
// clusters and competitors cover the whole collection; the filter narrows
// only FilteredItems and Preview.
type DashboardView struct {
	Filter          Filter                 `json:"filter"`
	TotalItems      int                    `json:"total_items"`
	FilteredItems   int                    `json:"filtered_items"`
	SignalCount     int                    `json:"signal_count"`
	TotalARR        float64                `json:"total_arr"`
	AtRiskARR       float64                `json:"at_risk_arr"`
	Categories      []Count                `json:"categories"`
	Sentiments      []Count                `json:"sentiments"`
	Tiers           []Count                `json:"tiers"`
	FeatureClusters []FeatureCluster       `json:"feature_clusters"`
	Competitors     []CompetitorMention    `json:"competitors"`
	Preview         []store.FeedbackRecord `json:"preview"`
}

// Dashboard computes the dashboard over all feedback and applies filter to
// the item list. Web signals contribute only to competitor mentions.
func Dashboard(feedback []store.FeedbackRecord, signals []store.WebSignalRecord, filter Filter, now time.Time) DashboardView {
	filtered := filter.Apply(feedback, now)

	preview := filtered
	if len(preview) > PreviewSize {
		preview = preview[:PreviewSize]
	}

	return DashboardView{
		Filter:          filter,
		TotalItems:      len(feedback),
		FilteredItems:   len(filtered),
		SignalCount:     len(signals),
		TotalARR:        TotalARR(feedback),
		AtRiskARR:       AtRiskARR(feedback),
		Categories:      CategoryCounts(feedback),
		Sentiments:      SentimentCounts(feedback),
		Tiers:           TierCounts(feedback),
		FeatureClusters: FeatureClusters(feedback),
		Competitors:     CompetitorMentions(feedback, signals),
		Preview:         preview,
	}
}
