package aggregate

import (
	"slices"
	"strings"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

const (
	maxFeatureClusters = 10
	maxCompetitors     = 8
)

// FeatureCluster groups every mention of one feature, case-insensitively.
// Feature keeps the casing of the first mention.
type FeatureCluster struct {
	Feature    string         `json:"feature"`
	Count      int            `json:"count"`
	TotalARR   float64        `json:"total_arr"`
	Sentiments map[string]int `json:"sentiments"`
	ItemIDs    []string       `json:"item_ids"`
}

// FeatureClusters returns the top clusters by ARR-weighted total.
func FeatureClusters(records []store.FeedbackRecord) []FeatureCluster {
	index := make(map[string]int)
	clusters := []FeatureCluster{}
	for _, r := range records {
		for _, feature := range r.FeaturesMentioned {
			key := strings.ToLower(feature)
			i, ok := index[key]
			if !ok {
				i = len(clusters)
				index[key] = i
				clusters = append(clusters, FeatureCluster{
					Feature: feature,
					Sentiments: map[string]int{
						store.SentimentPositive:   0,
						store.SentimentNeutral:    0,
						store.SentimentNegative:   0,
						store.SentimentFrustrated: 0,
					},
				})
			}
			c := &clusters[i]
			c.Count++
			c.TotalARR += TierValue(r.ARRTier)
			c.Sentiments[r.Sentiment]++
			c.ItemIDs = append(c.ItemIDs, r.ID)
		}
	}

	slices.SortStableFunc(clusters, func(a, b FeatureCluster) int {
		return compareDesc(a.TotalARR, b.TotalARR)
	})
	if len(clusters) > maxFeatureClusters {
		clusters = clusters[:maxFeatureClusters]
	}
	return clusters
}

// CompetitorMention counts mentions of one competitor, split by origin.
type CompetitorMention struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Internal int    `json:"internal"`
	External int    `json:"external"`
}

// CompetitorMentions tallies competitors across feedback (internal) and
// web signals (external) and returns the most mentioned.
func CompetitorMentions(feedback []store.FeedbackRecord, signals []store.WebSignalRecord) []CompetitorMention {
	index := make(map[string]int)
	mentions := []CompetitorMention{}

	add := func(names []string, external bool) {
		for _, name := range names {
			key := strings.ToLower(name)
			i, ok := index[key]
			if !ok {
				i = len(mentions)
				index[key] = i
				mentions = append(mentions, CompetitorMention{Name: name})
			}
			m := &mentions[i]
			m.Count++
			if external {
				m.External++
			} else {
				m.Internal++
			}
		}
	}

	for _, r := range feedback {
		add(r.CompetitorsMentioned, r.Source == store.SourceWeb)
	}
	for _, s := range signals {
		add(s.CompetitorsMentioned, s.Source == store.SourceWeb || s.WebSource != "")
	}

	slices.SortStableFunc(mentions, func(a, b CompetitorMention) int {
		return b.Count - a.Count
	})
	if len(mentions) > maxCompetitors {
		mentions = mentions[:maxCompetitors]
	}
	return mentions
}

func compareDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
