// Package aggregate derives dashboard statistics, clusters, filters and
// brief presets from stored records. Every function is pure.
package aggregate

import (
	"fmt"
	"math"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

var tierValues = map[string]float64{
	store.TierEnterprise: 100000,
	store.TierMidMarket:  50000,
	store.TierSMB:        15000,
}

// TierValue is the nominal ARR of a tier; unknown tiers are worth 0.
func TierValue(tier string) float64 {
	return tierValues[tier]
}

// TotalARR sums the tier value of every record.
func TotalARR(records []store.FeedbackRecord) float64 {
	total := 0.0
	for _, r := range records {
		total += TierValue(r.ARRTier)
	}
	return total
}

// IsAtRisk reports whether a record counts towards at-risk ARR: the
// customer is at risk or the feedback is a churn signal.
func IsAtRisk(r store.FeedbackRecord) bool {
	return r.CustomerHealth == store.HealthAtRisk || r.Category == store.CategoryChurnSignal
}

// AtRiskARR sums the tier value of at-risk records, each counted once.
func AtRiskARR(records []store.FeedbackRecord) float64 {
	total := 0.0
	for _, r := range records {
		if IsAtRisk(r) {
			total += TierValue(r.ARRTier)
		}
	}
	return total
}

// FormatCurrency renders compact dollars: $1.2M, $215K, $900.
func FormatCurrency(v float64) string {
	switch {
	case v >= 1000000:
		return fmt.Sprintf("$%.1fM", v/1000000)
	case v >= 1000:
		return fmt.Sprintf("$%.0fK", v/1000)
	default:
		return fmt.Sprintf("$%s", trimFloat(v))
	}
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%g", v)
}
