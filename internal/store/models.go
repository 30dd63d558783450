package store

import (
	"strings"
	"time"
)

// Feedback sources.
const (
	SourceCallNotes = "call_notes"
	SourceSupport   = "support"
	SourceNPS       = "nps"
	SourceQBR       = "qbr"
	SourceEmail     = "email"
	SourceChat      = "chat"
	SourceWeb       = "web"
)

// ARR tiers.
const (
	TierEnterprise = "enterprise"
	TierMidMarket  = "mid_market"
	TierSMB        = "smb"
)

// Customer health states.
const (
	HealthHealthy = "healthy"
	HealthAtRisk  = "at_risk"
	HealthChurned = "churned"
)

// Feedback categories.
const (
	CategoryFeatureRequest = "feature_request"
	CategoryBug            = "bug"
	CategoryUseCaseGap     = "use_case_gap"
	CategoryPricing        = "pricing"
	CategoryCompetitive    = "competitive"
	CategoryPraise         = "praise"
	CategoryChurnSignal    = "churn_signal"
)

// Sentiments. Mixed only applies to web signals.
const (
	SentimentPositive   = "positive"
	SentimentNeutral    = "neutral"
	SentimentNegative   = "negative"
	SentimentFrustrated = "frustrated"
	SentimentMixed      = "mixed"
)

// Urgency levels.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

var (
	Sources          = []string{SourceCallNotes, SourceSupport, SourceNPS, SourceQBR, SourceEmail, SourceChat}
	ARRTiers         = []string{TierEnterprise, TierMidMarket, TierSMB}
	HealthStates     = []string{HealthHealthy, HealthAtRisk, HealthChurned}
	StrategicValues  = []string{"lighthouse", "standard", "low_touch"}
	Categories       = []string{CategoryFeatureRequest, CategoryBug, CategoryUseCaseGap, CategoryPricing, CategoryCompetitive, CategoryPraise, CategoryChurnSignal}
	Sentiments       = []string{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentFrustrated}
	SignalSentiments = []string{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentMixed}
	Urgencies        = []string{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
	Relevances       = []string{"high", "medium", "low"}
)

// Normalize lower-cases and trims v and reports whether it is one of allowed.
func Normalize(v string, allowed []string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v, true
		}
	}
	return v, false
}

// NormalizeSource accepts the legacy "slack" source as chat.
func NormalizeSource(v string) (string, bool) {
	v, ok := Normalize(v, Sources)
	if !ok && v == "slack" {
		return SourceChat, true
	}
	return v, ok
}

// FeedbackRecord is a classified piece of customer feedback.
type FeedbackRecord struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
	RawText        string    `json:"raw_text"`
	CustomerName   string    `json:"customer_name,omitempty"`
	ARRTier        string    `json:"arr_tier"`
	CustomerHealth string    `json:"customer_health"`
	StrategicValue string    `json:"strategic_value"`

	Category             string   `json:"category"`
	Sentiment            string   `json:"sentiment"`
	Urgency              string   `json:"urgency"`
	Summary              string   `json:"summary"`
	FeaturesMentioned    []string `json:"features_mentioned"`
	CompetitorsMentioned []string `json:"competitors_mentioned"`
	UseCase              string   `json:"use_case"`
}

func (r FeedbackRecord) RecordID() string { return r.ID }

// WebSignalRecord is a classified public web search result.
type WebSignalRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	WebSource   string    `json:"web_source"`
	WebURL      string    `json:"web_url"`
	Title       string    `json:"title"`
	RawText     string    `json:"raw_text"`
	Age         string    `json:"age"`
	SearchQuery string    `json:"search_query"`

	Theme                string   `json:"theme"`
	Sentiment            string   `json:"sentiment"`
	CompetitorsMentioned []string `json:"competitors_mentioned"`
	KeyPoints            []string `json:"key_points"`
	Relevance            string   `json:"relevance"`
}

func (r WebSignalRecord) RecordID() string { return r.ID }

// Theme is one ranked theme of a brief. A nil ARRImpact means the
// generator did not report one.
type Theme struct {
	Theme             string   `json:"theme"`
	Frequency         int      `json:"frequency"`
	ARRImpact         *float64 `json:"arr_impact"`
	Evidence          []string `json:"evidence"`
	RecommendedAction string   `json:"recommended_action"`
}

// Brief is a generated product brief over a selection of feedback.
type Brief struct {
	ID            string    `json:"id"`
	GeneratedAt   time.Time `json:"generated_at"`
	FeedbackCount int       `json:"feedback_count"`
	FeedbackIDs   []string  `json:"feedback_ids"`

	ExecutiveSummary       string  `json:"executive_summary"`
	Themes                 []Theme `json:"themes"`
	WebCorrelation         string  `json:"web_correlation,omitempty"`
	PriorityRecommendation string  `json:"priority_recommendation,omitempty"`
}

func (b Brief) RecordID() string { return b.ID }
