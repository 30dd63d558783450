// Package collect turns operator input and search hits into classified,
// stored records.
package collect

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/classify"
	"github.com/TobiSchelling/VoCIntel/internal/search"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// FeedbackInput is what an operator submits for one piece of feedback.
// Empty enum fields take the form defaults.
type FeedbackInput struct {
	Text           string `json:"text"`
	Source         string `json:"source"`
	CustomerName   string `json:"customer_name"`
	ARRTier        string `json:"arr_tier"`
	CustomerHealth string `json:"customer_health"`
	StrategicValue string `json:"strategic_value"`
}

// Collector classifies and stores feedback and web signals.
type Collector struct {
	store   *store.Store
	gateway *classify.Gateway

	now   func() time.Time
	newID func() string
}

// NewCollector creates a new collector.
func NewCollector(s *store.Store, g *classify.Gateway) *Collector {
	return &Collector{
		store:   s,
		gateway: g,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// SubmitFeedback validates the input, classifies the text and stores the
// resulting record. Nothing is stored when any step fails.
func (c *Collector) SubmitFeedback(ctx context.Context, in FeedbackInput) (*store.FeedbackRecord, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	cls, err := c.gateway.ClassifyFeedback(ctx, in.Text)
	if err != nil {
		return nil, err
	}

	rec := store.FeedbackRecord{
		ID:                   c.newID(),
		Timestamp:            c.now().UTC(),
		Source:               in.Source,
		RawText:              in.Text,
		CustomerName:         in.CustomerName,
		ARRTier:              in.ARRTier,
		CustomerHealth:       in.CustomerHealth,
		StrategicValue:       in.StrategicValue,
		Category:             cls.Category,
		Sentiment:            cls.Sentiment,
		Urgency:              cls.Urgency,
		Summary:              cls.Summary,
		FeaturesMentioned:    cls.FeaturesMentioned,
		CompetitorsMentioned: cls.CompetitorsMentioned,
		UseCase:              cls.UseCase,
	}
	if _, err := c.store.Feedback.Append(ctx, rec); err != nil {
		return nil, err
	}

	zap.S().Infof("Stored feedback [%s/%s]: %s", rec.Category, rec.Sentiment, rec.Summary)
	return &rec, nil
}

// AnalyzeResult classifies one search hit and stores it as a web signal.
// pageText, when non-empty, is appended to the text sent for analysis.
func (c *Collector) AnalyzeResult(ctx context.Context, r search.Result, queryLabel, pageText string) (*store.WebSignalRecord, error) {
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Description) == "" {
		return nil, &classify.ValidationError{Message: "search result has no title or description"}
	}

	rawText := r.Title + "\n\n" + r.Description
	analyzed := rawText
	if pageText != "" {
		analyzed += "\n\n" + pageText
	}

	source := r.Source
	if source == "" {
		source = search.SourceFromURL(r.URL)
	}

	a, err := c.gateway.AnalyzeWebSignal(ctx, analyzed, source)
	if err != nil {
		return nil, err
	}

	rec := store.WebSignalRecord{
		ID:                   c.newID(),
		Timestamp:            c.now().UTC(),
		Source:               store.SourceWeb,
		WebSource:            source,
		WebURL:               r.URL,
		Title:                r.Title,
		RawText:              rawText,
		Age:                  r.Age,
		SearchQuery:          queryLabel,
		Theme:                a.Theme,
		Sentiment:            a.Sentiment,
		CompetitorsMentioned: a.CompetitorsMentioned,
		KeyPoints:            a.KeyPoints,
		Relevance:            a.Relevance,
	}
	if _, err := c.store.Signals.Append(ctx, rec); err != nil {
		return nil, err
	}

	zap.S().Infof("Stored web signal [%s/%s]: %s", rec.WebSource, rec.Sentiment, rec.Title)
	return &rec, nil
}

func normalizeInput(in FeedbackInput) (FeedbackInput, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return in, &classify.ValidationError{Message: "feedback text is empty"}
	}
	in.CustomerName = strings.TrimSpace(in.CustomerName)

	var ok bool
	if in.Source, ok = store.NormalizeSource(withDefault(in.Source, store.SourceCallNotes)); !ok {
		return in, &classify.ValidationError{Message: "invalid source: " + in.Source}
	}
	if in.ARRTier, ok = store.Normalize(withDefault(in.ARRTier, store.TierMidMarket), store.ARRTiers); !ok {
		return in, &classify.ValidationError{Message: "invalid arr_tier: " + in.ARRTier}
	}
	if in.CustomerHealth, ok = store.Normalize(withDefault(in.CustomerHealth, store.HealthHealthy), store.HealthStates); !ok {
		return in, &classify.ValidationError{Message: "invalid customer_health: " + in.CustomerHealth}
	}
	if in.StrategicValue, ok = store.Normalize(withDefault(in.StrategicValue, "standard"), store.StrategicValues); !ok {
		return in, &classify.ValidationError{Message: "invalid strategic_value: " + in.StrategicValue}
	}
	return in, nil
}

func withDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
