// Package classify turns free text into structured records by prompting an
// LLM for a JSON object and validating the answer.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/llm"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// maxSignalChars bounds web content sent for analysis.
const maxSignalChars = 4000

// FeedbackClassification is the classifier's view of a feedback text.
type FeedbackClassification struct {
	Category             string   `json:"category" jsonschema:"enum=feature_request,enum=bug,enum=use_case_gap,enum=pricing,enum=competitive,enum=praise,enum=churn_signal"`
	FeaturesMentioned    []string `json:"features_mentioned"`
	CompetitorsMentioned []string `json:"competitors_mentioned"`
	UseCase              string   `json:"use_case"`
	Sentiment            string   `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative,enum=frustrated"`
	Urgency              string   `json:"urgency" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	Summary              string   `json:"summary"`
}

// SignalAnalysis is the classifier's view of a public web signal.
type SignalAnalysis struct {
	Theme                string   `json:"theme"`
	Sentiment            string   `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative,enum=mixed"`
	CompetitorsMentioned []string `json:"competitors_mentioned"`
	KeyPoints            []string `json:"key_points"`
	Relevance            string   `json:"relevance" jsonschema:"enum=high,enum=medium,enum=low"`
}

// BriefContent is the generated part of a brief.
type BriefContent struct {
	ExecutiveSummary       string        `json:"executive_summary"`
	Themes                 []store.Theme `json:"themes"`
	WebCorrelation         string        `json:"web_correlation,omitempty"`
	PriorityRecommendation string        `json:"priority_recommendation,omitempty"`
}

// Gateway runs the three classification tasks against one provider.
type Gateway struct {
	provider llm.Provider

	Product             string
	ClassifyTemperature float64
	BriefTemperature    float64
	MaxTokens           int
	EmbedSchema         bool
}

// NewGateway creates a gateway with the default temperatures.
func NewGateway(provider llm.Provider, product string) *Gateway {
	return &Gateway{
		provider:            provider,
		Product:             product,
		ClassifyTemperature: 0.1,
		BriefTemperature:    0.3,
		EmbedSchema:         true,
	}
}

// ClassifyFeedback classifies one feedback text.
func (g *Gateway) ClassifyFeedback(ctx context.Context, text string) (*FeedbackClassification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Message: "feedback text is empty"}
	}

	prompt := fmt.Sprintf(feedbackPrompt, g.schema(&FeedbackClassification{}), text)

	var c FeedbackClassification
	content, err := g.complete(ctx, TaskClassifyFeedback, prompt, g.ClassifyTemperature, &c)
	if err != nil {
		return nil, err
	}
	if err := c.normalize(); err != nil {
		return nil, &ParseError{Task: TaskClassifyFeedback, Content: content, Err: err}
	}
	return &c, nil
}

// AnalyzeWebSignal analyzes the text of a search result found on platform.
func (g *Gateway) AnalyzeWebSignal(ctx context.Context, text, platform string) (*SignalAnalysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Message: "signal text is empty"}
	}
	if r := []rune(text); len(r) > maxSignalChars {
		text = string(r[:maxSignalChars]) + "..."
	}
	if platform == "" {
		platform = "Web"
	}

	prompt := fmt.Sprintf(signalPrompt, g.product(), g.schema(&SignalAnalysis{}), platform, text)

	var a SignalAnalysis
	content, err := g.complete(ctx, TaskAnalyzeSignal, prompt, g.ClassifyTemperature, &a)
	if err != nil {
		return nil, err
	}
	if err := a.normalize(); err != nil {
		return nil, &ParseError{Task: TaskAnalyzeSignal, Content: content, Err: err}
	}
	return &a, nil
}

// GenerateBrief writes a brief over the selected feedback and the given
// web signals.
func (g *Gateway) GenerateBrief(ctx context.Context, feedback []store.FeedbackRecord, signals []store.WebSignalRecord) (*BriefContent, error) {
	if len(feedback) == 0 {
		return nil, &ValidationError{Message: "no items selected"}
	}
	if signals == nil {
		signals = []store.WebSignalRecord{}
	}

	feedbackJSON, err := json.MarshalIndent(feedback, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding feedback: %w", err)
	}
	signalsJSON, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding signals: %w", err)
	}

	prompt := fmt.Sprintf(briefPrompt, g.schema(&BriefContent{}), feedbackJSON, signalsJSON)

	var raw rawBrief
	content, err := g.complete(ctx, TaskGenerateBrief, prompt, g.BriefTemperature, &raw)
	if err != nil {
		return nil, err
	}
	b, err := raw.content()
	if err != nil {
		return nil, &ParseError{Task: TaskGenerateBrief, Content: content, Err: err}
	}
	return b, nil
}

func (g *Gateway) complete(ctx context.Context, task, prompt string, temperature float64, v any) (string, error) {
	if g.provider == nil {
		return "", &ClassificationError{Task: task, Err: ErrNoProvider}
	}

	zap.S().Debugf("%s: sending %d-char prompt to %s", task, len(prompt), g.provider.Name())
	content, err := g.provider.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   g.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			return "", &ClassificationError{Task: task, StatusCode: statusErr.StatusCode, Body: statusErr.Body, Err: err}
		}
		return "", &ClassificationError{Task: task, Err: err}
	}

	if err := llm.DecodeJSON(content, v); err != nil {
		return content, &ParseError{Task: task, Content: content, Err: err}
	}
	return content, nil
}

func (g *Gateway) product() string {
	if g.Product == "" {
		return "the product"
	}
	return g.Product
}

func (g *Gateway) schema(v any) string {
	if !g.EmbedSchema {
		return ""
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	data, err := json.MarshalIndent(reflector.Reflect(v), "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf(schemaBlock, data)
}

func (c *FeedbackClassification) normalize() error {
	var ok bool
	if c.Category, ok = store.Normalize(c.Category, store.Categories); !ok {
		return fmt.Errorf("invalid category %q", c.Category)
	}
	if c.Sentiment, ok = store.Normalize(c.Sentiment, store.Sentiments); !ok {
		return fmt.Errorf("invalid sentiment %q", c.Sentiment)
	}
	if c.Urgency, ok = store.Normalize(c.Urgency, store.Urgencies); !ok {
		return fmt.Errorf("invalid urgency %q", c.Urgency)
	}
	c.Summary = strings.TrimSpace(c.Summary)
	if c.Summary == "" {
		return errors.New("missing summary")
	}
	c.UseCase = strings.TrimSpace(c.UseCase)
	c.FeaturesMentioned = cleanList(c.FeaturesMentioned)
	c.CompetitorsMentioned = cleanList(c.CompetitorsMentioned)
	return nil
}

func (a *SignalAnalysis) normalize() error {
	var ok bool
	a.Theme = strings.TrimSpace(a.Theme)
	if a.Theme == "" {
		return errors.New("missing theme")
	}
	if a.Sentiment, ok = store.Normalize(a.Sentiment, store.SignalSentiments); !ok {
		return fmt.Errorf("invalid sentiment %q", a.Sentiment)
	}
	if a.Relevance, ok = store.Normalize(a.Relevance, store.Relevances); !ok {
		return fmt.Errorf("invalid relevance %q", a.Relevance)
	}
	a.CompetitorsMentioned = cleanList(a.CompetitorsMentioned)
	a.KeyPoints = cleanList(a.KeyPoints)
	return nil
}

// rawBrief accepts loosely typed numbers from the generator.
type rawBrief struct {
	ExecutiveSummary string `json:"executive_summary"`
	Themes           []struct {
		Theme             string   `json:"theme"`
		Frequency         any      `json:"frequency"`
		ARRImpact         any      `json:"arr_impact"`
		Evidence          []string `json:"evidence"`
		RecommendedAction string   `json:"recommended_action"`
	} `json:"themes"`
	WebCorrelation         string `json:"web_correlation"`
	PriorityRecommendation string `json:"priority_recommendation"`
}

func (r *rawBrief) content() (*BriefContent, error) {
	summary := strings.TrimSpace(r.ExecutiveSummary)
	if summary == "" {
		return nil, errors.New("missing executive_summary")
	}

	themes := make([]store.Theme, 0, len(r.Themes))
	for _, t := range r.Themes {
		freq := 0
		if f := toNumber(t.Frequency); f != nil {
			freq = int(*f)
		}
		themes = append(themes, store.Theme{
			Theme:             strings.TrimSpace(t.Theme),
			Frequency:         freq,
			ARRImpact:         toNumber(t.ARRImpact),
			Evidence:          cleanList(t.Evidence),
			RecommendedAction: strings.TrimSpace(t.RecommendedAction),
		})
	}

	return &BriefContent{
		ExecutiveSummary:       summary,
		Themes:                 themes,
		WebCorrelation:         strings.TrimSpace(r.WebCorrelation),
		PriorityRecommendation: strings.TrimSpace(r.PriorityRecommendation),
	}, nil
}

// toNumber reads a JSON number or a numeric string such as "$150,000".
// Anything else is unknown.
func toNumber(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(n)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
