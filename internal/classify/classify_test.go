package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/VoCIntel/internal/llm"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
	requests []llm.Request
}

func (m *mockProvider) Generate(_ context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	return m.response, m.err
}

func (m *mockProvider) Name() string { return "mock" }

const feedbackJSON = `{
  "category": "Feature_Request",
  "features_mentioned": ["function calling", " "],
  "competitors_mentioned": ["OpenAI"],
  "use_case": "support automation",
  "sentiment": "negative",
  "urgency": "high",
  "summary": "Needs parallel function calling."
}`

func TestClassifyFeedback(t *testing.T) {
	p := &mockProvider{response: feedbackJSON}
	g := NewGateway(p, "Mistral AI")

	c, err := g.ClassifyFeedback(context.Background(), "We need parallel function calling like OpenAI has.")
	require.NoError(t, err)

	assert.Equal(t, store.CategoryFeatureRequest, c.Category)
	assert.Equal(t, []string{"function calling"}, c.FeaturesMentioned)
	assert.Equal(t, []string{"OpenAI"}, c.CompetitorsMentioned)
	assert.Equal(t, store.UrgencyHigh, c.Urgency)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.True(t, req.JSON)
	assert.Equal(t, 0.1, req.Temperature)
	assert.Contains(t, req.Prompt, "We need parallel function calling like OpenAI has.")
	assert.Contains(t, req.Prompt, `"churn_signal"`)
	assert.Contains(t, req.Prompt, "JSON Schema")
}

func TestClassifyFeedbackWithoutSchema(t *testing.T) {
	p := &mockProvider{response: feedbackJSON}
	g := NewGateway(p, "Mistral AI")
	g.EmbedSchema = false

	_, err := g.ClassifyFeedback(context.Background(), "text")
	require.NoError(t, err)
	assert.NotContains(t, p.requests[0].Prompt, "JSON Schema")
}

func TestClassifyFeedbackEmptyText(t *testing.T) {
	p := &mockProvider{response: feedbackJSON}
	g := NewGateway(p, "Mistral AI")

	_, err := g.ClassifyFeedback(context.Background(), "   \n")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, p.requests, "no call should be made for empty text")
}

func TestClassifyFeedbackUpstreamStatus(t *testing.T) {
	p := &mockProvider{err: &llm.StatusError{Provider: "mistral", StatusCode: 401, Body: "unauthorized"}}
	g := NewGateway(p, "Mistral AI")

	_, err := g.ClassifyFeedback(context.Background(), "text")

	var cerr *ClassificationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 401, cerr.StatusCode)
	assert.Equal(t, TaskClassifyFeedback, cerr.Task)
}

func TestClassifyFeedbackTransportFailure(t *testing.T) {
	p := &mockProvider{err: errors.New("connection refused")}
	g := NewGateway(p, "Mistral AI")

	_, err := g.ClassifyFeedback(context.Background(), "text")

	var cerr *ClassificationError
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, cerr.StatusCode)
}

func TestClassifyFeedbackMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":         "I think this is a bug",
		"bad category":     strings.Replace(feedbackJSON, "Feature_Request", "rant", 1),
		"bad sentiment":    strings.Replace(feedbackJSON, `"negative"`, `"angry"`, 1),
		"missing summary":  strings.Replace(feedbackJSON, "Needs parallel function calling.", "", 1),
		"wrong list shape": strings.Replace(feedbackJSON, `["OpenAI"]`, `"OpenAI"`, 1),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			g := NewGateway(&mockProvider{response: resp}, "Mistral AI")
			_, err := g.ClassifyFeedback(context.Background(), "text")

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, resp, perr.Content)
		})
	}
}

func TestNoProvider(t *testing.T) {
	g := NewGateway(nil, "Mistral AI")
	_, err := g.ClassifyFeedback(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestAnalyzeWebSignal(t *testing.T) {
	p := &mockProvider{response: "```json\n" + `{"theme":"latency","sentiment":"Mixed","competitors_mentioned":[],"key_points":["fast","cheap"],"relevance":"high"}` + "\n```"}
	g := NewGateway(p, "Acme")

	a, err := g.AnalyzeWebSignal(context.Background(), "Acme is fast and cheap", "Reddit")
	require.NoError(t, err)

	assert.Equal(t, store.SentimentMixed, a.Sentiment)
	assert.Equal(t, []string{"fast", "cheap"}, a.KeyPoints)
	assert.NotNil(t, a.CompetitorsMentioned)
	assert.Contains(t, p.requests[0].Prompt, "public web signal about Acme")
	assert.Contains(t, p.requests[0].Prompt, "Source: Reddit")
}

func TestAnalyzeWebSignalTruncates(t *testing.T) {
	p := &mockProvider{response: `{"theme":"t","sentiment":"neutral","relevance":"low"}`}
	g := NewGateway(p, "Acme")

	_, err := g.AnalyzeWebSignal(context.Background(), strings.Repeat("é", maxSignalChars+100), "Web")
	require.NoError(t, err)
	assert.NotContains(t, p.requests[0].Prompt, strings.Repeat("é", maxSignalChars+1))
}

func TestAnalyzeWebSignalRejectsFeedbackSentiment(t *testing.T) {
	p := &mockProvider{response: `{"theme":"t","sentiment":"frustrated","relevance":"low"}`}
	g := NewGateway(p, "Acme")

	_, err := g.AnalyzeWebSignal(context.Background(), "text", "Web")
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestGenerateBrief(t *testing.T) {
	p := &mockProvider{response: `{
  "executive_summary": "Enterprise customers want function calling.",
  "themes": [
    {"theme": "Function calling", "frequency": 3, "arr_impact": 250000, "evidence": ["we need it"], "recommended_action": "Ship it"},
    {"theme": "Pricing", "frequency": "2", "arr_impact": null, "evidence": [], "recommended_action": "Review"},
    {"theme": "Latency", "frequency": 1, "arr_impact": "$15,000", "evidence": [], "recommended_action": "Profile"}
  ],
  "web_correlation": "",
  "priority_recommendation": "Function calling first."
}`}
	g := NewGateway(p, "Mistral AI")

	feedback := []store.FeedbackRecord{{ID: "f1", RawText: "we need it", ARRTier: store.TierEnterprise}}
	b, err := g.GenerateBrief(context.Background(), feedback, nil)
	require.NoError(t, err)

	require.Len(t, b.Themes, 3)
	require.NotNil(t, b.Themes[0].ARRImpact)
	assert.Equal(t, 250000.0, *b.Themes[0].ARRImpact)
	assert.Equal(t, 2, b.Themes[1].Frequency)
	assert.Nil(t, b.Themes[1].ARRImpact, "null arr_impact must stay unknown")
	require.NotNil(t, b.Themes[2].ARRImpact)
	assert.Equal(t, 15000.0, *b.Themes[2].ARRImpact)
	assert.Equal(t, "Function calling first.", b.PriorityRecommendation)

	req := p.requests[0]
	assert.Equal(t, 0.3, req.Temperature)
	assert.Contains(t, req.Prompt, `"id": "f1"`)
	assert.Contains(t, req.Prompt, "Web signals:\n\"\"\"\n[]\n\"\"\"")
}

func TestGenerateBriefEmptySelection(t *testing.T) {
	p := &mockProvider{}
	g := NewGateway(p, "Mistral AI")

	_, err := g.GenerateBrief(context.Background(), nil, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, p.requests)
}

func TestGenerateBriefMissingSummary(t *testing.T) {
	g := NewGateway(&mockProvider{response: `{"themes": []}`}, "Mistral AI")
	_, err := g.GenerateBrief(context.Background(), []store.FeedbackRecord{{ID: "f"}}, nil)

	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}
