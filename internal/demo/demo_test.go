package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/VoCIntel/internal/aggregate"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

var now = time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC)

func TestRecordsAreValid(t *testing.T) {
	feedback, signals, err := Records(now)
	require.NoError(t, err)
	require.Len(t, feedback, 12)
	require.Len(t, signals, 4)

	ids := map[string]bool{}
	for _, r := range feedback {
		assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
		ids[r.ID] = true
		assert.Contains(t, store.Sources, r.Source, r.ID)
		assert.Contains(t, store.ARRTiers, r.ARRTier, r.ID)
		assert.Contains(t, store.HealthStates, r.CustomerHealth, r.ID)
		assert.Contains(t, store.Categories, r.Category, r.ID)
		assert.Contains(t, store.Sentiments, r.Sentiment, r.ID)
		assert.Contains(t, store.Urgencies, r.Urgency, r.ID)
		assert.True(t, r.Timestamp.Before(now), r.ID)
	}
	for _, s := range signals {
		assert.Equal(t, store.SourceWeb, s.Source)
		assert.NotEmpty(t, s.WebSource)
		assert.Contains(t, store.SignalSentiments, s.Sentiment, s.ID)
	}

	assert.Equal(t, now.Add(-48*time.Hour), feedback[0].Timestamp)
}

func TestLoadReplacesCollections(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_, err := s.Feedback.Append(ctx, store.FeedbackRecord{ID: "mine"})
	require.NoError(t, err)
	_, err = s.Briefs.Append(ctx, store.Brief{ID: "old-brief"})
	require.NoError(t, err)

	res, err := Load(ctx, s, now)
	require.NoError(t, err)
	assert.Equal(t, &Result{Feedback: 12, Signals: 4}, res)

	feedback, _ := s.Feedback.List(ctx)
	assert.Len(t, feedback, 12)
	_, err = s.Feedback.Get(ctx, "mine")
	assert.ErrorIs(t, err, store.ErrNotFound)

	briefs, _ := s.Briefs.List(ctx)
	assert.Empty(t, briefs)
}

func TestDemoDashboard(t *testing.T) {
	feedback, signals, err := Records(now)
	require.NoError(t, err)

	view := aggregate.Dashboard(feedback, signals, aggregate.Filter{DateRange: aggregate.Range7d}, now)
	assert.Equal(t, 12, view.TotalItems)
	assert.Equal(t, 7, view.FilteredItems)
	assert.LessOrEqual(t, view.AtRiskARR, view.TotalARR)
	require.NotEmpty(t, view.Competitors)
	assert.Equal(t, "OpenAI", view.Competitors[0].Name)
}
