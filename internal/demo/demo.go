// Package demo seeds the store with realistic sample feedback and web
// signals.
package demo

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/store"
)

//go:embed demo.json
var demoJSON []byte

// Fixtures carry an age in days instead of a timestamp so that the data
// always looks recent.
type feedbackFixture struct {
	store.FeedbackRecord
	DaysAgo int `json:"days_ago"`
}

type signalFixture struct {
	store.WebSignalRecord
	DaysAgo int `json:"days_ago"`
}

type fixtures struct {
	Feedback []feedbackFixture `json:"feedback"`
	Signals  []signalFixture   `json:"signals"`
}

// Result counts what Load wrote.
type Result struct {
	Feedback int `json:"feedback_count"`
	Signals  int `json:"signals_count"`
}

// Records returns the demo records with timestamps relative to now.
func Records(now time.Time) ([]store.FeedbackRecord, []store.WebSignalRecord, error) {
	var f fixtures
	if err := json.Unmarshal(demoJSON, &f); err != nil {
		return nil, nil, fmt.Errorf("parsing demo data: %w", err)
	}

	feedback := make([]store.FeedbackRecord, 0, len(f.Feedback))
	for _, fx := range f.Feedback {
		r := fx.FeedbackRecord
		r.Timestamp = daysBefore(now, fx.DaysAgo)
		feedback = append(feedback, r)
	}
	signals := make([]store.WebSignalRecord, 0, len(f.Signals))
	for _, fx := range f.Signals {
		r := fx.WebSignalRecord
		r.Timestamp = daysBefore(now, fx.DaysAgo)
		signals = append(signals, r)
	}
	return feedback, signals, nil
}

// Load replaces feedback and web signals with the demo records and clears
// every brief.
func Load(ctx context.Context, s *store.Store, now time.Time) (*Result, error) {
	feedback, signals, err := Records(now)
	if err != nil {
		return nil, err
	}
	if err := s.Feedback.Replace(ctx, feedback); err != nil {
		return nil, err
	}
	if err := s.Signals.Replace(ctx, signals); err != nil {
		return nil, err
	}
	if err := s.Briefs.Replace(ctx, []store.Brief{}); err != nil {
		return nil, err
	}

	zap.S().Infof("Loaded demo data: %d feedback items, %d web signals", len(feedback), len(signals))
	return &Result{Feedback: len(feedback), Signals: len(signals)}, nil
}

func daysBefore(now time.Time, days int) time.Time {
	return now.UTC().Add(-time.Duration(days) * 24 * time.Hour)
}
