// Package brief compiles product briefs from selected feedback and renders
// them as Markdown.
package brief

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/classify"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// Compiler generates briefs over stored feedback.
type Compiler struct {
	store   *store.Store
	gateway *classify.Gateway

	now   func() time.Time
	newID func() string
}

// NewCompiler creates a new brief compiler.
func NewCompiler(s *store.Store, g *classify.Gateway) *Compiler {
	return &Compiler{
		store:   s,
		gateway: g,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Compile resolves the selected ids, generates a brief over them and every
// stored web signal, and persists it. Ids that no longer resolve are
// ignored; an empty resolution fails before the generator is called.
func (c *Compiler) Compile(ctx context.Context, selectedIDs []string) (*store.Brief, error) {
	feedback, err := c.store.Feedback.List(ctx)
	if err != nil {
		return nil, err
	}
	selected := ResolveSources(feedback, selectedIDs)
	if len(selected) == 0 {
		return nil, &classify.ValidationError{Message: "no items selected"}
	}

	signals, err := c.store.Signals.List(ctx)
	if err != nil {
		return nil, err
	}

	zap.S().Infof("Generating brief over %d feedback items and %d web signals", len(selected), len(signals))
	content, err := c.gateway.GenerateBrief(ctx, selected, signals)
	if err != nil {
		return nil, fmt.Errorf("generating brief: %w", err)
	}

	ids := make([]string, 0, len(selected))
	for _, r := range selected {
		ids = append(ids, r.ID)
	}

	b := store.Brief{
		ID:                     c.newID(),
		GeneratedAt:            c.now().UTC(),
		FeedbackCount:          len(selected),
		FeedbackIDs:            ids,
		ExecutiveSummary:       content.ExecutiveSummary,
		Themes:                 content.Themes,
		WebCorrelation:         content.WebCorrelation,
		PriorityRecommendation: content.PriorityRecommendation,
	}
	if b.Themes == nil {
		b.Themes = []store.Theme{}
	}
	if _, err := c.store.Briefs.Append(ctx, b); err != nil {
		return nil, err
	}

	zap.S().Infof("Brief %s stored with %d themes", b.ID, len(b.Themes))
	return &b, nil
}

// ResolveSources returns the records whose ids are in ids, in collection
// order. Duplicate and dangling ids are dropped.
func ResolveSources(feedback []store.FeedbackRecord, ids []string) []store.FeedbackRecord {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := []store.FeedbackRecord{}
	for _, r := range feedback {
		if wanted[r.ID] {
			out = append(out, r)
			delete(wanted, r.ID)
		}
	}
	return out
}
