package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/aggregate"
	"github.com/TobiSchelling/VoCIntel/internal/brief"
	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/demo"
	"github.com/TobiSchelling/VoCIntel/internal/search"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// defaultSearchSelection is preselected on the signals page.
var defaultSearchSelection = []string{"general", "reddit"}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard(r)
	if err != nil {
		code, body := statusFor(err)
		http.Error(w, body.Error, code)
		return
	}

	s.render(w, "dashboard.html", map[string]any{
		"Nav":        "dashboard",
		"View":       view,
		"Filter":     view.Filter,
		"Ranges":     []string{aggregate.RangeAll, aggregate.Range7d, aggregate.Range30d, aggregate.Range90d},
		"Categories": store.Categories,
		"Tiers":      store.ARRTiers,
		"Sentiments": store.Sentiments,
		"Urgencies":  store.Urgencies,
	})
}

// Feedback

func (s *Server) feedbackPage(w http.ResponseWriter, r *http.Request, code int, in collect.FeedbackInput, pageErr error) {
	items, err := s.store.Feedback.List(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data := map[string]any{
		"Nav":             "feedback",
		"Items":           items,
		"Input":           in,
		"Sources":         store.Sources,
		"Tiers":           store.ARRTiers,
		"HealthStates":    store.HealthStates,
		"StrategicValues": store.StrategicValues,
	}
	if pageErr != nil {
		_, body := statusFor(pageErr)
		data["Error"] = body.Error
	}
	s.renderStatus(w, code, "feedback.html", data)
}

func (s *Server) handleFeedbackPage(w http.ResponseWriter, r *http.Request) {
	s.feedbackPage(w, r, http.StatusOK, collect.FeedbackInput{
		Source:         store.SourceCallNotes,
		ARRTier:        store.TierMidMarket,
		CustomerHealth: store.HealthHealthy,
		StrategicValue: "standard",
	}, nil)
}

func (s *Server) handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	in := collect.FeedbackInput{
		Text:           r.FormValue("text"),
		Source:         r.FormValue("source"),
		CustomerName:   r.FormValue("customer_name"),
		ARRTier:        r.FormValue("arr_tier"),
		CustomerHealth: r.FormValue("customer_health"),
		StrategicValue: r.FormValue("strategic_value"),
	}

	if _, err := s.opts.Collector.SubmitFeedback(r.Context(), in); err != nil {
		code, _ := statusFor(err)
		s.feedbackPage(w, r, code, in, err)
		return
	}
	http.Redirect(w, r, "/feedback", http.StatusFound)
}

func (s *Server) handleFeedbackDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Feedback.DeleteByID(r.Context(), r.PathValue("id")); err != nil {
		zap.S().Errorf("Error deleting feedback: %v", err)
	}
	http.Redirect(w, r, "/feedback", http.StatusFound)
}

// Web signals

func (s *Server) signalsPage(w http.ResponseWriter, r *http.Request, code int, pageErr error) {
	q := r.URL.Query()
	selected := nonEmpty(q["q"])
	custom := strings.TrimSpace(q.Get("custom"))

	var batches []search.BatchResult
	if len(selected) > 0 || custom != "" {
		batches = search.RunBatch(r.Context(), s.opts.Searcher, s.batchQueries(selected, custom), s.opts.ResultCount, s.opts.Concurrency)
	} else {
		selected = defaultSearchSelection
	}

	signals, err := s.store.Signals.List(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Nav":      "signals",
		"Presets":  s.opts.Presets,
		"Selected": selected,
		"Custom":   custom,
		"Batches":  batches,
		"Signals":  signals,
	}
	if pageErr != nil {
		_, body := statusFor(pageErr)
		data["Error"] = body.Error
	}
	s.renderStatus(w, code, "signals.html", data)
}

func (s *Server) handleSignalsPage(w http.ResponseWriter, r *http.Request) {
	s.signalsPage(w, r, http.StatusOK, nil)
}

func (s *Server) handleSignalAnalyze(w http.ResponseWriter, r *http.Request) {
	result := search.Result{
		Title:       r.FormValue("title"),
		URL:         r.FormValue("url"),
		Description: r.FormValue("description"),
		Age:         r.FormValue("age"),
		Source:      r.FormValue("source"),
	}
	if _, err := s.opts.Collector.AnalyzeResult(r.Context(), result, r.FormValue("query_label"), ""); err != nil {
		code, _ := statusFor(err)
		s.signalsPage(w, r, code, err)
		return
	}
	http.Redirect(w, r, "/signals", http.StatusFound)
}

func (s *Server) handleSignalsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Signals.Clear(r.Context()); err != nil {
		zap.S().Errorf("Error clearing signals: %v", err)
	}
	http.Redirect(w, r, "/signals", http.StatusFound)
}

// Briefs

func (s *Server) briefsPage(w http.ResponseWriter, r *http.Request, code int, selected []string, pageErr error) {
	feedback, err := s.store.Feedback.List(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	briefs, err := s.store.Briefs.List(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	activePreset := r.URL.Query().Get("preset")
	if p, ok := aggregate.PresetByID(activePreset); ok && selected == nil {
		selected = p.Select(feedback)
	}

	data := map[string]any{
		"Nav":          "briefs",
		"Presets":      aggregate.PresetCounts(feedback),
		"ActivePreset": activePreset,
		"Feedback":     feedback,
		"Selected":     selected,
		"Briefs":       briefs,
	}
	if pageErr != nil {
		_, body := statusFor(pageErr)
		data["Error"] = body.Error
	}
	s.renderStatus(w, code, "briefs.html", data)
}

func (s *Server) handleBriefsPage(w http.ResponseWriter, r *http.Request) {
	s.briefsPage(w, r, http.StatusOK, nil, nil)
}

func (s *Server) handleBriefGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	ids := r.PostForm["id"]

	b, err := s.opts.Compiler.Compile(r.Context(), ids)
	if err != nil {
		code, _ := statusFor(err)
		s.briefsPage(w, r, code, ids, err)
		return
	}
	http.Redirect(w, r, "/briefs/"+b.ID, http.StatusFound)
}

func (s *Server) handleBriefsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Briefs.Clear(r.Context()); err != nil {
		zap.S().Errorf("Error clearing briefs: %v", err)
	}
	http.Redirect(w, r, "/briefs", http.StatusFound)
}

func (s *Server) handleBriefPage(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Briefs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	feedback, _ := s.store.Feedback.List(r.Context())
	s.render(w, "brief.html", map[string]any{
		"Nav":      "briefs",
		"Brief":    b,
		"Markdown": brief.RenderMarkdown(b),
		"Sources":  brief.ResolveSources(feedback, b.FeedbackIDs),
	})
}

func (s *Server) handleBriefExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Briefs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", brief.ExportFilename(b)))
	_, _ = w.Write([]byte(brief.RenderMarkdown(b)))
}

// Data management

func (s *Server) handleDemoPage(w http.ResponseWriter, r *http.Request) {
	if _, err := demo.Load(r.Context(), s.store, s.opts.Now()); err != nil {
		zap.S().Errorf("Error loading demo data: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleClearPage(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		zap.S().Errorf("Error clearing data: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
