package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/aggregate"
	"github.com/TobiSchelling/VoCIntel/internal/classify"
	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/demo"
	"github.com/TobiSchelling/VoCIntel/internal/pipeline"
	"github.com/TobiSchelling/VoCIntel/internal/search"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
	Body   string `json:"body,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnf("Error encoding response: %v", err)
	}
}

// statusFor maps an operation error to an HTTP status and response body.
func statusFor(err error) (int, errorBody) {
	var (
		verr *classify.ValidationError
		cerr *classify.ClassificationError
		perr *classify.ParseError
		serr *search.SearchError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: verr.Message}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found"}
	case errors.As(err, &perr):
		return http.StatusBadGateway, errorBody{Error: "LLM returned a malformed response"}
	case errors.As(err, &cerr):
		return http.StatusBadGateway, errorBody{Error: cerr.Error(), Status: cerr.StatusCode, Body: cerr.Body}
	case errors.As(err, &serr):
		return http.StatusBadGateway, errorBody{Error: "search request failed", Status: serr.StatusCode, Body: serr.Body}
	case errors.Is(err, search.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error"}
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, body := statusFor(err)
	if code >= http.StatusInternalServerError {
		zap.S().Errorf("Request failed: %v", err)
	}
	writeJSON(w, code, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &classify.ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// Feedback

func (s *Server) apiListFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.Feedback.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) apiSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var in collect.FeedbackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.opts.Collector.SubmitFeedback(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) apiGetFeedback(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Feedback.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) apiDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.Feedback.DeleteByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Web signals

type analyzeRequest struct {
	Result     search.Result `json:"result"`
	QueryLabel string        `json:"query_label"`
}

func (s *Server) apiListSignals(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.Signals.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) apiAnalyzeSignal(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.opts.Collector.AnalyzeResult(r.Context(), req.Result, req.QueryLabel, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type harvestResponse struct {
	Batches []search.BatchResult    `json:"batches"`
	Signals []store.WebSignalRecord `json:"signals"`
	Steps   []stepBody              `json:"steps"`
}

type stepBody struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) apiHarvest(w http.ResponseWriter, r *http.Request) {
	if s.opts.Pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "harvest pipeline not configured"})
		return
	}
	var opts pipeline.Options
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &opts); err != nil {
			writeError(w, err)
			return
		}
	}

	res := s.opts.Pipeline.Run(r.Context(), opts)
	resp := harvestResponse{Batches: res.Batches, Signals: res.Signals, Steps: []stepBody{}}
	if resp.Signals == nil {
		resp.Signals = []store.WebSignalRecord{}
	}
	for _, step := range res.Steps {
		sb := stepBody{Name: step.Name, Summary: step.Summary}
		if step.Err != nil {
			sb.Error = step.Err.Error()
		}
		resp.Steps = append(resp.Steps, sb)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) apiClearSignals(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Signals.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Briefs

type generateRequest struct {
	FeedbackIDs []string `json:"feedback_ids"`
	Preset      string   `json:"preset,omitempty"`
}

func (s *Server) apiListBriefs(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.Briefs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) apiGenerateBrief(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	ids := req.FeedbackIDs
	if req.Preset != "" {
		preset, ok := aggregate.PresetByID(req.Preset)
		if !ok {
			writeError(w, &classify.ValidationError{Message: "unknown preset: " + req.Preset})
			return
		}
		feedback, err := s.store.Feedback.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		ids = preset.Select(feedback)
	}

	b, err := s.opts.Compiler.Compile(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) apiGetBrief(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Briefs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) apiClearBriefs(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Briefs.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Derived views

func (s *Server) apiDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) apiPresets(w http.ResponseWriter, r *http.Request) {
	feedback, err := s.store.Feedback.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brief_presets":  aggregate.PresetCounts(feedback),
		"search_queries": s.opts.Presets,
	})
}

type batchRequest struct {
	QueryIDs []string `json:"query_ids"`
	Custom   string   `json:"custom,omitempty"`
	Count    int      `json:"count,omitempty"`
}

func (s *Server) apiSearchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	queries := s.batchQueries(req.QueryIDs, req.Custom)
	if len(queries) == 0 {
		writeError(w, &classify.ValidationError{Message: "no queries selected"})
		return
	}
	count := req.Count
	if count <= 0 {
		count = s.opts.ResultCount
	}
	writeJSON(w, http.StatusOK, search.RunBatch(r.Context(), s.opts.Searcher, queries, count, s.opts.Concurrency))
}

// batchQueries resolves preset ids and appends the custom query, if any.
func (s *Server) batchQueries(ids []string, custom string) []search.Query {
	queries := search.Select(s.opts.Presets, ids)
	if custom = strings.TrimSpace(custom); custom != "" {
		queries = append(queries, search.Query{ID: "custom", Label: "Custom Search", Query: custom})
	}
	return queries
}

// Data management

func (s *Server) apiDemo(w http.ResponseWriter, r *http.Request) {
	res, err := demo.Load(r.Context(), s.store, s.opts.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) apiClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dashboard(r *http.Request) (*aggregate.DashboardView, error) {
	filter := parseFilter(r)
	if err := filter.Validate(); err != nil {
		return nil, &classify.ValidationError{Message: err.Error()}
	}
	feedback, err := s.store.Feedback.List(r.Context())
	if err != nil {
		return nil, err
	}
	signals, err := s.store.Signals.List(r.Context())
	if err != nil {
		return nil, err
	}
	view := aggregate.Dashboard(feedback, signals, filter, s.opts.Now())
	return &view, nil
}

// parseFilter reads range, category, tier, sentiment and urgency from the
// query string. Repeated parameters select several values.
func parseFilter(r *http.Request) aggregate.Filter {
	q := r.URL.Query()
	return aggregate.Filter{
		DateRange:  q.Get("range"),
		Categories: nonEmpty(q["category"]),
		Tiers:      nonEmpty(q["tier"]),
		Sentiments: nonEmpty(q["sentiment"]),
		Urgencies:  nonEmpty(q["urgency"]),
	}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
