// Package server serves the VoCIntel pages, the JSON API and the search
// proxy.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/aggregate"
	"github.com/TobiSchelling/VoCIntel/internal/brief"
	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/pipeline"
	"github.com/TobiSchelling/VoCIntel/internal/search"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Options wires the server to the rest of the application.
type Options struct {
	Store     *store.Store
	Collector *collect.Collector
	Compiler  *brief.Compiler
	Pipeline  *pipeline.Pipeline
	Searcher  search.Searcher
	Brave     *search.BraveClient // used by the search proxy

	Product     string
	Presets     []search.Query
	ResultCount int
	Concurrency int

	Now func() time.Time
}

// Server is the HTTP server for the VoCIntel UI and API.
type Server struct {
	opts  Options
	store *store.Store
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server.
func New(opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ResultCount <= 0 {
		opts.ResultCount = 5
	}

	funcMap := template.FuncMap{
		"markdown":      renderMarkdown,
		"currency":      aggregate.FormatCurrency,
		"impact":        brief.FormatImpact,
		"categoryLabel": aggregate.CategoryLabel,
		"label":         label,
		"formatDate":    func(t time.Time) string { return t.Local().Format("Jan 2, 2006") },
		"formatTime":    func(t time.Time) string { return t.Local().Format("Jan 2, 2006 15:04") },
		"join":          strings.Join,
		"has":           func(list []string, v string) bool { return slices.Contains(list, v) },
		"add":           func(a, b int) int { return a + b },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"dashboard.html", "feedback.html", "signals.html", "briefs.html", "brief.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{opts: opts, store: opts.Store, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleDashboard)
	s.mux.HandleFunc("GET /feedback", s.handleFeedbackPage)
	s.mux.HandleFunc("POST /feedback", s.handleFeedbackSubmit)
	s.mux.HandleFunc("POST /feedback/{id}/delete", s.handleFeedbackDelete)
	s.mux.HandleFunc("GET /signals", s.handleSignalsPage)
	s.mux.HandleFunc("POST /signals/analyze", s.handleSignalAnalyze)
	s.mux.HandleFunc("POST /signals/clear", s.handleSignalsClear)
	s.mux.HandleFunc("GET /briefs", s.handleBriefsPage)
	s.mux.HandleFunc("POST /briefs", s.handleBriefGenerate)
	s.mux.HandleFunc("POST /briefs/clear", s.handleBriefsClear)
	s.mux.HandleFunc("GET /briefs/{id}", s.handleBriefPage)
	s.mux.HandleFunc("GET /briefs/{id}/export.md", s.handleBriefExport)
	s.mux.HandleFunc("POST /demo", s.handleDemoPage)
	s.mux.HandleFunc("POST /clear", s.handleClearPage)

	// JSON API
	s.mux.HandleFunc("GET /api/feedback", s.apiListFeedback)
	s.mux.HandleFunc("POST /api/feedback", s.apiSubmitFeedback)
	s.mux.HandleFunc("GET /api/feedback/{id}", s.apiGetFeedback)
	s.mux.HandleFunc("DELETE /api/feedback/{id}", s.apiDeleteFeedback)
	s.mux.HandleFunc("GET /api/signals", s.apiListSignals)
	s.mux.HandleFunc("POST /api/signals/analyze", s.apiAnalyzeSignal)
	s.mux.HandleFunc("POST /api/signals/harvest", s.apiHarvest)
	s.mux.HandleFunc("DELETE /api/signals", s.apiClearSignals)
	s.mux.HandleFunc("GET /api/briefs", s.apiListBriefs)
	s.mux.HandleFunc("POST /api/briefs", s.apiGenerateBrief)
	s.mux.HandleFunc("GET /api/briefs/{id}", s.apiGetBrief)
	s.mux.HandleFunc("DELETE /api/briefs", s.apiClearBriefs)
	s.mux.HandleFunc("GET /api/dashboard", s.apiDashboard)
	s.mux.HandleFunc("GET /api/presets", s.apiPresets)
	s.mux.HandleFunc("POST /api/search/batch", s.apiSearchBatch)
	s.mux.HandleFunc("POST /api/demo", s.apiDemo)
	s.mux.HandleFunc("DELETE /api/data", s.apiClearAll)

	// Search proxy: method checked by the handler so that the error body is JSON.
	s.mux.HandleFunc("/api/search", s.handleSearchProxy)
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, code int, name string, data map[string]any) {
	tmpl, ok := s.pages[name]
	if !ok {
		zap.S().Errorf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data["Product"] = s.opts.Product

	// Render into a buffer so a template error never leaves a half-written page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		zap.S().Errorf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// label turns an enum value such as mid_market into "Mid Market".
func label(v string) string {
	words := strings.Fields(strings.ReplaceAll(v, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	zap.S().Infof("Server listening on http://%s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
