package server

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/search"
)

const defaultProxyCount = 10

// handleSearchProxy forwards q and count to the Brave API with the
// server-held key and relays the JSON answer. Upstream error statuses are
// passed through.
func (s *Server) handleSearchProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: `Missing query parameter "q"`})
		return
	}
	count := defaultProxyCount
	if c, err := strconv.Atoi(r.URL.Query().Get("count")); err == nil && c > 0 {
		count = c
	}

	if s.opts.Brave == nil || !s.opts.Brave.IsConfigured() {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "BRAVE_API_KEY not configured"})
		return
	}

	body, err := s.opts.Brave.Raw(r.Context(), q, count)
	if err != nil {
		var serr *search.SearchError
		if errors.As(err, &serr) {
			zap.S().Warnf("Brave API error: %d %s", serr.StatusCode, serr.Body)
			writeJSON(w, serr.StatusCode, errorBody{
				Error:  "Brave API request failed",
				Status: serr.StatusCode,
				Body:   serr.Body,
			})
			return
		}
		zap.S().Errorf("Brave search proxy error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to fetch from Brave API"})
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
