package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleGetICS serves the last successfully published body for a source's
// ics_path. Lookup is case-sensitive; a missing path is a plain 404, not an
// error body, since subscribing calendar clients expect a bare 4xx here.
func (s *Server) handleGetICS(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	body, ok := s.publisher.Get(path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	contentType := body.ContentType
	if contentType == "" {
		contentType = "text/calendar; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	if !body.LastMod.IsZero() {
		w.Header().Set("Last-Modified", body.LastMod.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Data)
}
