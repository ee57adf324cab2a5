package api

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.ListSources()
	sourceCount := 0
	if err == nil {
		sourceCount = len(sources)
	}
	writeJSON(w, 200, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"source_count":   sourceCount,
		"db_ok":          s.db.Ping(),
	})
}
