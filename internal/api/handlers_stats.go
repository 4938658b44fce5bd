package api

import (
	"net/http"
)

func (s *Server) handleBackendStats(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil || s.backend.Stats == nil {
		jsonError(w, "backend stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"backend_url": s.backend.BaseURL(),
		"sessions":    s.sessions.Len(),
		"stats":       s.backend.Stats.Snapshot(),
	})
}
