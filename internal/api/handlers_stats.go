package api

import (
	"net/http"
)

func (s *Server) handleFetchStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "fetch stats unavailable", http.StatusServiceUnavailable)
		return
	}

	out := map[string]any{
		"fetch": s.stats.Snapshot(),
		"views": s.views.Len(),
	}
	if s.warmer != nil {
		out["warmup"] = s.warmer.Progress()
	}
	writeJSON(w, http.StatusOK, out)
}
