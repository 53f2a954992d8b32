package api

import (
	"net/http"

	"github.com/dgallion1/taxguide/internal/content"
)

func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sequences": s.registry.Sequences(),
	})
}

// resolution is the wire form of sequence.Location.
type resolution struct {
	Path       string        `json:"path"`
	Found      bool          `json:"found"`
	SequenceID string        `json:"sequence_id,omitempty"`
	Index      int           `json:"index"`
	Current    *content.Unit `json:"current,omitempty"`
	Next       *content.Unit `json:"next,omitempty"`
	Prev       *content.Unit `json:"prev,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	loc := s.resolver.Locate(path)
	out := resolution{
		Path:    loc.Path,
		Found:   loc.Sequenced,
		Index:   loc.Index,
		Current: loc.Current,
		Next:    loc.Next,
		Prev:    loc.Prev,
	}
	if loc.Sequence != nil {
		out.SequenceID = loc.Sequence.ID
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnit(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	res := s.registry.Resolve(path)
	if !res.Found() {
		jsonError(w, "unit not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fragment": s.renderer.Render(r.Context(), *res.Current),
	})
}
