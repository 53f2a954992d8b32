package api

import (
	"net/http"

	"github.com/dgallion1/taxguide/internal/render"
	"github.com/dgallion1/taxguide/internal/router"
	"github.com/dgallion1/taxguide/internal/scrollsync"
	"github.com/dgallion1/taxguide/internal/view"
	"github.com/go-chi/chi/v5"
)

type pathRequest struct {
	Path string `json:"path"`
}

// windowResponse carries the view state plus the rendered window.
type windowResponse struct {
	View      view.Snapshot     `json:"view"`
	Fragments []render.Fragment `json:"fragments"`
}

type scrollResponse struct {
	View         view.Snapshot    `json:"view"`
	RouteChanged bool             `json:"route_changed"`
	Replaced     string           `json:"replaced,omitempty"`
	Appended     *render.Fragment `json:"appended,omitempty"`
}

func (s *Server) window(r *http.Request, v *view.View) windowResponse {
	snap, units := v.Window()
	frags := s.renderer.RenderWindow(r.Context(), units)
	if frags == nil {
		frags = []render.Fragment{}
	}
	return windowResponse{View: snap, Fragments: frags}
}

func (s *Server) lookupView(w http.ResponseWriter, r *http.Request) *view.View {
	id := chi.URLParam(r, "viewID")
	v := s.views.Get(id)
	if v == nil {
		jsonError(w, "view not found", http.StatusNotFound)
		return nil
	}
	return v
}

func (s *Server) handleMountView(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	history := router.NewMemory(req.Path)
	v := view.Mount(s.newID(), s.resolver, history, s.viewOptions())
	s.views.Put(v)

	writeJSON(w, http.StatusCreated, s.window(r, v))
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	v := s.lookupView(w, r)
	if v == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": v.Snapshot()})
}

func (s *Server) handleUnmountView(w http.ResponseWriter, r *http.Request) {
	if !s.views.Delete(chi.URLParam(r, "viewID")) {
		jsonError(w, "view not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	v := s.lookupView(w, r)
	if v == nil {
		return
	}
	var tick scrollsync.Tick
	if err := decodeJSON(w, r, &tick); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, ok := v.Scroll(tick)
	if !ok {
		jsonError(w, "view unmounted", http.StatusGone)
		return
	}
	out := scrollResponse{RouteChanged: res.Changed}
	if res.Changed && res.Current != nil {
		out.Replaced = res.Current.Path
	}
	if res.Extended != nil {
		frag := s.renderer.Render(r.Context(), *res.Extended)
		out.Appended = &frag
	}
	out.View = v.Snapshot()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	v := s.lookupView(w, r)
	if v == nil {
		return
	}
	var req pathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	if !v.Open(req.Path) {
		jsonError(w, "view unmounted", http.StatusGone)
		return
	}
	writeJSON(w, http.StatusOK, s.window(r, v))
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	v := s.lookupView(w, r)
	if v == nil {
		return
	}
	if !v.Back() {
		jsonError(w, "no history entry to return to", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, s.window(r, v))
}
