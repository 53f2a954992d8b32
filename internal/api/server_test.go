package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/taxguide/internal/config"
	"github.com/dgallion1/taxguide/internal/content"
	"github.com/dgallion1/taxguide/internal/fetch"
	"github.com/dgallion1/taxguide/internal/loader"
	"github.com/dgallion1/taxguide/internal/registry"
	"github.com/dgallion1/taxguide/internal/render"
	"github.com/dgallion1/taxguide/internal/view"
)

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func neverFire(time.Duration, func()) loader.Timer { return noopTimer{} }

func testServer(t *testing.T, apiKey string) (*Server, *view.Store) {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"acq/overview.md": "# 개요\n\n취득세는 부동산 등을 취득할 때 부과됩니다.\n",
		"acq/rates.csv":   "구분,세율\n6억 이하,1%\n9억 초과,3%\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reg, err := registry.New(
		content.Sequence{ID: "acq", Title: "취득세 기본", Units: []content.Unit{
			{Key: "overview", Path: "/acq/overview", Title: "개요", DataRef: "acq/overview.md"},
			{Key: "rates", Path: "/acq/rates", Title: "세율", DataRef: "acq/rates.csv", Kind: content.KindTable},
			{Key: "filing", Path: "/acq/filing", Title: "신고·납부"},
		}},
		content.Sequence{ID: "prop", Title: "재산세 기본", Units: []content.Unit{
			{Key: "overview", Path: "/prop/overview", Title: "재산세 개요"},
			{Key: "missing", Path: "/prop/missing", Title: "누락", DataRef: "prop/missing.json", Kind: content.KindCards},
		}},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := fetch.NewStore(fetch.NewDirSource(dir), fetch.WithLogger(log))
	views := view.NewStore(time.Hour)
	t.Cleanup(views.Close)

	cfg := config.Config{
		APIKey:           apiKey,
		ActivationTop:    150,
		ActivationBottom: 100,
		ExtendThreshold:  300,
		SettleDelay:      300 * time.Millisecond,
	}
	s := NewServer(reg, views, render.NewDispatcher(store, log), store.Stats(), nil, log, cfg)
	s.afterFunc = neverFire
	return s, views
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, "secret")
	rec := do(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	s, _ := testServer(t, "secret")

	rec := do(t, s, http.MethodGet, "/api/sequences", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sequences", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sequences", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestListSequences(t *testing.T) {
	s, _ := testServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/sequences", nil)
	got := decode[struct {
		Sequences []content.Sequence `json:"sequences"`
	}](t, rec)
	if len(got.Sequences) != 2 || got.Sequences[0].ID != "acq" || len(got.Sequences[0].Units) != 3 {
		t.Fatalf("unexpected sequences %+v", got.Sequences)
	}
	if got.Sequences[0].Units[0].Kind != content.KindDocument {
		t.Errorf("expected defaulted document kind, got %q", got.Sequences[0].Units[0].Kind)
	}
}

func TestResolve(t *testing.T) {
	s, _ := testServer(t, "")

	rec := do(t, s, http.MethodGet, "/api/resolve?path=/acq/rates/?tab=1", nil)
	got := decode[resolution](t, rec)
	if !got.Found || got.SequenceID != "acq" || got.Index != 1 {
		t.Fatalf("unexpected resolution %+v", got)
	}
	if got.Prev == nil || got.Prev.Key != "overview" || got.Next == nil || got.Next.Key != "filing" {
		t.Errorf("unexpected neighbours %+v / %+v", got.Prev, got.Next)
	}

	rec = do(t, s, http.MethodGet, "/api/resolve?path=/nowhere", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("miss should be 200, got %d", rec.Code)
	}
	miss := decode[resolution](t, rec)
	if miss.Found || miss.Index != -1 || miss.Current != nil {
		t.Errorf("unexpected miss %+v", miss)
	}

	if rec := do(t, s, http.MethodGet, "/api/resolve", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without path, got %d", rec.Code)
	}
}

func TestUnit(t *testing.T) {
	s, _ := testServer(t, "")

	rec := do(t, s, http.MethodGet, "/api/units?path=/acq/rates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Fragment render.Fragment `json:"fragment"`
	}](t, rec)
	if got.Fragment.Placeholder || !strings.Contains(got.Fragment.HTML, "<table") {
		t.Errorf("expected rendered table, got %+v", got.Fragment)
	}
	if !strings.Contains(got.Fragment.HTML, `data-unit-path="/acq/rates"`) {
		t.Errorf("missing boundary marker in %s", got.Fragment.HTML)
	}

	rec = do(t, s, http.MethodGet, "/api/units?path=/prop/missing", nil)
	got = decode[struct {
		Fragment render.Fragment `json:"fragment"`
	}](t, rec)
	if rec.Code != http.StatusOK || !got.Fragment.Placeholder {
		t.Errorf("expected placeholder for missing payload, got %d %+v", rec.Code, got.Fragment)
	}

	if rec := do(t, s, http.MethodGet, "/api/units?path=/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

type windowBody struct {
	View      view.Snapshot     `json:"view"`
	Fragments []render.Fragment `json:"fragments"`
}

func TestViewLifecycle(t *testing.T) {
	s, views := testServer(t, "")
	s.newID = func() string { return "view-1" }

	rec := do(t, s, http.MethodPost, "/api/views", map[string]string{"path": "/acq/overview"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("mount status %d: %s", rec.Code, rec.Body.String())
	}
	mounted := decode[windowBody](t, rec)
	if mounted.View.ID != "view-1" || mounted.View.SequenceID != "acq" {
		t.Fatalf("unexpected view %+v", mounted.View)
	}
	if len(mounted.Fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(mounted.Fragments))
	}
	for i, want := range []string{"/acq/overview", "/acq/rates", "/acq/filing"} {
		if mounted.Fragments[i].Path != want {
			t.Errorf("fragment %d = %q, want %q", i, mounted.Fragments[i].Path, want)
		}
	}
	if views.Len() != 1 {
		t.Fatalf("expected 1 stored view, got %d", views.Len())
	}

	// Scrolling the rates unit into the band replaces the route in place.
	rec = do(t, s, http.MethodPost, "/api/views/view-1/scroll", map[string]any{
		"boundaries": []map[string]any{
			{"path": "/acq/overview", "top": -400, "bottom": 60},
			{"path": "/acq/rates", "top": 60, "bottom": 700},
		},
		"distance_to_bottom": 900,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("scroll status %d: %s", rec.Code, rec.Body.String())
	}
	scrolled := decode[scrollResponse](t, rec)
	if !scrolled.RouteChanged || scrolled.Replaced != "/acq/rates" {
		t.Fatalf("expected replace to /acq/rates, got %+v", scrolled)
	}
	if scrolled.View.Route != "/acq/rates" || scrolled.View.HistoryLen != 1 {
		t.Errorf("replace must be history neutral, got route=%q len=%d", scrolled.View.Route, scrolled.View.HistoryLen)
	}
	if len(scrolled.View.Loaded) != 3 {
		t.Errorf("window must not shrink on scroll, got %d units", len(scrolled.View.Loaded))
	}

	// The same tick again changes nothing.
	rec = do(t, s, http.MethodPost, "/api/views/view-1/scroll", map[string]any{
		"boundaries":         []map[string]any{{"path": "/acq/rates", "top": 60, "bottom": 700}},
		"distance_to_bottom": 900,
	})
	if again := decode[scrollResponse](t, rec); again.RouteChanged {
		t.Error("repeated tick should not change the route")
	}

	// An explicit click into another sequence pushes history.
	rec = do(t, s, http.MethodPost, "/api/views/view-1/navigate", map[string]string{"path": "/prop/overview"})
	navigated := decode[windowBody](t, rec)
	if navigated.View.SequenceID != "prop" || navigated.View.HistoryLen != 2 {
		t.Fatalf("unexpected view after navigate %+v", navigated.View)
	}
	if len(navigated.Fragments) != 2 || !navigated.Fragments[1].Placeholder {
		t.Errorf("expected 2 fragments with a placeholder, got %+v", navigated.Fragments)
	}

	// Back returns to the replaced entry.
	rec = do(t, s, http.MethodPost, "/api/views/view-1/back", nil)
	back := decode[windowBody](t, rec)
	if back.View.Route != "/acq/rates" || back.View.SequenceID != "acq" {
		t.Fatalf("unexpected view after back %+v", back.View)
	}
	if len(back.Fragments) != 2 || back.Fragments[0].Path != "/acq/rates" {
		t.Errorf("expected window from /acq/rates, got %d fragments", len(back.Fragments))
	}

	rec = do(t, s, http.MethodPost, "/api/views/view-1/back", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 at the start of history, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/views/view-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}

	rec = do(t, s, http.MethodDelete, "/api/views/view-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/views/view-1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/views/view-1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestMountView_Unsequenced(t *testing.T) {
	s, _ := testServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/views", map[string]string{"path": "/about"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	got := decode[windowBody](t, rec)
	if got.View.Sequenced || len(got.Fragments) != 0 {
		t.Errorf("expected fallback view, got %+v", got)
	}
}

func TestMountView_BadRequests(t *testing.T) {
	s, _ := testServer(t, "")

	if rec := do(t, s, http.MethodPost, "/api/views", map[string]string{"path": ""}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty path: expected 400, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/views", map[string]string{"route": "/a"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field: expected 400, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/views", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty body: expected 400, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/views/nope/scroll", map[string]any{}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown view: expected 404, got %d", rec.Code)
	}
}

func TestFetchStats(t *testing.T) {
	s, _ := testServer(t, "")
	do(t, s, http.MethodGet, "/api/units?path=/acq/overview", nil)

	rec := do(t, s, http.MethodGet, "/api/stats/fetch", nil)
	got := decode[struct {
		Fetch fetch.StatsSnapshot `json:"fetch"`
		Views int                 `json:"views"`
	}](t, rec)
	if got.Fetch.Count != 1 {
		t.Errorf("expected one fetch sample, got %+v", got.Fetch)
	}
}
