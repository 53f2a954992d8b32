package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, root, rel, body string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestDirSource_Open(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "acquisition/overview.md", "# 취득세")
	src := NewDirSource(root)

	rc, err := src.Open(context.Background(), "acquisition/overview.md")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := readAll(t, rc); got != "# 취득세" {
		t.Errorf("body = %q", got)
	}

	// A leading slash is tolerated.
	rc, err = src.Open(context.Background(), "/acquisition/overview.md")
	if err != nil {
		t.Fatalf("Open with leading slash: %v", err)
	}
	rc.Close()
}

func TestDirSource_NotFound(t *testing.T) {
	src := NewDirSource(t.TempDir())
	_, err := src.Open(context.Background(), "missing.md")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirSource_RejectsTraversal(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "content")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, parent, "secret.txt", "nope")
	src := NewDirSource(root)

	for _, ref := range []string{"../secret.txt", "a/../../secret.txt", "..", ""} {
		if _, err := src.Open(context.Background(), ref); err == nil {
			t.Errorf("Open(%q): expected error", ref)
		}
	}
}

func TestDirSource_Ref(t *testing.T) {
	root := t.TempDir()
	src := NewDirSource(root)

	ref, ok := src.Ref(filepath.Join(root, "property", "rates.json"))
	if !ok || ref != "property/rates.json" {
		t.Errorf("Ref = %q, %v", ref, ok)
	}
	if _, ok := src.Ref(filepath.Join(filepath.Dir(root), "other.json")); ok {
		t.Error("expected path outside root to be rejected")
	}
	if _, ok := src.Ref(root); ok {
		t.Error("expected root itself to be rejected")
	}
}

func TestHTTPSource_Open(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/content/property/rates.json":
			w.Write([]byte(`{"title":"세율"}`))
		case "/content/flaky.json":
			http.Error(w, "upstream down", http.StatusBadGateway)
		case "/content/forbidden.json":
			http.Error(w, "no", http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/content/", "secret", time.Second)
	defer src.Close()

	rc, err := src.Open(context.Background(), "property/rates.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := readAll(t, rc); got != `{"title":"세율"}` {
		t.Errorf("body = %q", got)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/content/property/rates.json" {
		t.Errorf("path = %q", gotPath)
	}

	if _, err := src.Open(context.Background(), "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = src.Open(context.Background(), "flaky.json")
	var retryErr *RetryableError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if retryErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", retryErr.StatusCode)
	}

	_, err = src.Open(context.Background(), "forbidden.json")
	if err == nil || IsRetryable(err) || errors.Is(err, ErrNotFound) {
		t.Errorf("expected plain error for 403, got %v", err)
	}
}

func TestHTTPSource_NoKeyNoHeader(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rc, err := NewHTTPSource(srv.URL, "", 0).Open(context.Background(), "a.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rc.Close()
	if sawAuth {
		t.Error("expected no Authorization header without a key")
	}
}

func TestHTTPSource_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, "", time.Second).Open(context.Background(), "a.txt")
	if !IsRetryable(err) {
		t.Errorf("expected retryable transport error, got %v", err)
	}
}
