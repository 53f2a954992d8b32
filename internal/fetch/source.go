package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when a source has no payload for a ref.
var ErrNotFound = errors.New("payload not found")

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retryable error: %v", e.Err)
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Source opens the raw bytes behind a unit's DataRef.
type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// cleanRef turns a DataRef into a slash-separated relative path. Refs that
// would escape the content root are rejected.
func cleanRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty ref: %w", ErrNotFound)
	}
	cleaned := path.Clean(strings.TrimPrefix(ref, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("ref %q escapes content root", ref)
	}
	return cleaned, nil
}

// DirSource serves payloads from a directory on disk.
type DirSource struct {
	root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: filepath.Clean(root)}
}

// Root returns the directory payloads are read from.
func (d *DirSource) Root() string { return d.root }

func (d *DirSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	return f, nil
}

// Ref maps an absolute file path under the root back to its DataRef.
func (d *DirSource) Ref(abs string) (string, bool) {
	rel, err := filepath.Rel(d.root, abs)
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// HTTPSource fetches payloads from a remote content service.
type HTTPSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPSource(baseURL, apiKey string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (h *HTTPSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	rel, err := cleanRef(ref)
	if err != nil {
		return nil, err
	}
	u := h.baseURL + "/" + (&url.URL{Path: rel}).EscapedPath()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: status %d: %s", rel, resp.StatusCode, string(body))
	}
}

// Close releases idle connections.
func (h *HTTPSource) Close() {
	h.httpClient.CloseIdleConnections()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
