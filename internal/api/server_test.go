package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dunamismax/imagehelper/internal/imagestore"
	"github.com/dunamismax/imagehelper/internal/normalizer"
	"github.com/dunamismax/imagehelper/internal/ratelimit"
)

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUploadStoresImage(t *testing.T) {
	srv, store := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/v1/images", map[string]string{
		"dir":   "/avatars/",
		"width": "40",
	}, "Portrait.png", buildTestPNG(t, 80, 40))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(body["path"], "avatars/portrait-") {
		t.Fatalf("unexpected path %q", body["path"])
	}
	if _, err := os.Stat(filepath.Join(store.Root(), filepath.FromSlash(body["path"]))); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}

	get := httptest.NewRecorder()
	srv.Handler().ServeHTTP(get, httptest.NewRequest(http.MethodGet, body["url"], nil))
	if get.Code != http.StatusOK {
		t.Fatalf("expected public file to be served, got %d", get.Code)
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	srv, store := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/v1/images", nil, "legacy.bmp", []byte("BM"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected nothing written, found %d entries", len(entries))
	}
}

func TestUploadRejectsOversizedDimensions(t *testing.T) {
	srv, store := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/v1/images", map[string]string{
		"width":  "2147483648",
		"height": "2147483648",
	}, "a.png", buildTestPNG(t, 20, 20))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rec.Code, rec.Body.String())
	}
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected nothing written, found %d entries", len(entries))
	}
}

func TestUploadRejectsBadForm(t *testing.T) {
	srv, _ := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/v1/images", map[string]string{"width": "wide"}, "a.png", buildTestPNG(t, 4, 4))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric width, got %d", rec.Code)
	}

	req = multipartRequest(t, http.MethodPost, "/v1/images", nil, "", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %d", rec.Code)
	}
}

func TestUpdateWithoutFileEchoesOldPath(t *testing.T) {
	srv, _ := newTestServer(t)

	req := multipartRequest(t, http.MethodPut, "/v1/images", map[string]string{"old_path": "uploads/old.png"}, "", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Path     string `json:"path"`
		Replaced bool   `json:"replaced"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Path != "uploads/old.png" || body.Replaced {
		t.Fatalf("unexpected response %+v", body)
	}
}

func TestDeleteMissingReportsFalse(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/images?path=uploads/nope.png", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"deleted":false}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestRateLimitRejectsWrites(t *testing.T) {
	store := newTestStore(t)
	srv := NewServer(log.New(io.Discard, "", 0), store, WithRateLimiter(denyLimiter{}, "X-User-ID"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/images?path=x.png", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}

	health := httptest.NewRecorder()
	srv.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("expected reads to bypass rate limit, got %d", health.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/v1/images", "/v1/images"},
		{"/public/uploads/a.png", "/public"},
		{"/healthz", "/healthz"},
		{"/nope", "other"},
	}
	for _, tc := range cases {
		if got := routeLabel(tc.path); got != tc.want {
			t.Fatalf("routeLabel(%q): expected %q, got %q", tc.path, tc.want, got)
		}
	}
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}, nil
}

func newTestServer(t *testing.T) (*Server, *imagestore.Store) {
	t.Helper()

	store := newTestStore(t)
	return NewServer(log.New(io.Discard, "", 0), store), store
}

func newTestStore(t *testing.T) *imagestore.Store {
	t.Helper()

	n, err := normalizer.New()
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}
	store, err := imagestore.New(imagestore.Config{Root: t.TempDir()}, n, nil, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func buildTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8((x * 255) / w), G: 90, B: uint8((y * 255) / h), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}
