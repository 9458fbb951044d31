package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dunamismax/imagehelper/internal/domain"
	"github.com/dunamismax/imagehelper/internal/imagestore"
	"github.com/dunamismax/imagehelper/internal/normalizer"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxUploadBytes = 10 << 20
	formOverheadBytes     = 1 << 20
)

type imageStore interface {
	Upload(ctx context.Context, file imagestore.UploadedFile, dir string, opts domain.UploadOptions) (string, error)
	Update(ctx context.Context, newFile imagestore.UploadedFile, oldRef, dir string, opts domain.UploadOptions) (string, error)
	Delete(ctx context.Context, ref string) bool
	Root() string
}

type Server struct {
	logger                *log.Logger
	images                imageStore
	metrics               *metrics
	tracer                trace.Tracer
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	maxUploadBytes        int64
	defaultDir            string
	mux                   *http.ServeMux
}

type Option func(*Server)

// WithRegistry exposes reg on /metrics and registers the HTTP collectors on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = newMetrics(reg)
	}
}

func WithRateLimiter(limiter RateLimiter, userIDHeader string) Option {
	return func(s *Server) {
		s.rateLimiter = limiter
		s.rateLimitUserIDHeader = userIDHeader
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithDefaultDir(dir string) Option {
	return func(s *Server) {
		if strings.TrimSpace(dir) != "" {
			s.defaultDir = dir
		}
	}
}

func NewServer(logger *log.Logger, images imageStore, opts ...Option) *Server {
	s := &Server{
		logger:                logger,
		images:                images,
		tracer:                otel.Tracer("imagehelper/api"),
		rateLimitUserIDHeader: "X-User-ID",
		maxUploadBytes:        defaultMaxUploadBytes,
		defaultDir:            domain.DefaultUploadDir,
		mux:                   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.metrics.withHTTPMetrics(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /v1/images", s.handleUpload)
	s.mux.HandleFunc("PUT /v1/images", s.handleUpdate)
	s.mux.HandleFunc("DELETE /v1/images", s.handleDelete)
	s.mux.Handle("GET /public/", http.StripPrefix("/public/", http.FileServer(http.Dir(s.images.Root()))))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseForm(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if form.file == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}

	ref, err := s.images.Upload(r.Context(), form.file, form.dir, form.options)
	if err != nil {
		s.writeStoreError(w, "upload", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"path": ref,
		"url":  "/public/" + ref,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseForm(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	oldRef := strings.TrimSpace(r.FormValue("old_path"))
	ref, err := s.images.Update(r.Context(), form.file, oldRef, form.dir, form.options)
	if err != nil {
		s.writeStoreError(w, "update", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":     ref,
		"replaced": form.file != nil,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(r.URL.Query().Get("path"))
	writeJSON(w, http.StatusOK, map[string]bool{
		"deleted": s.images.Delete(r.Context(), ref),
	})
}

type uploadForm struct {
	file    imagestore.UploadedFile
	dir     string
	options domain.UploadOptions
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) (uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return uploadForm{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	var form uploadForm
	if headers := r.MultipartForm.File["file"]; len(headers) > 0 {
		form.file = imagestore.FromFileHeader(headers[0])
	}

	form.dir = strings.TrimSpace(r.FormValue("dir"))
	if form.dir == "" {
		form.dir = s.defaultDir
	}
	if _, err := domain.NormalizeDir(form.dir); err != nil {
		return uploadForm{}, err
	}

	opts := domain.UploadOptions{Name: strings.TrimSpace(r.FormValue("name"))}
	var err error
	if opts.Width, err = formInt(r.MultipartForm, "width"); err != nil {
		return uploadForm{}, err
	}
	if opts.Height, err = formInt(r.MultipartForm, "height"); err != nil {
		return uploadForm{}, err
	}
	if allowed := strings.TrimSpace(r.FormValue("allowed")); allowed != "" {
		for _, ext := range strings.Split(allowed, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				opts.Allowed = append(opts.Allowed, ext)
			}
		}
	}
	if err := opts.Validate(); err != nil {
		return uploadForm{}, err
	}

	form.options = opts
	return form, nil
}

func formInt(form *multipart.Form, key string) (int, error) {
	values := form.Value[key]
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, normalizer.ErrUnsupportedFormat):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case errors.Is(err, normalizer.ErrInvalidImage), errors.Is(err, normalizer.ErrDimensionLimit):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, imagestore.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	default:
		s.logger.Printf("image %s failed: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store image"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
