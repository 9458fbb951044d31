// Package imagestore writes normalized uploads under a public root and
// manages their replacement and deletion. The returned ref ("dir/filename")
// is the only record of a stored image.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dunamismax/imagehelper/internal/domain"
	"github.com/dunamismax/imagehelper/internal/normalizer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrTooLarge = errors.New("upload exceeds size limit")

const DefaultMaxUploadBytes = 10 << 20

type Config struct {
	Root           string
	Allowed        []string
	Constraint     normalizer.EncodeConstraint
	Limits         normalizer.Limits
	MaxUploadBytes int64
}

type Store struct {
	root       string
	allowed    []string
	constraint normalizer.EncodeConstraint
	limits     normalizer.Limits
	maxBytes   int64
	normalizer normalizer.Normalizer
	logger     *log.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	filename   func(baseName, ext string) (string, error)
}

func New(cfg Config, n normalizer.Normalizer, logger *log.Logger, metrics *Metrics) (*Store, error) {
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, errors.New("storage root is required")
	}
	if n == nil {
		return nil, errors.New("normalizer is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	return &Store{
		root:       root,
		allowed:    cfg.Allowed,
		constraint: cfg.Constraint,
		limits:     cfg.Limits,
		maxBytes:   maxBytes,
		normalizer: n,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("imagehelper/imagestore"),
		filename:   GenerateFilename,
	}, nil
}

func (s *Store) Root() string {
	return s.root
}

// Upload normalizes file and writes it to {root}/{dir}/{filename}. It returns
// the relative ref "{dir}/{filename}". Nothing touches the disk unless the
// extension passes the gate and the image normalizes cleanly.
func (s *Store) Upload(ctx context.Context, file UploadedFile, dir string, opts domain.UploadOptions) (ref string, err error) {
	ctx, span := s.tracer.Start(ctx, "imagestore.upload")
	defer span.End()

	startedAt := time.Now()
	format := "unknown"
	defer func() {
		status := "succeeded"
		if err != nil {
			status = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, "upload failed")
		}
		s.metrics.observeUpload(format, status, time.Since(startedAt))
	}()

	if file == nil {
		return "", errors.New("file is required")
	}
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("invalid options: %w", err)
	}
	dir, err = domain.NormalizeDir(dir)
	if err != nil {
		return "", err
	}

	allowed := opts.Allowed
	if len(allowed) == 0 {
		allowed = s.allowed
	}
	ext := normalizer.NormalizeExtension(file.Extension())
	codec, err := normalizer.Lookup(ext, allowed)
	if err != nil {
		return "", err
	}
	format = codec.Name
	span.SetAttributes(
		attribute.String("image.extension", ext),
		attribute.String("image.dir", dir),
		attribute.Int64("image.input_bytes", file.Size()),
	)

	data, err := s.read(file)
	if err != nil {
		return "", err
	}

	res, err := s.normalizer.Normalize(ctx, normalizer.Input{
		Data:       data,
		Extension:  ext,
		Allowed:    allowed,
		Resize:     normalizer.ResizeSpec{Width: opts.Width, Height: opts.Height},
		Constraint: s.constraint,
		Limits:     s.limits,
	})
	if err != nil {
		return "", err
	}
	s.metrics.observeEncode(format, res.Attempts, len(res.Data))
	span.SetAttributes(
		attribute.Int("image.width", res.Width),
		attribute.Int("image.height", res.Height),
		attribute.Int("image.quality", res.Quality),
		attribute.Int("image.encode_attempts", res.Attempts),
		attribute.Int("image.output_bytes", len(res.Data)),
	)

	baseName := opts.Name
	if strings.TrimSpace(baseName) == "" {
		base := filepath.Base(file.Filename())
		baseName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	filename, err := s.filename(baseName, ext)
	if err != nil {
		return "", err
	}

	targetDir := filepath.Join(s.root, filepath.FromSlash(dir))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(targetDir, filename), res.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	return dir + "/" + filename, nil
}

// Delete removes the file behind ref. It reports false for an empty ref, a
// ref outside the root, a missing file, or a failed removal; it never
// returns an error.
func (s *Store) Delete(ctx context.Context, ref string) bool {
	_, span := s.tracer.Start(ctx, "imagestore.delete")
	defer span.End()

	full, ok := s.resolve(ref)
	if !ok {
		s.metrics.observeDelete("skipped")
		return false
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		s.metrics.observeDelete("missing")
		return false
	}

	if err := os.Remove(full); err != nil {
		s.logger.Printf("delete image failed ref=%s err=%v", ref, err)
		span.RecordError(err)
		s.metrics.observeDelete("failed")
		return false
	}

	s.metrics.observeDelete("deleted")
	return true
}

// Update replaces oldRef with newFile. With no new file the old ref is
// returned untouched. The old file is deleted before the upload and its
// result ignored.
func (s *Store) Update(ctx context.Context, newFile UploadedFile, oldRef, dir string, opts domain.UploadOptions) (string, error) {
	if newFile == nil {
		return oldRef, nil
	}
	if oldRef != "" {
		s.Delete(ctx, oldRef)
	}
	return s.Upload(ctx, newFile, dir, opts)
}

func (s *Store) resolve(ref string) (string, bool) {
	ref = strings.TrimLeft(strings.TrimSpace(ref), "/")
	if ref == "" {
		return "", false
	}

	full := filepath.Join(s.root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (s *Store) read(file UploadedFile) ([]byte, error) {
	if size := file.Size(); size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}
	return data, nil
}
