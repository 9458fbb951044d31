package normalizer

import (
	"bytes"
	"fmt"
)

const (
	DefaultMaxDimension = 8192
	DefaultMaxPixels    = 40_000_000
)

// Limits caps the decoded source and the resampled output. Zero fields take
// the defaults.
type Limits struct {
	// MaxDimension bounds each side of the output canvas.
	MaxDimension int
	// MaxPixels bounds width*height of the source as declared in its header.
	MaxPixels int64
}

func DefaultLimits() Limits {
	return Limits{MaxDimension: DefaultMaxDimension, MaxPixels: DefaultMaxPixels}
}

func (l Limits) withDefaults() Limits {
	if l.MaxDimension <= 0 {
		l.MaxDimension = DefaultMaxDimension
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = DefaultMaxPixels
	}
	return l
}

// checkSource rejects a source whose declared size exceeds MaxPixels.
func (l Limits) checkSource(w, h int) error {
	l = l.withDefaults()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: source has invalid dimensions %dx%d", ErrInvalidImage, w, h)
	}
	if int64(w) > l.MaxPixels || int64(h) > l.MaxPixels || int64(w)*int64(h) > l.MaxPixels {
		return fmt.Errorf("%w: source %dx%d exceeds %d pixels", ErrDimensionLimit, w, h, l.MaxPixels)
	}
	return nil
}

// resolveOutput resolves spec against the source and bounds every side of
// the result by MaxDimension.
func (l Limits) resolveOutput(srcW, srcH int, spec ResizeSpec) (int, int, error) {
	l = l.withDefaults()
	if spec.Width > l.MaxDimension || spec.Height > l.MaxDimension {
		return 0, 0, fmt.Errorf("%w: requested %dx%d exceeds %d per side", ErrDimensionLimit, spec.Width, spec.Height, l.MaxDimension)
	}

	width, height, err := ResolveDimensions(srcW, srcH, spec)
	if err != nil {
		return 0, 0, err
	}
	if width > l.MaxDimension || height > l.MaxDimension {
		return 0, 0, fmt.Errorf("%w: output %dx%d exceeds %d per side", ErrDimensionLimit, width, height, l.MaxDimension)
	}
	return width, height, nil
}

// inspect sniffs the payload and reads its header so oversized images are
// rejected before any pixel buffer is allocated.
func inspect(data []byte, codec Codec, limits Limits) error {
	if err := checkContent(data, codec); err != nil {
		return err
	}
	cfg, err := codec.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: read %s header: %v", ErrInvalidImage, codec.Name, err)
	}
	return limits.checkSource(cfg.Width, cfg.Height)
}
