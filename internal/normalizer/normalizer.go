// Package normalizer decodes an uploaded image, resizes it and re-encodes it
// until the output lands inside a byte-size band.
package normalizer

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidImage      = errors.New("invalid image")
	ErrDimensionLimit    = errors.New("image dimensions exceed limit")
)

const (
	DefaultTargetMin    = 15 * 1024
	DefaultTargetMax    = 30 * 1024
	DefaultStartQuality = 90
	DefaultMinQuality   = 40
	DefaultMaxQuality   = 95
	DefaultStepDown     = 10
	DefaultStepUp       = 5
	DefaultMaxAttempts  = 5
)

// EncodeConstraint bounds the quality search. MaxAttempts <= 0 lets the loop
// run until the band check or a quality bound stops it.
type EncodeConstraint struct {
	TargetMin    int
	TargetMax    int
	StartQuality int
	MinQuality   int
	MaxQuality   int
	StepDown     int
	StepUp       int
	MaxAttempts  int
}

func DefaultConstraint() EncodeConstraint {
	return EncodeConstraint{
		TargetMin:    DefaultTargetMin,
		TargetMax:    DefaultTargetMax,
		StartQuality: DefaultStartQuality,
		MinQuality:   DefaultMinQuality,
		MaxQuality:   DefaultMaxQuality,
		StepDown:     DefaultStepDown,
		StepUp:       DefaultStepUp,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// withDefaults fills zero fields, leaving MaxAttempts alone so a caller can
// still opt into the unbounded loop with a negative value.
func (c EncodeConstraint) withDefaults() EncodeConstraint {
	d := DefaultConstraint()
	if c.TargetMin <= 0 {
		c.TargetMin = d.TargetMin
	}
	if c.TargetMax <= 0 {
		c.TargetMax = d.TargetMax
	}
	if c.StartQuality <= 0 {
		c.StartQuality = d.StartQuality
	}
	if c.MinQuality <= 0 {
		c.MinQuality = d.MinQuality
	}
	if c.MaxQuality <= 0 {
		c.MaxQuality = d.MaxQuality
	}
	if c.StepDown <= 0 {
		c.StepDown = d.StepDown
	}
	if c.StepUp <= 0 {
		c.StepUp = d.StepUp
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	return c
}

// ResizeSpec holds the requested output size. Zero means absent.
type ResizeSpec struct {
	Width  int
	Height int
}

type Input struct {
	Data       []byte
	Extension  string
	Allowed    []string
	Resize     ResizeSpec
	Constraint EncodeConstraint
	Limits     Limits
}

type Result struct {
	Data           []byte
	Format         string
	Width          int
	Height         int
	Quality        int
	Attempts       int
	AlphaPreserved bool
}

type Normalizer interface {
	Normalize(ctx context.Context, in Input) (Result, error)
}

// New returns the normalizer selected at build time.
func New() (Normalizer, error) {
	return newNormalizer()
}
