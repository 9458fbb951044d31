package normalizer

import (
	"context"
	"fmt"
)

type stdlibNormalizer struct{}

func (n stdlibNormalizer) Normalize(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	codec, err := Lookup(in.Extension, in.Allowed)
	if err != nil {
		return Result{}, err
	}

	src, err := decode(in.Data, codec, in.Limits)
	if err != nil {
		return Result{}, err
	}

	bounds := src.Bounds()
	width, height, err := in.Limits.resolveOutput(bounds.Dx(), bounds.Dy(), in.Resize)
	if err != nil {
		return Result{}, err
	}

	keepAlpha := codec.SupportsAlpha && HasAlpha(src)
	canvas := Resample(src, width, height, keepAlpha)

	data, quality, attempts, err := SearchQuality(canvas, codec, in.Constraint)
	if err != nil {
		return Result{}, fmt.Errorf("quality search: %w", err)
	}

	return Result{
		Data:           data,
		Format:         codec.Name,
		Width:          width,
		Height:         height,
		Quality:        quality,
		Attempts:       attempts,
		AlphaPreserved: keepAlpha,
	}, nil
}
