//go:build govips && cgo

package normalizer

import (
	"context"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsNormalizer struct{}

func (n govipsNormalizer) Normalize(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	codec, err := Lookup(in.Extension, in.Allowed)
	if err != nil {
		return Result{}, err
	}
	if err := inspect(in.Data, codec, in.Limits); err != nil {
		return Result{}, err
	}

	img, err := vips.NewImageFromBuffer(in.Data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: decode %s: %v", ErrInvalidImage, codec.Name, err)
	}
	defer img.Close()

	srcW, srcH := img.Width(), img.Height()
	width, height, err := in.Limits.resolveOutput(srcW, srcH, in.Resize)
	if err != nil {
		return Result{}, err
	}

	if width != srcW || height != srcH {
		hscale := float64(width) / float64(srcW)
		vscale := float64(height) / float64(srcH)
		if err := img.ResizeWithVScale(hscale, vscale, vips.KernelCubic); err != nil {
			return Result{}, fmt.Errorf("resize image: %w", err)
		}
	}

	// libvips reports the alpha band from the decoder, so no pixel scan here.
	keepAlpha := codec.SupportsAlpha && img.HasAlpha()
	if !keepAlpha && img.HasAlpha() {
		if err := img.Flatten(&vips.Color{R: 0, G: 0, B: 0}); err != nil {
			return Result{}, fmt.Errorf("flatten alpha: %w", err)
		}
	}

	data, quality, attempts, err := searchQuality(codec.Tunable, in.Constraint, func(quality int) ([]byte, error) {
		return exportGovipsImage(img, codec.Name, quality)
	})
	if err != nil {
		return Result{}, fmt.Errorf("quality search: %w", err)
	}

	return Result{
		Data:           data,
		Format:         codec.Name,
		Width:          img.Width(),
		Height:         img.Height(),
		Quality:        quality,
		Attempts:       attempts,
		AlphaPreserved: keepAlpha,
	}, nil
}

func exportGovipsImage(img *vips.ImageRef, format string, quality int) ([]byte, error) {
	switch format {
	case "jpeg":
		params := vips.NewJpegExportParams()
		params.Quality = clamp(quality, 1, 100)
		data, _, err := img.ExportJpeg(params)
		if err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return data, nil
	case "png":
		params := vips.NewPngExportParams()
		params.Compression = PNGCompressionLevel(quality)
		data, _, err := img.ExportPng(params)
		if err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return data, nil
	case "webp":
		params := vips.NewWebpExportParams()
		params.Quality = clamp(quality, 1, 100)
		data, _, err := img.ExportWebp(params)
		if err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return data, nil
	case "gif":
		data, _, err := img.ExportGIF(vips.NewGifExportParams())
		if err != nil {
			return nil, fmt.Errorf("encode gif: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
