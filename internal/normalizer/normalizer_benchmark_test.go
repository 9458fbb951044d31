package normalizer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func BenchmarkNormalizeJPEGResize(b *testing.B) {
	source := benchmarkJPEG(b, 1920, 1080)
	in := Input{
		Data:      source,
		Extension: "jpg",
		Resize:    ResizeSpec{Width: 640},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := (stdlibNormalizer{}).Normalize(context.Background(), in); err != nil {
			b.Fatalf("normalize: %v", err)
		}
	}
}

func BenchmarkHasAlphaOpaque(b *testing.B) {
	img := image.NewNRGBA(image.Rect(0, 0, 1920, 1080))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if HasAlpha(img) {
			b.Fatal("expected opaque image")
		}
	}
}

func benchmarkJPEG(b *testing.B, w, h int) []byte {
	b.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		b.Fatalf("encode source jpeg: %v", err)
	}
	return buf.Bytes()
}
