package normalizer

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"
)

func TestNormalize_RejectsHugeRequestedDimensions(t *testing.T) {
	_, err := stdlibNormalizer{}.Normalize(context.Background(), Input{
		Data:      buildTestPNG(t, 20, 20, nil),
		Extension: "png",
		Resize:    ResizeSpec{Width: 1 << 31, Height: 1 << 31},
	})
	if !errors.Is(err, ErrDimensionLimit) {
		t.Fatalf("expected ErrDimensionLimit, got %v", err)
	}
}

func TestNormalize_RejectsDerivedSideOverLimit(t *testing.T) {
	_, err := stdlibNormalizer{}.Normalize(context.Background(), Input{
		Data:      buildTestPNG(t, 10, 1000, nil),
		Extension: "png",
		Resize:    ResizeSpec{Width: 100},
	})
	if !errors.Is(err, ErrDimensionLimit) {
		t.Fatalf("expected ErrDimensionLimit for a 100x10000 output, got %v", err)
	}
}

func TestNormalize_RejectsOversizedHeaderBeforeDecode(t *testing.T) {
	data := withPNGSize(t, buildTestPNG(t, 20, 20, nil), 50000, 50000)

	_, err := stdlibNormalizer{}.Normalize(context.Background(), Input{
		Data:      data,
		Extension: "png",
	})
	if !errors.Is(err, ErrDimensionLimit) {
		t.Fatalf("expected ErrDimensionLimit, got %v", err)
	}
}

func TestNormalize_CustomLimits(t *testing.T) {
	in := Input{
		Data:      buildTestPNG(t, 100, 100, nil),
		Extension: "png",
		Resize:    ResizeSpec{Width: 60},
		Limits:    Limits{MaxDimension: 50},
	}
	if _, err := (stdlibNormalizer{}).Normalize(context.Background(), in); !errors.Is(err, ErrDimensionLimit) {
		t.Fatalf("expected ErrDimensionLimit for width 60 over limit 50, got %v", err)
	}

	in.Resize = ResizeSpec{Width: 40}
	res, err := stdlibNormalizer{}.Normalize(context.Background(), in)
	if err != nil {
		t.Fatalf("normalize within limit: %v", err)
	}
	if res.Width != 40 || res.Height != 40 {
		t.Fatalf("expected 40x40, got %dx%d", res.Width, res.Height)
	}

	in.Resize = ResizeSpec{}
	in.Limits = Limits{MaxPixels: 100 * 99}
	if _, err := (stdlibNormalizer{}).Normalize(context.Background(), in); !errors.Is(err, ErrDimensionLimit) {
		t.Fatalf("expected ErrDimensionLimit for 100x100 source over 9900 pixels, got %v", err)
	}
}

func TestLimits_CheckSource(t *testing.T) {
	cases := []struct {
		name string
		w, h int
		want error
	}{
		{"within", 4000, 3000, nil},
		{"too many pixels", 8000, 8000, ErrDimensionLimit},
		{"one huge side", 100_000_000, 1, ErrDimensionLimit},
		{"zero side", 0, 10, ErrInvalidImage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := DefaultLimits().checkSource(tc.w, tc.h)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// withPNGSize rewrites the IHDR width and height of an encoded PNG and fixes
// the chunk CRC, leaving the pixel data untouched.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()

	if len(data) < 33 || string(data[12:16]) != "IHDR" {
		t.Fatal("expected IHDR as first chunk")
	}
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}
