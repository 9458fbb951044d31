package normalizer

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/webp"
)

var DefaultAllowed = []string{"jpg", "jpeg", "png", "gif", "webp"}

// Codec pairs a decoder with a quality-aware encoder for one image family.
type Codec struct {
	Name          string
	MIME          string
	SupportsAlpha bool
	// Tunable is false for encoders that take no quality parameter.
	Tunable bool
	Decode       func(r io.Reader) (image.Image, error)
	DecodeConfig func(r io.Reader) (image.Config, error)
	Encode       func(w io.Writer, img image.Image, quality int) error
}

var (
	jpegCodec = Codec{
		Name:         "jpeg",
		MIME:         "image/jpeg",
		Tunable:      true,
		Decode:       jpeg.Decode,
		DecodeConfig: jpeg.DecodeConfig,
		Encode: func(w io.Writer, img image.Image, quality int) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		},
	}
	pngCodec = Codec{
		Name:          "png",
		MIME:          "image/png",
		SupportsAlpha: true,
		Tunable:       true,
		Decode:        png.Decode,
		DecodeConfig:  png.DecodeConfig,
		Encode: func(w io.Writer, img image.Image, quality int) error {
			encoder := png.Encoder{CompressionLevel: stdlibPNGLevel(PNGCompressionLevel(quality))}
			return encoder.Encode(w, img)
		},
	}
	gifCodec = Codec{
		Name:         "gif",
		MIME:         "image/gif",
		Decode:       gif.Decode,
		DecodeConfig: gif.DecodeConfig,
		Encode: func(w io.Writer, img image.Image, _ int) error {
			return gif.Encode(w, img, nil)
		},
	}
	webpCodec = Codec{
		Name:          "webp",
		MIME:          "image/webp",
		SupportsAlpha: true,
		Tunable:       true,
		Decode:        webp.Decode,
		DecodeConfig:  webp.DecodeConfig,
		Encode:        encodeWebP,
	}
)

var codecs = map[string]Codec{
	"jpg":  jpegCodec,
	"jpeg": jpegCodec,
	"png":  pngCodec,
	"gif":  gifCodec,
	"webp": webpCodec,
}

// NormalizeExtension lowercases ext and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// Lookup returns the codec for ext if ext is in allowed. A nil or empty
// allowed list means DefaultAllowed.
func Lookup(ext string, allowed []string) (Codec, error) {
	ext = NormalizeExtension(ext)
	if len(allowed) == 0 {
		allowed = DefaultAllowed
	}

	permitted := false
	for _, a := range allowed {
		if NormalizeExtension(a) == ext {
			permitted = true
			break
		}
	}
	if !permitted {
		return Codec{}, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}

	codec, ok := codecs[ext]
	if !ok {
		return Codec{}, fmt.Errorf("%w: no codec for .%s", ErrUnsupportedFormat, ext)
	}
	return codec, nil
}

// checkContent rejects payloads whose sniffed image type disagrees with the
// codec chosen from the extension.
func checkContent(data []byte, codec Codec) error {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(codec.MIME) {
			return nil
		}
	}
	if strings.HasPrefix(detected.String(), "image/") {
		return fmt.Errorf("%w: content is %s, extension expects %s", ErrInvalidImage, detected.String(), codec.MIME)
	}
	// Unknown content is left to the decoder to reject.
	return nil
}

func decode(data []byte, codec Codec, limits Limits) (image.Image, error) {
	if err := inspect(data, codec, limits); err != nil {
		return nil, err
	}
	img, err := codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidImage, codec.Name, err)
	}
	return img, nil
}

// PNGCompressionLevel maps a 0-100 quality onto zlib's 0-9 level, inverted:
// higher quality means less compression.
func PNGCompressionLevel(quality int) int {
	return clamp(9-int(math.Round(float64(quality)/10)), 0, 9)
}

// stdlibPNGLevel folds a zlib level onto the encoder presets. Level 0 never
// selects NoCompression.
func stdlibPNGLevel(level int) png.CompressionLevel {
	switch {
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
