package normalizer

import (
	"bytes"
	"fmt"
	"image"
)

// encodeFunc renders the canvas at a quality and returns the encoded bytes.
type encodeFunc func(quality int) ([]byte, error)

// SearchQuality re-encodes canvas, stepping quality down while the output is
// above TargetMax and up while it is below TargetMin. It stops when the size
// is inside the band, when quality hits a bound, or after MaxAttempts. The
// last encoded buffer is always returned.
func SearchQuality(canvas image.Image, codec Codec, c EncodeConstraint) ([]byte, int, int, error) {
	var buf bytes.Buffer
	return searchQuality(codec.Tunable, c, func(quality int) ([]byte, error) {
		buf.Reset()
		if err := codec.Encode(&buf, canvas, quality); err != nil {
			return nil, fmt.Errorf("encode %s: %w", codec.Name, err)
		}
		return bytes.Clone(buf.Bytes()), nil
	})
}

func searchQuality(tunable bool, c EncodeConstraint, encode encodeFunc) ([]byte, int, int, error) {
	c = c.withDefaults()
	quality := c.StartQuality

	var (
		data     []byte
		attempts int
	)
	for {
		var err error
		data, err = encode(quality)
		if err != nil {
			return nil, quality, attempts, err
		}
		attempts++

		if !tunable {
			break
		}
		if c.MaxAttempts > 0 && attempts >= c.MaxAttempts {
			break
		}

		size := len(data)
		if size > c.TargetMax && quality > c.MinQuality {
			quality -= c.StepDown
		} else if size < c.TargetMin && quality < c.MaxQuality {
			quality += c.StepUp
		} else {
			break
		}
	}

	return data, quality, attempts, nil
}
