package imagestore

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dunamismax/imagehelper/internal/id"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const randomSuffixLen = 10

// GenerateFilename returns {slug}-{random10}.{ext}.
func GenerateFilename(baseName, ext string) (string, error) {
	suffix, err := id.Random(randomSuffixLen)
	if err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}
	return Slugify(baseName) + "-" + suffix + "." + strings.ToLower(strings.TrimPrefix(ext, ".")), nil
}

// Slugify lowercases s, folds accented letters to ASCII and joins the
// remaining alphanumeric runs with single hyphens. It returns "file" when
// nothing survives.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
