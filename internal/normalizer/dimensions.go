package normalizer

import "fmt"

// ResolveDimensions applies spec to a srcW x srcH source. When both sides are
// requested the aspect ratio is not preserved. A derived side that truncates
// to zero is raised to one pixel.
func ResolveDimensions(srcW, srcH int, spec ResizeSpec) (int, int, error) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0, fmt.Errorf("%w: source has invalid dimensions %dx%d", ErrInvalidImage, srcW, srcH)
	}

	width, height := spec.Width, spec.Height
	switch {
	case width > 0 && height > 0:
		return width, height, nil
	case width > 0:
		height = int(float64(srcH) / float64(srcW) * float64(width))
	case height > 0:
		width = int(float64(srcW) / float64(srcH) * float64(height))
	default:
		return srcW, srcH, nil
	}

	return max(1, width), max(1, height), nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
