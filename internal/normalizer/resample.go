package normalizer

import (
	"image"

	"golang.org/x/image/draw"
)

type opaquer interface {
	Opaque() bool
}

// HasAlpha reports whether any pixel of img is not fully opaque. It walks
// every pixel.
func HasAlpha(img image.Image) bool {
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// Resample scales src onto a fresh width x height canvas with a bicubic
// kernel. With keepAlpha the canvas starts fully transparent and source
// pixels replace it, so translucency survives.
func Resample(src image.Image, width, height int, keepAlpha bool) image.Image {
	rect := image.Rect(0, 0, width, height)
	if keepAlpha {
		dst := image.NewNRGBA(rect)
		draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
		return dst
	}

	dst := image.NewRGBA(rect)
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
	return dst
}
