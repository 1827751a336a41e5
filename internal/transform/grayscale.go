// Package transform holds pure raster operations. Nothing here does I/O and
// nothing can fail: inputs are already-decoded, valid pixel buffers.
package transform

import (
	"image"
	"image/draw"
)

// Grayscale maps every pixel to its BT.601 luma (299r + 587g + 114b)/1000,
// leaving the alpha channel untouched. The result is a fresh buffer; the
// input is never written to. Applying it twice is a no-op on the second pass.
func Grayscale(src image.Image) image.Image {
	switch img := src.(type) {
	case *image.NRGBA:
		return grayscaleNRGBA(img)
	case *image.RGBA:
		return grayscaleRGBA(img)
	default:
		return grayscaleNRGBA(toNRGBA(src))
	}
}

func grayscaleNRGBA(src *image.NRGBA) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		srcRow := src.Pix[(y-bounds.Min.Y)*src.Stride:]
		dstRow := dst.Pix[(y-bounds.Min.Y)*dst.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			i := x * 4
			l := luma(srcRow[i], srcRow[i+1], srcRow[i+2])
			dstRow[i] = l
			dstRow[i+1] = l
			dstRow[i+2] = l
			dstRow[i+3] = srcRow[i+3]
		}
	}
	return dst
}

func grayscaleRGBA(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		srcRow := src.Pix[(y-bounds.Min.Y)*src.Stride:]
		dstRow := dst.Pix[(y-bounds.Min.Y)*dst.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			i := x * 4
			// Premultiplied channels share the same scale factor, so the
			// weighted sum stays consistent with the alpha value.
			l := luma(srcRow[i], srcRow[i+1], srcRow[i+2])
			dstRow[i] = l
			dstRow[i+1] = l
			dstRow[i+2] = l
			dstRow[i+3] = srcRow[i+3]
		}
	}
	return dst
}

func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*299 + uint32(g)*587 + uint32(b)*114) / 1000)
}

func toNRGBA(src image.Image) *image.NRGBA {
	if img, ok := src.(*image.NRGBA); ok {
		return img
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
