//go:build govips && cgo

package codec

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"
)

// encodeJXL exports through libvips. The raster crosses into vips as a
// lossless PNG buffer because govips has no raw pixel import; the JPEG XL
// path emits RGB only, so alpha is dropped before the handoff.
func encodeJXL(img image.Image, quality, speed int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dropAlpha(img)); err != nil {
		return nil, err
	}

	ref, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	if ref.HasAlpha() {
		if err := ref.Flatten(&vips.Color{R: 0, G: 0, B: 0}); err != nil {
			return nil, err
		}
	}

	params := vips.NewJxlExportParams()
	params.Lossless = jxlLossless(quality)
	params.Distance = jxlDistance(quality)
	params.Effort = jxlEffort(speed)

	data, _, err := ref.ExportJxl(params)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// dropAlpha copies the RGB channels and forces full opacity, matching the
// "emit RGB only" contract of the JPEG XL path.
func dropAlpha(img image.Image) image.Image {
	dst := image.NewNRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xFF
	}
	return dst
}

// jxlEffort translates the 1-8 speed knob onto libjxl's 1-9 effort scale.
// Speed 8 ("slowest, best compression") lands on effort 9, the encoder's
// tortoise setting; everything else maps one to one.
func jxlEffort(speed int) int {
	if speed >= 8 {
		return 9
	}
	if speed < 1 {
		return 1
	}
	return speed
}
