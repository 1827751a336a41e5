package codec

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
)

// encodeWebP keeps the input's alpha channel; the encoder handles both
// opaque and transparent rasters.
func encodeWebP(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	err := webp.Encode(&buf, img, &webp.Options{
		Lossless: false,
		Quality:  float32(quality),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
