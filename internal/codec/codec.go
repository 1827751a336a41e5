// Package codec is a uniform surface over the image decoders and the two
// output encoders (WebP and JPEG XL). Callers never see per-codec option
// structs; dispatch happens on the process-wide encoding profile.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/dunamismax/pixelthin/internal/domain"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorrupt           = errors.New("corrupt image data")
	ErrEncodeFailure     = errors.New("image encode failed")
)

// Output is one encoded image, owned by the caller until written out.
type Output struct {
	Bytes    []byte
	MIMEType string
}

type Adapter struct{}

func NewAdapter() Adapter {
	return Adapter{}
}

// Decode turns an encoded byte stream into a pixel buffer. A container the
// registered decoders do not recognize maps to ErrUnsupportedFormat; a
// recognized container with broken pixel data maps to ErrCorrupt.
func (Adapter) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return img, nil
}

// Encode re-encodes img according to the profile's format. Quality follows
// the WebP convention at this boundary (0 worst, 100 best); the JPEG XL path
// converts it to a Butteraugli distance internally.
func (Adapter) Encode(img image.Image, profile domain.EncodingProfile, quality int) (Output, error) {
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}

	switch profile.Format {
	case domain.FormatWebP:
		data, err := encodeWebP(img, quality)
		if err != nil {
			return Output{}, fmt.Errorf("%w: webp: %v", ErrEncodeFailure, err)
		}
		return Output{Bytes: data, MIMEType: domain.FormatWebP.MIMEType()}, nil
	case domain.FormatJXL:
		data, err := encodeJXL(img, quality, profile.JXLSpeed)
		if err != nil {
			return Output{}, fmt.Errorf("%w: jxl: %v", ErrEncodeFailure, err)
		}
		return Output{Bytes: data, MIMEType: domain.FormatJXL.MIMEType()}, nil
	default:
		return Output{}, fmt.Errorf("%w: unknown target format %q", ErrEncodeFailure, profile.Format)
	}
}

// jxlDistance maps the 0-100 request quality onto libjxl's inverted scale,
// where lower distance means better fidelity and 0 is lossless. The curve is
// deliberately non-linear so mid-range requests keep more detail than a
// straight inversion would.
func jxlDistance(quality int) float64 {
	if jxlLossless(quality) {
		return 0
	}
	normalized := float64(quality) / 100.0
	return 8.0 * (1.0 - math.Pow(normalized, 0.7))
}

func jxlLossless(quality int) bool {
	return quality >= 95
}
