//go:build !govips || !cgo

package codec

import (
	"errors"
	"image"
)

func encodeJXL(image.Image, int, int) ([]byte, error) {
	return nil, errors.New("jpeg xl export requires the govips build tag")
}
