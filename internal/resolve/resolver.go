// Package resolve turns raw query parameters into a validated transcode
// request. Quality and grayscale are soft constraints: out-of-range or
// malformed values fall back to something usable instead of failing the
// request. Only the source URL is hard-validated.
package resolve

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dunamismax/pixelthin/internal/domain"
)

const (
	paramURL       = "url"
	paramQuality   = "l"
	paramGrayscale = "bw"
)

var (
	ErrMissingURL = errors.New("missing url parameter")
	ErrInvalidURL = errors.New("invalid url parameter")
)

func Resolve(params url.Values) (domain.TranscodeRequest, error) {
	raw := strings.TrimSpace(params.Get(paramURL))
	if raw == "" {
		return domain.TranscodeRequest{}, ErrMissingURL
	}

	source, err := url.Parse(raw)
	if err != nil {
		return domain.TranscodeRequest{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !source.IsAbs() || (source.Scheme != "http" && source.Scheme != "https") {
		return domain.TranscodeRequest{}, fmt.Errorf("%w: expected absolute http(s) URL, got %q", ErrInvalidURL, raw)
	}
	if source.Host == "" {
		return domain.TranscodeRequest{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}

	return domain.TranscodeRequest{
		SourceURL: source.String(),
		Quality:   resolveQuality(params),
		Grayscale: resolveGrayscale(params),
	}, nil
}

func resolveQuality(params url.Values) int {
	raw := strings.TrimSpace(params.Get(paramQuality))
	if raw == "" {
		return domain.DefaultQuality
	}
	quality, err := strconv.Atoi(raw)
	if err != nil {
		return domain.DefaultQuality
	}
	if quality < 0 {
		return 0
	}
	if quality > 100 {
		return 100
	}
	return quality
}

func resolveGrayscale(params url.Values) bool {
	if !params.Has(paramGrayscale) {
		return true
	}
	// Only "1" switches grayscale on; anything else is treated as an
	// explicit request for color output.
	return strings.TrimSpace(params.Get(paramGrayscale)) == "1"
}
