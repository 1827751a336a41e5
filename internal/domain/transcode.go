package domain

import (
	"fmt"
	"strings"
)

const (
	DefaultQuality  = 80
	DefaultJXLSpeed = 8

	MinJXLSpeed = 1
	MaxJXLSpeed = 8
)

// Format is the target codec for re-encoded images. The set is closed:
// there are exactly two supported output formats.
type Format string

const (
	FormatWebP Format = "webp"
	FormatJXL  Format = "jxl"
)

func ParseFormat(in string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(in)) {
	case "webp", "":
		return FormatWebP, nil
	case "jxl", "jpegxl", "jpeg-xl":
		return FormatJXL, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", in)
	}
}

func (f Format) MIMEType() string {
	switch f {
	case FormatJXL:
		return "image/jxl"
	default:
		return "image/webp"
	}
}

func (f Format) Extension() string {
	switch f {
	case FormatJXL:
		return "jxl"
	default:
		return "webp"
	}
}

// EncodingProfile is the process-wide encoder selection. It is built once at
// startup and passed by value everywhere; nothing writes to it afterwards, so
// it is safe to share across request goroutines.
type EncodingProfile struct {
	Format Format

	// JXLSpeed trades encode latency for compression efficiency when Format
	// is FormatJXL: 1 is fastest, 8 is slowest and densest.
	JXLSpeed int
}

func NewEncodingProfile(format Format, jxlSpeed int) (EncodingProfile, error) {
	switch format {
	case FormatWebP, FormatJXL:
	default:
		return EncodingProfile{}, fmt.Errorf("unsupported format: %s", format)
	}
	if jxlSpeed < MinJXLSpeed || jxlSpeed > MaxJXLSpeed {
		return EncodingProfile{}, fmt.Errorf("jxl speed must be in [%d,%d], got %d", MinJXLSpeed, MaxJXLSpeed, jxlSpeed)
	}
	return EncodingProfile{Format: format, JXLSpeed: jxlSpeed}, nil
}

// TranscodeRequest is the validated form of one inbound request's query
// parameters. It never outlives the request that created it.
type TranscodeRequest struct {
	SourceURL string
	Quality   int
	Grayscale bool
}
