//go:build govips && cgo

package codec

import (
	"testing"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/pixelthin/internal/domain"
)

func TestEncodeJXLRoundTrip(t *testing.T) {
	if err := Startup(); err != nil {
		t.Fatalf("vips startup: %v", err)
	}

	adapter := NewAdapter()
	src, err := adapter.Decode(buildTestPNG(t, 72, 48))
	if err != nil {
		t.Fatalf("decode source: %v", err)
	}

	profile := domain.EncodingProfile{Format: domain.FormatJXL, JXLSpeed: 1}
	out, err := adapter.Encode(src, profile, 80)
	if err != nil {
		t.Fatalf("encode returned error: %v", err)
	}
	if out.MIMEType != "image/jxl" {
		t.Fatalf("expected image/jxl, got %s", out.MIMEType)
	}

	ref, err := vips.NewImageFromBuffer(out.Bytes)
	if err != nil {
		t.Fatalf("decode jxl output: %v", err)
	}
	defer ref.Close()

	if ref.Width() != 72 || ref.Height() != 48 {
		t.Fatalf("round trip changed dimensions: %dx%d", ref.Width(), ref.Height())
	}
	if ref.HasAlpha() {
		t.Fatal("jxl output must not carry an alpha channel")
	}
}

func TestJXLEffortMapping(t *testing.T) {
	if got := jxlEffort(8); got != 9 {
		t.Fatalf("expected speed 8 to map to effort 9, got %d", got)
	}
	for speed := 1; speed <= 7; speed++ {
		if got := jxlEffort(speed); got != speed {
			t.Fatalf("expected speed %d to map to effort %d, got %d", speed, speed, got)
		}
	}
}
