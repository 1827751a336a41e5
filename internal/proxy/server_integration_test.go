package proxy

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dunamismax/pixelthin/internal/codec"
	"github.com/dunamismax/pixelthin/internal/domain"
	"github.com/dunamismax/pixelthin/internal/fetch"
)

func newIntegrationServer(t *testing.T) *Server {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	fetcher := fetch.NewClient(fetch.Config{Timeout: 5 * time.Second, MaxBytes: 1 << 20})
	profile := domain.EncodingProfile{Format: domain.FormatWebP, JXLSpeed: domain.DefaultJXLSpeed}
	return NewServer(logger, fetcher, codec.NewAdapter(), profile, nil)
}

func buildTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode source jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestTranscodeEndToEnd(t *testing.T) {
	source := buildTestJPEG(t, 48, 32)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(source)
	}))
	defer upstream.Close()

	s := newIntegrationServer(t)
	target := "/?url=" + url.QueryEscape(upstream.URL+"/photo.jpg") + "&l=80&bw=1"
	rec := doRequest(t, s, target)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/webp" {
		t.Fatalf("expected image/webp, got %s", got)
	}

	decoded, err := codec.NewAdapter().Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode webp response: %v", err)
	}
	if decoded.Bounds().Dx() != 48 || decoded.Bounds().Dy() != 32 {
		t.Fatalf("output dimensions changed: %dx%d", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}

	// Lossy encoding wobbles individual channels a little, so grayscale is
	// checked with a tolerance rather than exact channel equality.
	const tolerance = 12
	for _, p := range []image.Point{{4, 4}, {24, 16}, {40, 28}} {
		r, g, b, _ := decoded.At(p.X, p.Y).RGBA()
		r8, g8, b8 := int(r>>8), int(g>>8), int(b>>8)
		if abs(r8-g8) > tolerance || abs(g8-b8) > tolerance {
			t.Fatalf("pixel %v not gray: r=%d g=%d b=%d", p, r8, g8, b8)
		}
	}
}

func TestTranscodeEndToEndUpstream404(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	s := newIntegrationServer(t)
	rec := doRequest(t, s, "/?url="+url.QueryEscape(upstream.URL+"/gone.jpg"))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestTranscodeEndToEndCorruptBody(t *testing.T) {
	source := buildTestJPEG(t, 64, 64)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(source[:len(source)/3])
	}))
	defer upstream.Close()

	s := newIntegrationServer(t)
	rec := doRequest(t, s, "/?url="+url.QueryEscape(upstream.URL+"/broken.jpg"))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for corrupt upstream data, got %d", rec.Code)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
