package resolve

import (
	"errors"
	"net/url"
	"testing"

	"github.com/dunamismax/pixelthin/internal/domain"
)

func TestResolveDefaults(t *testing.T) {
	req, err := Resolve(url.Values{"url": {"https://example.com/cat.jpg"}})
	if err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}
	if req.SourceURL != "https://example.com/cat.jpg" {
		t.Fatalf("unexpected source url: %s", req.SourceURL)
	}
	if req.Quality != domain.DefaultQuality {
		t.Fatalf("expected default quality %d, got %d", domain.DefaultQuality, req.Quality)
	}
	if !req.Grayscale {
		t.Fatal("expected grayscale on by default")
	}
}

func TestResolveQualityRange(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want int
	}{
		{"0", 0},
		{"37", 37},
		{"100", 100},
		{"-5", 0},
		{"250", 100},
		{"high", domain.DefaultQuality},
		{"", domain.DefaultQuality},
	} {
		req, err := Resolve(url.Values{
			"url": {"http://example.com/a.png"},
			"l":   {tc.raw},
		})
		if err != nil {
			t.Fatalf("l=%q: expected no error, got %v", tc.raw, err)
		}
		if req.Quality != tc.want {
			t.Fatalf("l=%q: expected quality %d, got %d", tc.raw, tc.want, req.Quality)
		}
	}
}

func TestResolveGrayscale(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want bool
	}{
		{"1", true},
		{"0", false},
		{"yes", false},
		{"2", false},
	} {
		req, err := Resolve(url.Values{
			"url": {"http://example.com/a.png"},
			"bw":  {tc.raw},
		})
		if err != nil {
			t.Fatalf("bw=%q: expected no error, got %v", tc.raw, err)
		}
		if req.Grayscale != tc.want {
			t.Fatalf("bw=%q: expected grayscale=%v, got %v", tc.raw, tc.want, req.Grayscale)
		}
	}
}

func TestResolveRejectsMissingOrInvalidURL(t *testing.T) {
	if _, err := Resolve(url.Values{}); !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
	if _, err := Resolve(url.Values{"url": {"   "}}); !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL for blank value, got %v", err)
	}

	for _, raw := range []string{
		"not a url at all\x7f",
		"/relative/path.jpg",
		"ftp://example.com/a.png",
		"https://",
	} {
		if _, err := Resolve(url.Values{"url": {raw}}); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("url=%q: expected ErrInvalidURL, got %v", raw, err)
		}
	}
}
