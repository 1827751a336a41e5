package domain

import "testing"

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatWebP {
		t.Fatalf("expected webp default, got %q err=%v", f, err)
	}
	if f, err := ParseFormat("JPEGXL"); err != nil || f != FormatJXL {
		t.Fatalf("expected jxl, got %q err=%v", f, err)
	}
	if _, err := ParseFormat("avif"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFormatMIMEType(t *testing.T) {
	if got := FormatWebP.MIMEType(); got != "image/webp" {
		t.Fatalf("expected image/webp, got %s", got)
	}
	if got := FormatJXL.MIMEType(); got != "image/jxl" {
		t.Fatalf("expected image/jxl, got %s", got)
	}
}

func TestNewEncodingProfile(t *testing.T) {
	profile, err := NewEncodingProfile(FormatJXL, 3)
	if err != nil {
		t.Fatalf("expected valid profile, got error: %v", err)
	}
	if profile.JXLSpeed != 3 {
		t.Fatalf("expected speed 3, got %d", profile.JXLSpeed)
	}

	if _, err := NewEncodingProfile(FormatWebP, 0); err == nil {
		t.Fatal("expected error for speed below range")
	}
	if _, err := NewEncodingProfile(FormatWebP, 9); err == nil {
		t.Fatal("expected error for speed above range")
	}
	if _, err := NewEncodingProfile("gif", DefaultJXLSpeed); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
