package analyses

import (
	"bytes"
	"errors"
	"testing"
)

func TestNormalizeContentType(t *testing.T) {
	cases := []struct {
		declared string
		head     []byte
		want     string
		wantErr  error
	}{
		{declared: "image/png", want: "image/png"},
		{declared: "image/jpg", want: "image/jpeg"},
		{declared: "IMAGE/JPEG", want: "image/jpeg"},
		{declared: "image/webp; charset=binary", want: "image/webp"},
		{declared: "application/octet-stream", head: pngHeader, want: "image/png"},
		{declared: "", head: pngHeader, want: "image/png"},
		{declared: "application/pdf", wantErr: ErrUnsupportedType},
		{declared: "image/gif", wantErr: ErrUnsupportedType},
		{declared: "", head: pdfBytes(), wantErr: ErrUnsupportedType},
		{declared: "", wantErr: ErrUnsupportedType},
	}
	for _, tc := range cases {
		got, err := NormalizeContentType(tc.declared, tc.head)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("%q: expected %v, got %v", tc.declared, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.declared, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.declared, tc.want, got)
		}
	}
}

func TestReadScreenshotLimits(t *testing.T) {
	const max = 1024

	if _, err := ReadScreenshot(bytes.NewReader(nil), "image/png", 0, max); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage for empty body, got %v", err)
	}
	if _, err := ReadScreenshot(bytes.NewReader(pngBytes(max+1)), "image/png", -1, max); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge when unknown size overflows, got %v", err)
	}
	if _, err := ReadScreenshot(bytes.NewReader(pngBytes(10)), "image/png", max+1, max); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for announced size, got %v", err)
	}

	shot, err := ReadScreenshot(bytes.NewReader(pngBytes(max)), "", int64(max), max)
	if err != nil {
		t.Fatalf("expected exactly max bytes to pass: %v", err)
	}
	if shot.MIMEType != "image/png" || len(shot.Data) != max {
		t.Fatalf("unexpected screenshot: %s %d", shot.MIMEType, len(shot.Data))
	}
}
