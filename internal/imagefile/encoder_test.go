package imagefile

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestEncodeRoundTrip(t *testing.T) {
	src := samplePNG(t)
	enc := NewEncoder(0)

	got, err := enc.Encode(context.Background(), int64(len(src)), "image/png", bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got.MediaType != "image/png" {
		t.Fatalf("MediaType = %q, want image/png", got.MediaType)
	}
	if !strings.HasPrefix(got.PreviewURL, "data:image/png;base64,") {
		t.Fatalf("PreviewURL prefix = %q", got.PreviewURL[:30])
	}
	if !strings.HasSuffix(got.PreviewURL, ","+got.Data) {
		t.Fatal("PreviewURL does not end with the bare payload")
	}
	if got.Size != int64(len(src)) {
		t.Fatalf("Size = %d, want %d", got.Size, len(src))
	}
	decoded, err := got.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !bytes.Equal(decoded, src) {
		t.Fatal("decoded payload differs from source bytes")
	}
}

func TestEncodeRejectsDeclaredOversize(t *testing.T) {
	enc := NewEncoder(MaxUploadBytes)
	_, err := enc.Encode(context.Background(), MaxUploadBytes+1, "image/png", failingReader{})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Encode() error = %v, want ErrFileTooLarge", err)
	}
}

func TestEncodeRejectsUnderstatedSize(t *testing.T) {
	enc := NewEncoder(8)
	_, err := enc.Encode(context.Background(), -1, "image/png", bytes.NewReader(make([]byte, 9)))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Encode() error = %v, want ErrFileTooLarge", err)
	}
}

func TestEncodeAcceptsExactLimit(t *testing.T) {
	enc := NewEncoder(8)
	got, err := enc.Encode(context.Background(), 8, "image/jpeg", bytes.NewReader(make([]byte, 8)))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if got.MediaType != "image/jpeg" {
		t.Fatalf("MediaType = %q", got.MediaType)
	}
}

func TestEncodeReadFailure(t *testing.T) {
	_, err := NewEncoder(0).Encode(context.Background(), 10, "image/png", failingReader{})
	if !errors.Is(err, ErrFileRead) {
		t.Fatalf("Encode() error = %v, want ErrFileRead", err)
	}
}

func TestEncodeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEncoder(0).Encode(ctx, 3, "image/png", strings.NewReader("abc"))
	if !errors.Is(err, ErrFileRead) {
		t.Fatalf("Encode() error = %v, want ErrFileRead", err)
	}
}

func TestEncodeMediaType(t *testing.T) {
	src := samplePNG(t)
	tests := []struct {
		name     string
		declared string
		data     []byte
		want     string
		wantErr  error
	}{
		{name: "declared jpg alias", declared: "image/JPG", data: []byte("x"), want: "image/jpeg"},
		{name: "declared with params", declared: "image/webp; q=1", data: []byte("x"), want: "image/webp"},
		{name: "sniffed when empty", declared: "", data: src, want: "image/png"},
		{name: "sniffed when generic", declared: "application/octet-stream", data: src, want: "image/png"},
		{name: "text rejected", declared: "text/plain", data: []byte("hello world"), wantErr: ErrUnsupportedType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewEncoder(0).Encode(context.Background(), int64(len(tc.data)), tc.declared, bytes.NewReader(tc.data))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Encode() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if got.MediaType != tc.want {
				t.Fatalf("MediaType = %q, want %q", got.MediaType, tc.want)
			}
		})
	}
}

func TestParseDataURL(t *testing.T) {
	url := DataURL("image/png", []byte{1, 2, 3})
	got, err := ParseDataURL(url)
	if err != nil {
		t.Fatalf("ParseDataURL() error = %v", err)
	}
	if got.MediaType != "image/png" {
		t.Fatalf("MediaType = %q", got.MediaType)
	}
	if got.DataURL() != url {
		t.Fatalf("DataURL() = %q, want %q", got.DataURL(), url)
	}

	for _, bad := range []string{
		"https://example.com/a.png",
		"data:image/png,plain",
		"data:image/png;base64",
		"data:image/png;base64,***",
	} {
		if _, err := ParseDataURL(bad); err == nil {
			t.Fatalf("ParseDataURL(%q) error = nil", bad)
		}
	}
}
