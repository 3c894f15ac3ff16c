package docload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Smallest valid lossless webp: a 1x1 transparent pixel.
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func writeTempPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestLoadPagesSingleImage(t *testing.T) {
	path := writeTempPNG(t)

	pages, err := LoadPages(path)
	if err != nil {
		t.Fatalf("load pages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].MIMEType != "image/png" {
		t.Fatalf("expected image/png, got %s", pages[0].MIMEType)
	}
	if len(pages[0].Data) == 0 {
		t.Fatalf("expected page bytes")
	}
}

func TestLoadPagesWebP(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(tinyWebP)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "report.webp")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write webp: %v", err)
	}

	pages, err := LoadPages(path)
	if err != nil {
		t.Fatalf("load pages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].MIMEType != "image/webp" {
		t.Fatalf("expected image/webp, got %s", pages[0].MIMEType)
	}
	if !bytes.Equal(pages[0].Data, data) {
		t.Fatal("single images must pass through unchanged")
	}
}

func TestLoadPagesUndecodableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	pages, err := LoadPages(path)
	if err == nil {
		t.Fatalf("expected error, got %d pages", len(pages))
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %T", err)
	}
	if pages != nil {
		t.Fatalf("expected nil pages on failure")
	}
}

func TestLoadPagesMissingFile(t *testing.T) {
	_, err := LoadPages(filepath.Join(t.TempDir(), "missing.png"))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestLoadPagesBrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-garbage"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := LoadPages(path)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}
