package docload

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	_ "golang.org/x/image/webp" // phone exports often arrive as webp

	_ "image/jpeg" // register decoders for photographed reports
	_ "image/png"
)

// PDF pages render at roughly print resolution; lab tables stay legible to
// the vision model at 200 DPI.
const renderDPI = 200

// Page is one raster page of an uploaded report, ready to be sent to the
// model as an inline image.
type Page struct {
	MIMEType string
	Data     []byte
}

// LoadError means the source file could not be decoded into pages. It is
// fatal: re-running the pipeline on the same bytes cannot succeed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load document %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadPages turns a stored file into an ordered sequence of page images.
// PDFs render every page; single images are decode-validated and passed
// through unchanged. The result is never empty on success.
func LoadPages(path string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return renderPDF(path)
	default:
		return loadImage(path)
	}
}

func renderPDF(path string) ([]Page, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("document has no pages")}
	}

	pages := make([]Page, 0, total)
	for n := 0; n < total; n++ {
		img, err := doc.ImageDPI(n, renderDPI)
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("render page %d: %w", n+1, err)}
		}
		encoded, err := encodePNG(img)
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("encode page %d: %w", n+1, err)}
		}
		pages = append(pages, Page{MIMEType: "image/png", Data: encoded})
	}
	return pages, nil
}

func loadImage(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("decode image: %w", err)}
	}

	return []Page{{MIMEType: "image/" + format, Data: data}}, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
