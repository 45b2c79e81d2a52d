/**
 * Page rasterization via MuPDF (go-fitz).
 *
 * Renders document pages to PNG for OCR input. Rendering resolution is
 * upscaled relative to native page size: recognition accuracy on small
 * glyphs is poor at native resolution, and the extra CPU is accepted as
 * a fixed trade-off on the already-expensive OCR path.
 */

package raster

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// nativeDPI is the PDF reference resolution; render scale multiplies it.
const nativeDPI = 72.0

// Document wraps an open MuPDF document for the lifetime of a single
// extraction request. Not safe for concurrent use; callers serialize
// page access per document.
type Document struct {
	doc *fitz.Document
}

// Open opens a document from memory. The caller must Close it on every
// exit path.
func Open(data []byte) (*Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document for rasterization: %w", err)
	}
	return &Document{doc: doc}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// RenderPNG renders the zero-based page at scale times the native
// resolution and returns the encoded PNG.
func (d *Document) RenderPNG(page int, scale float64) ([]byte, error) {
	if scale < 1.0 {
		scale = 1.0
	}
	png, err := d.doc.ImagePNG(page, nativeDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page+1, err)
	}
	return png, nil
}

// HasRasterImages reports whether the zero-based page carries embedded
// raster images. MuPDF's HTML rendering inlines page images as <img>
// elements, which makes it a cheap presence probe without decoding the
// images themselves.
func (d *Document) HasRasterImages(page int) bool {
	html, err := d.doc.HTML(page, false)
	if err != nil {
		return false
	}
	return strings.Contains(html, "<img")
}

// PageText returns the text layer of the zero-based page as MuPDF sees it.
func (d *Document) PageText(page int) (string, error) {
	text, err := d.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("page %d text: %w", page+1, err)
	}
	return text, nil
}

// Close releases the underlying MuPDF handle.
func (d *Document) Close() error {
	return d.doc.Close()
}
