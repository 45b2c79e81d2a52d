package extract

import "context"

// The orchestrator accepts its collaborators as interfaces so tests can
// substitute spies and production wiring can inject the real backends.

// TextExtractOptions tunes a single text-layer extraction.
type TextExtractOptions struct {
	// MaxPages caps how many pages are read.
	MaxPages int
	// SkipConversion omits the conversion-heavy secondary backend
	// (simple mode).
	SkipConversion bool
}

// TextExtractor pulls the embedded text layer out of a structured
// document. A page with no text is not an error; the whole document
// fails only when it cannot be opened or every page raised a backend
// error.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, kind FileKind, opts TextExtractOptions) ([]PageResult, error)
}

// RasterDocument is an open document that can render pages for OCR and
// probe for embedded raster images. Scoped to a single request; callers
// must Close it on every exit path.
type RasterDocument interface {
	PageCount() int
	RenderPNG(page int, scale float64) ([]byte, error)
	HasRasterImages(page int) bool
	Close() error
}

// RasterOpener opens a document for rasterization.
type RasterOpener interface {
	Open(data []byte) (RasterDocument, error)
}

// RasterOpenerFunc adapts a function to the RasterOpener interface.
type RasterOpenerFunc func(data []byte) (RasterDocument, error)

func (f RasterOpenerFunc) Open(data []byte) (RasterDocument, error) { return f(data) }

// GarbledDetector classifies extracted text as plausible or corrupted.
type GarbledDetector interface {
	IsGarbled(text string) bool
}

// TextCleaner applies deterministic post-processing; always the final
// step regardless of which path produced the text.
type TextCleaner interface {
	Clean(text string) string
}
