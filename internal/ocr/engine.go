// Package ocr defines the recognition engine contract used by the
// extraction pipeline. Engines are fallible external collaborators: a
// missing runtime dependency surfaces as ErrUnavailable, which callers
// must treat differently from an engine that ran and found nothing.
package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the engine's runtime dependency is missing or
// unusable (e.g. Tesseract is not installed or has no language data).
// Distinct from a recognition that succeeds with empty output.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Engine converts a rendered page image into text.
type Engine interface {
	// Name identifies the engine in logs and telemetry.
	Name() string

	// Available reports whether the engine can run at all. A non-nil
	// error wraps ErrUnavailable with detail.
	Available() error

	// Recognize extracts text from an encoded image (PNG) using the
	// given language set. An empty string with a nil error means the
	// engine ran and found no text.
	Recognize(ctx context.Context, image []byte, languages []string) (string, error)
}
