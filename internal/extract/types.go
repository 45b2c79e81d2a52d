/**
 * Request and outcome types for the extraction pipeline.
 *
 * An ExtractionRequest comes in, exactly one Outcome comes out. Callers
 * (upload handlers, search indexers) own persistence and transport; this
 * package is a pure transformation stage.
 */

package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/docforge/extract-worker/internal/errors"
)

// SourceMethod identifies which path produced the final text.
type SourceMethod string

const (
	MethodTextLayer SourceMethod = "text_layer"
	MethodOCR       SourceMethod = "ocr"
)

// Request is an immutable description of one extraction. Either Data or
// Path must be set. Zero limits fall back to the orchestrator's
// configured defaults.
type Request struct {
	JobID        string
	Filename     string
	DeclaredMIME string

	// Data holds the file bytes; Path is consulted when Data is empty.
	Data []byte
	Path string

	// PageLimit caps text-layer page processing for this request.
	PageLimit int
	// SizeLimit caps the accepted byte size for this request.
	SizeLimit int64
}

// PageResult records extraction output for a single page. Pages are
// concatenated in index order regardless of individual failures; a
// failed page contributes a placeholder, never aborts the document.
type PageResult struct {
	// Index is the zero-based page index.
	Index int
	// Text is the extracted text; empty is valid (absence of text is
	// not a failure to extract).
	Text string
	// Failed marks a page whose backends all raised errors, or that
	// timed out.
	Failed bool
}

// Outcome is the tagged result of one extraction: a success carrying
// text, or a failure carrying a taxonomy code. Never both. Once OCR text
// is produced it is final; it is not re-validated.
type Outcome struct {
	Success bool

	// Success fields
	Text      string
	Method    SourceMethod
	PageCount int
	Warnings  []string

	// Failure fields
	Reason      errors.ErrorCode
	Err         error
	PartialText string

	Duration time.Duration
}

func successOutcome(text string, method SourceMethod, pageCount int, warnings []string) *Outcome {
	return &Outcome{
		Success:   true,
		Text:      text,
		Method:    method,
		PageCount: pageCount,
		Warnings:  warnings,
	}
}

func failureOutcome(err *errors.ExtractionError, partialText string) *Outcome {
	return &Outcome{
		Success:     false,
		Reason:      err.Code,
		Err:         err,
		PartialText: partialText,
	}
}

// pageMarkerFormat carries the 1-based page number so downstream
// citation and highlighting can address individual pages.
const pageMarkerFormat = "=== Page %d ==="

// failedPagePlaceholder stands in for a page whose extraction failed.
const failedPagePlaceholder = "[page extraction failed]"

// PageMarker returns the boundary marker for a 1-based page number.
func PageMarker(pageNumber int) string {
	return fmt.Sprintf(pageMarkerFormat, pageNumber)
}

// JoinPages concatenates page results in index order, each preceded by
// its page-boundary marker.
func JoinPages(pages []PageResult) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(PageMarker(p.Index + 1))
		b.WriteString("\n")
		if p.Failed && p.Text == "" {
			b.WriteString(failedPagePlaceholder)
		} else {
			b.WriteString(strings.TrimSpace(p.Text))
		}
	}
	return b.String()
}
