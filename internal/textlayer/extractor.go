// Package textlayer extracts embedded text from document files without
// any rasterization or recognition. For PDFs it runs a primary parser
// with a per-page fallback to a heavier conversion-based backend; office
// formats and plain text are handled directly.
package textlayer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docforge/extract-worker/internal/extract"
	"github.com/docforge/extract-worker/internal/logging"
)

// PageText is one page as produced by a backend. Err marks a page the
// backend could not read; the page keeps its slot so indices stay
// aligned across backends.
type PageText struct {
	Index int
	Text  string
	Err   error
}

// Backend reads the embedded text of every page of a PDF.
type Backend interface {
	Name() string
	Extract(ctx context.Context, data []byte, maxPages int) ([]PageText, error)
}

// Extractor implements extract.TextExtractor over a primary backend and
// an optional conversion-based secondary.
type Extractor struct {
	primary   Backend
	secondary Backend
	log       *logging.Logger
}

// NewExtractor builds an extractor. primary is required; secondary may
// be nil.
func NewExtractor(primary, secondary Backend, log *logging.Logger) (*Extractor, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary backend is required")
	}
	if log == nil {
		log = logging.NewLogger("textlayer")
	}
	return &Extractor{primary: primary, secondary: secondary, log: log}, nil
}

// Extract returns per-page text for the supported document kinds.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind extract.FileKind, opts extract.TextExtractOptions) ([]extract.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case extract.KindText:
		return plainTextPage(data)
	case extract.KindDocx:
		text, err := parseDocx(data)
		if err != nil {
			return nil, err
		}
		return []extract.PageResult{{Index: 0, Text: text}}, nil
	case extract.KindODT:
		text, err := parseODT(data)
		if err != nil {
			return nil, err
		}
		return []extract.PageResult{{Index: 0, Text: text}}, nil
	case extract.KindPDF:
		return e.extractPDF(ctx, data, opts)
	}
	return nil, fmt.Errorf("no text layer for file kind %q", kind)
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte, opts extract.TextExtractOptions) ([]extract.PageResult, error) {
	useSecondary := e.secondary != nil && !opts.SkipConversion

	pages, err := e.primary.Extract(ctx, data, opts.MaxPages)
	if err != nil {
		e.log.Warn("primary backend failed", "backend", e.primary.Name(), "error", err)
		if !useSecondary {
			return nil, fmt.Errorf("%s: %w", e.primary.Name(), err)
		}
		pages, err = e.secondary.Extract(ctx, data, opts.MaxPages)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.secondary.Name(), err)
		}
		useSecondary = false // already on the secondary output
	}

	// Retry only the pages the primary could not read. The secondary
	// backend is opened once, lazily, and only if some page needs it.
	var retry []PageText
	if useSecondary {
		for _, p := range pages {
			if p.Err != nil {
				var retryErr error
				retry, retryErr = e.secondary.Extract(ctx, data, opts.MaxPages)
				if retryErr != nil {
					e.log.Warn("secondary backend failed during page retry",
						"backend", e.secondary.Name(), "error", retryErr)
				}
				break
			}
		}
	}

	results := make([]extract.PageResult, len(pages))
	failed := 0
	for i, p := range pages {
		text, pageErr := p.Text, p.Err
		if pageErr != nil && i < len(retry) && retry[i].Err == nil {
			e.log.Info("page recovered by secondary backend", "page", i+1, "backend", e.secondary.Name())
			text, pageErr = retry[i].Text, nil
		}
		if pageErr != nil {
			failed++
			results[i] = extract.PageResult{Index: i, Failed: true}
			continue
		}
		results[i] = extract.PageResult{Index: i, Text: text}
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	if failed == len(results) {
		return nil, fmt.Errorf("all %d pages failed to extract", failed)
	}
	return results, nil
}

// plainTextPage wraps a text file as a single page. Bytes that are not
// valid UTF-8 are replaced rather than rejected; the garbled check
// downstream judges the result.
func plainTextPage(data []byte) ([]extract.PageResult, error) {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return []extract.PageResult{{Index: 0, Text: text}}, nil
}
