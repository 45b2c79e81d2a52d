package textlayer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// LedongthucBackend parses the PDF object tree directly. It is the fast
// path: no format conversion, no external library bindings.
type LedongthucBackend struct{}

func NewLedongthucBackend() *LedongthucBackend { return &LedongthucBackend{} }

func (b *LedongthucBackend) Name() string { return "ledongthuc" }

func (b *LedongthucBackend) Extract(ctx context.Context, data []byte, maxPages int) ([]PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	// Font decoding dominates the cost of GetPlainText; the cache is
	// shared across pages of one document.
	fonts := make(map[string]*pdf.Font)
	pages := make([]PageText, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, pageErr := extractPage(reader, i, fonts)
		pages = append(pages, PageText{Index: i - 1, Text: text, Err: pageErr})
	}
	return pages, nil
}

// extractPage isolates one page so a malformed content stream cannot
// take down the whole document: the parser panics on some of them.
func extractPage(reader *pdf.Reader, pageNum int, fonts map[string]*pdf.Font) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: parser panic: %v", pageNum, r)
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", pageNum)
	}
	for _, name := range page.Fonts() {
		if _, ok := fonts[name]; !ok {
			f := page.Font(name)
			fonts[name] = &f
		}
	}
	text, err = page.GetPlainText(fonts)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", pageNum, err)
	}
	return text, nil
}
