package textlayer

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzBackend extracts text through MuPDF. It handles damaged files the
// direct parser chokes on, at the cost of loading the full rendering
// library, so it runs second.
type FitzBackend struct{}

func NewFitzBackend() *FitzBackend { return &FitzBackend{} }

func (b *FitzBackend) Name() string { return "fitz" }

func (b *FitzBackend) Extract(ctx context.Context, data []byte, maxPages int) ([]PageText, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	pages := make([]PageText, 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, pageErr := doc.Text(i)
		if pageErr != nil {
			pages = append(pages, PageText{Index: i, Err: fmt.Errorf("page %d: %w", i+1, pageErr)})
			continue
		}
		pages = append(pages, PageText{Index: i, Text: text})
	}
	return pages, nil
}
