package extract

import "testing"

type probeDoc struct {
	pageCount int
	images    map[int]bool
}

func (d *probeDoc) PageCount() int { return d.pageCount }
func (d *probeDoc) RenderPNG(int, float64) ([]byte, error) {
	return nil, nil
}
func (d *probeDoc) HasRasterImages(page int) bool { return d.images[page] }
func (d *probeDoc) Close() error                  { return nil }

func TestClassifyScanned(t *testing.T) {
	cfg := DefaultScanConfig()

	tests := []struct {
		name   string
		pages  []PageResult
		images map[int]bool
		want   bool
	}{
		{
			name:   "textless pages with images",
			pages:  []PageResult{{Index: 0}, {Index: 1}, {Index: 2, Text: "ok"}},
			images: map[int]bool{0: true, 1: true, 2: true},
			want:   true,
		},
		{
			name:   "textless pages without images",
			pages:  []PageResult{{Index: 0}, {Index: 1}, {Index: 2}},
			images: map[int]bool{},
			want:   false,
		},
		{
			name: "pages with real text",
			pages: []PageResult{
				{Index: 0, Text: "a full paragraph of extracted text on this page"},
				{Index: 1, Text: "and another one over here, clearly digital-born"},
				{Index: 2, Text: "closing remarks and references"},
			},
			images: map[int]bool{0: true, 1: true, 2: true},
			want:   false,
		},
		{
			name:   "short fragments still count as textless",
			pages:  []PageResult{{Index: 0, Text: "p. 1"}, {Index: 1, Text: "2"}, {Index: 2, Text: "fig 3"}},
			images: map[int]bool{0: true, 1: true, 2: true},
			want:   true,
		},
		{
			name:   "single page document",
			pages:  []PageResult{{Index: 0}},
			images: map[int]bool{0: true},
			want:   true,
		},
		{
			name:  "empty document",
			pages: nil,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &probeDoc{pageCount: len(tt.pages), images: tt.images}
			if got := classifyScanned(tt.pages, doc, cfg); got != tt.want {
				t.Errorf("classifyScanned = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyScannedRatio(t *testing.T) {
	// Two of three sampled pages scanned-looking sits below the 0.8
	// default ratio.
	pages := []PageResult{
		{Index: 0},
		{Index: 1},
		{Index: 2, Text: "this page carries a normal amount of embedded text content"},
	}
	doc := &probeDoc{pageCount: 3, images: map[int]bool{0: true, 1: true, 2: false}}
	if classifyScanned(pages, doc, DefaultScanConfig()) {
		t.Error("two of three pages must not classify as scanned at ratio 0.8")
	}
}
