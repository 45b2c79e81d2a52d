package textlayer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docforge/extract-worker/internal/extract"
)

type fakeBackend struct {
	name  string
	calls int
	pages []PageText
	err   error
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) Extract(_ context.Context, _ []byte, maxPages int) ([]PageText, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	pages := f.pages
	if maxPages > 0 && len(pages) > maxPages {
		pages = pages[:maxPages]
	}
	return pages, nil
}

func pdfOpts(maxPages int) extract.TextExtractOptions {
	return extract.TextExtractOptions{MaxPages: maxPages}
}

func TestPrimaryBackendSuffices(t *testing.T) {
	primary := &fakeBackend{name: "p", pages: []PageText{
		{Index: 0, Text: "first page"},
		{Index: 1, Text: "second page"},
	}}
	secondary := &fakeBackend{name: "s"}
	ex, err := NewExtractor(primary, secondary, nil)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	pages, err := ex.Extract(context.Background(), []byte("x"), extract.KindPDF, pdfOpts(10))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 2 || pages[0].Text != "first page" || pages[1].Text != "second page" {
		t.Errorf("unexpected pages: %+v", pages)
	}
	if secondary.calls != 0 {
		t.Error("secondary backend must stay unopened when primary succeeds")
	}
}

func TestPerPageFallbackToSecondary(t *testing.T) {
	primary := &fakeBackend{name: "p", pages: []PageText{
		{Index: 0, Text: "good page"},
		{Index: 1, Err: errors.New("broken stream")},
	}}
	secondary := &fakeBackend{name: "s", pages: []PageText{
		{Index: 0, Text: "ignored"},
		{Index: 1, Text: "rescued page"},
	}}
	ex, _ := NewExtractor(primary, secondary, nil)

	pages, err := ex.Extract(context.Background(), []byte("x"), extract.KindPDF, pdfOpts(10))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if pages[0].Text != "good page" {
		t.Errorf("page 1 must keep the primary text, got %q", pages[0].Text)
	}
	if pages[1].Failed || pages[1].Text != "rescued page" {
		t.Errorf("page 2 not rescued: %+v", pages[1])
	}
	if secondary.calls != 1 {
		t.Errorf("secondary calls = %d, want 1", secondary.calls)
	}
}

func TestSkipConversionAvoidsSecondary(t *testing.T) {
	primary := &fakeBackend{name: "p", pages: []PageText{
		{Index: 0, Text: "ok"},
		{Index: 1, Err: errors.New("bad page")},
	}}
	secondary := &fakeBackend{name: "s", pages: []PageText{
		{Index: 0, Text: "x"},
		{Index: 1, Text: "x"},
	}}
	ex, _ := NewExtractor(primary, secondary, nil)

	pages, err := ex.Extract(context.Background(), []byte("x"), extract.KindPDF,
		extract.TextExtractOptions{MaxPages: 10, SkipConversion: true})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if secondary.calls != 0 {
		t.Error("secondary must be skipped in simple mode")
	}
	if !pages[1].Failed {
		t.Error("unrescued page must carry the failed flag")
	}
}

func TestSecondaryFailureDuringRetryKeepsPrimaryPages(t *testing.T) {
	primary := &fakeBackend{name: "p", pages: []PageText{
		{Index: 0, Text: "readable"},
		{Index: 1, Err: errors.New("broken stream")},
	}}
	secondary := &fakeBackend{name: "s", err: errors.New("conversion crashed")}
	ex, _ := NewExtractor(primary, secondary, nil)

	pages, err := ex.Extract(context.Background(), []byte("x"), extract.KindPDF, pdfOpts(10))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if pages[0].Text != "readable" {
		t.Errorf("page 1 = %+v", pages[0])
	}
	if !pages[1].Failed {
		t.Error("unrescued page must carry the failed flag")
	}
}

func TestWholeDocumentFallback(t *testing.T) {
	primary := &fakeBackend{name: "p", err: errors.New("xref corrupt")}
	secondary := &fakeBackend{name: "s", pages: []PageText{{Index: 0, Text: "converted text"}}}
	ex, _ := NewExtractor(primary, secondary, nil)

	pages, err := ex.Extract(context.Background(), []byte("x"), extract.KindPDF, pdfOpts(10))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "converted text" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestAllPagesFailedIsError(t *testing.T) {
	primary := &fakeBackend{name: "p", pages: []PageText{
		{Index: 0, Err: errors.New("bad")},
		{Index: 1, Err: errors.New("bad")},
	}}
	ex, _ := NewExtractor(primary, nil, nil)

	if _, err := ex.Extract(context.Background(), []byte("x"), extract.KindPDF, pdfOpts(10)); err == nil {
		t.Fatal("expected an error when every page fails")
	}
}

func TestPageCapTruncates(t *testing.T) {
	primary := &fakeBackend{name: "p", pages: []PageText{
		{Index: 0, Text: "a"}, {Index: 1, Text: "b"}, {Index: 2, Text: "c"},
	}}
	ex, _ := NewExtractor(primary, nil, nil)

	pages, err := ex.Extract(context.Background(), []byte("x"), extract.KindPDF, pdfOpts(2))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("pages = %d, want cap of 2", len(pages))
	}
}

func TestPlainTextSinglePage(t *testing.T) {
	ex, _ := NewExtractor(&fakeBackend{name: "p"}, nil, nil)
	pages, err := ex.Extract(context.Background(), []byte("hello\nworld"), extract.KindText, pdfOpts(0))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "hello\nworld" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func zipWith(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDocxExtraction(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> part</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := zipWith(t, "word/document.xml", doc)

	ex, _ := NewExtractor(&fakeBackend{name: "p"}, nil, nil)
	pages, err := ex.Extract(context.Background(), data, extract.KindDocx, pdfOpts(0))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	text := pages[0].Text
	if !strings.Contains(text, "First paragraph") || !strings.Contains(text, "Second part") {
		t.Errorf("unexpected docx text: %q", text)
	}
	if !strings.Contains(text, "First paragraph\n") {
		t.Errorf("paragraph break missing: %q", text)
	}
}

func TestODTExtraction(t *testing.T) {
	doc := `<?xml version="1.0"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
  <office:body><office:text>
    <text:h>Title</text:h>
    <text:p>Body line with<text:s/>space</text:p>
  </office:text></office:body>
</office:document-content>`
	data := zipWith(t, "content.xml", doc)

	ex, _ := NewExtractor(&fakeBackend{name: "p"}, nil, nil)
	pages, err := ex.Extract(context.Background(), data, extract.KindODT, pdfOpts(0))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	text := pages[0].Text
	if !strings.Contains(text, "Title") || !strings.Contains(text, "Body line with space") {
		t.Errorf("unexpected odt text: %q", text)
	}
}

func TestDocxMissingEntry(t *testing.T) {
	data := zipWith(t, "unrelated.xml", "<x/>")
	ex, _ := NewExtractor(&fakeBackend{name: "p"}, nil, nil)
	if _, err := ex.Extract(context.Background(), data, extract.KindDocx, pdfOpts(0)); err == nil {
		t.Fatal("expected an error for a docx without word/document.xml")
	}
}
