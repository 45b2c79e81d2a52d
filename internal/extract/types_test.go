package extract

import (
	"strings"
	"testing"
)

func TestJoinPages(t *testing.T) {
	pages := []PageResult{
		{Index: 0, Text: "alpha line\n"},
		{Index: 1, Failed: true},
		{Index: 2, Text: "  gamma line  "},
	}

	got := JoinPages(pages)

	for n := 1; n <= 3; n++ {
		if !strings.Contains(got, PageMarker(n)) {
			t.Errorf("marker for page %d missing:\n%s", n, got)
		}
	}
	if !strings.Contains(got, "=== Page 2 ===\n[page extraction failed]") {
		t.Errorf("failed page placeholder missing:\n%s", got)
	}
	if !strings.Contains(got, "=== Page 1 ===\nalpha line") {
		t.Errorf("page text not trimmed under its marker:\n%s", got)
	}
	if strings.Contains(got, "  gamma") {
		t.Errorf("page text not trimmed:\n%s", got)
	}
	if !strings.Contains(got, "alpha line\n\n=== Page 2") {
		t.Errorf("pages not separated by a blank line:\n%s", got)
	}
}

func TestJoinPagesSingle(t *testing.T) {
	got := JoinPages([]PageResult{{Index: 0, Text: "only page"}})
	want := "=== Page 1 ===\nonly page"
	if got != want {
		t.Errorf("JoinPages = %q, want %q", got, want)
	}
}

func TestJoinPagesEmpty(t *testing.T) {
	if got := JoinPages(nil); got != "" {
		t.Errorf("JoinPages(nil) = %q, want empty", got)
	}
}

func TestPageMarkerOneBased(t *testing.T) {
	if got := PageMarker(1); got != "=== Page 1 ===" {
		t.Errorf("PageMarker(1) = %q", got)
	}
}
