package textclean

import (
	"strings"
	"testing"
	"unicode"
)

func TestCleanIdempotent(t *testing.T) {
	c := NewCleaner()

	cases := []string{
		"",
		"plain ascii text with no artifacts",
		"中 文 字 符 之 间 的 空 格",
		"the year 2O21 and 1O2O3 units",
		"２０２３年度报告",
		"2O2l年发布的文件",
		"mixed 中 文 and English words",
		"double  spaces  stay   intact",
	}

	for _, text := range cases {
		once := c.Clean(text)
		twice := c.Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q:\n once: %q\ntwice: %q", text, once, twice)
		}
	}
}

func TestRemoveCJKGaps(t *testing.T) {
	c := NewCleaner()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single spaces between han characters",
			in:   "政 府 信 息",
			want: "政府信息",
		},
		{
			name: "latin spacing preserved",
			in:   "hello world foo bar",
			want: "hello world foo bar",
		},
		{
			name: "space at cjk-latin boundary preserved",
			in:   "中文 word 中文",
			want: "中文 word 中文",
		},
		{
			name: "double space between cjk preserved",
			in:   "第一节  第二节",
			want: "第一节  第二节",
		},
		{
			name: "mixed run",
			in:   "公 告 published in 全 文",
			want: "公告 published in 全文",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Clean(tc.in); got != tc.want {
				t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConfusionCorrections(t *testing.T) {
	c := NewCleaner()

	cases := []struct {
		in   string
		want string
	}{
		{"2O21", "2021"},
		{"1O2O3", "10203"},
		{"4l5", "415"},
		{"8I9", "819"},
		{"2O2l年", "2021年"},
		{"OK then", "OK then"},          // O not in digit context
		{"model Ol5", "model Ol5"},      // leading O has no digit before it
		{"litre l and I alone", "litre l and I alone"},
	}

	for _, tc := range cases {
		if got := c.Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFullwidthFolding(t *testing.T) {
	c := NewCleaner()

	if got := c.Clean("ＡＢＣ１２３"); got != "ABC123" {
		t.Errorf("Clean(fullwidth alnum) = %q, want %q", got, "ABC123")
	}

	// Full-width punctuation must survive: comma vs period semantics are
	// never altered, and CJK prose keeps its own punctuation.
	in := "第一条，内容。（完）"
	if got := c.Clean(in); got != in {
		t.Errorf("Clean(%q) = %q, want unchanged", in, got)
	}
}

func TestNonSpaceCountStable(t *testing.T) {
	c := NewCleaner()

	// Outside of explicit confusion corrections (which are 1:1 anyway),
	// cleaning only removes spaces; the non-space rune count is invariant.
	cases := []string{
		"中 文 字 符",
		"ＡＢＣ and 中 文",
		"ordinary latin text, nothing to do",
		"2O21 was the 4l5th",
	}

	for _, text := range cases {
		before := countNonSpace(text)
		after := countNonSpace(c.Clean(text))
		if before != after {
			t.Errorf("non-space rune count changed for %q: before=%d after=%d", text, before, after)
		}
	}
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func TestCleanLargeMixedDocument(t *testing.T) {
	c := NewCleaner()

	in := strings.Repeat("第 一 章 total of 2O21 items ２３ units\n", 50)
	out := c.Clean(in)

	if strings.Contains(out, "第 一") {
		t.Error("CJK gaps not removed in large document")
	}
	if strings.Contains(out, "2O21") {
		t.Error("digit confusion not corrected in large document")
	}
	if !strings.Contains(out, "23 units") {
		t.Error("full-width digits not folded in large document")
	}
	if c.Clean(out) != out {
		t.Error("Clean not idempotent on large document")
	}
}
