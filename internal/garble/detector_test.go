package garble

import (
	"strings"
	"testing"
)

func TestShortTextNeverGarbled(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	cases := []string{
		"",
		"a",
		"☃☃☃",
		"���",
		"X9 Q7 Z2",
		"   \n\t ",
	}

	for _, text := range cases {
		if d.IsGarbled(text) {
			t.Errorf("IsGarbled(%q) = true, want false for text under the minimum length", text)
		}
	}
}

func TestCleanTextNotGarbled(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	cases := []struct {
		name string
		text string
	}{
		{
			name: "english prose",
			text: "The quarterly report covers revenue, operating costs, and projected growth for the coming fiscal year.",
		},
		{
			name: "chinese prose",
			text: "本办法所称政府信息，是指行政机关在履行职责过程中制作或者获取的，以一定形式记录、保存的信息。",
		},
		{
			name: "mixed prose with citation codes",
			text: "As shown in RFC 7231 and ISO 8601, the format (see Fig. 3, tables T1 and T2) is widely adopted across implementations of the HTTP protocol stack.",
		},
		{
			name: "clean text with small corrupted fragment",
			text: strings.Repeat("A perfectly ordinary sentence about document processing pipelines. ", 20) + "��☒☒",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if d.IsGarbled(tc.text) {
				t.Errorf("IsGarbled() = true, want false for %s", tc.name)
			}
		})
	}
}

func TestGarbledTextDetected(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	cases := []struct {
		name string
		text string
	}{
		{
			name: "private use area glyph soup",
			text: strings.Repeat(" ", 30),
		},
		{
			name: "replacement character flood",
			text: strings.Repeat("do�cu�me�nt� ", 20),
		},
		{
			name: "font remap junk tokens",
			text: strings.Repeat("XJ9 QZ7 XJ9 WK2 QZ7 XJ9 WK2 QZ7 ", 10),
		},
		{
			name: "symbol soup",
			text: strings.Repeat("$ % ^ ` ) ( ] [ > < ~ # ", 20),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !d.IsGarbled(tc.text) {
				t.Errorf("IsGarbled() = false, want true for %s", tc.name)
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	text := strings.Repeat(" normal words here  ", 15)

	first := d.IsGarbled(text)
	for i := 0; i < 10; i++ {
		if got := d.IsGarbled(text); got != first {
			t.Fatalf("IsGarbled() flapped between calls: first=%v, call %d=%v", first, i, got)
		}
	}
}

func TestSuspiciousRuneRatio(t *testing.T) {
	cases := []struct {
		name string
		text string
		max  float64
		min  float64
	}{
		{name: "ascii letters", text: "hello world", max: 0.01},
		{name: "chinese", text: "政府信息公开条例", max: 0.01},
		{name: "all PUA", text: "", min: 0.99},
		{name: "half junk", text: "fine", min: 0.45, max: 0.55},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := suspiciousRuneRatio([]rune(tc.text))
			if tc.min > 0 && got < tc.min {
				t.Errorf("suspiciousRuneRatio(%q) = %f, want >= %f", tc.text, got, tc.min)
			}
			if tc.max > 0 && got > tc.max {
				t.Errorf("suspiciousRuneRatio(%q) = %f, want <= %f", tc.text, got, tc.max)
			}
		})
	}
}

func TestIsJunkToken(t *testing.T) {
	junk := []string{"XJ9", "QZ7", "WK", "99XZ", "ZZZZZ"}
	for _, tok := range junk {
		if !isJunkToken(tok) {
			t.Errorf("isJunkToken(%q) = false, want true", tok)
		}
	}

	notJunk := []string{"A", "IBM", "USA", "hello", "Q", "TOOLONGX", "R2-D2", "ok"}
	for _, tok := range notJunk {
		if isJunkToken(tok) {
			t.Errorf("isJunkToken(%q) = true, want false", tok)
		}
	}
}
