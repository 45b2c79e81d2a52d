/**
 * Post-processing for extracted and recognized text.
 *
 * Fixes the artifacts that OCR and legacy encodings reliably introduce:
 * spurious single spaces between CJK characters, a small table of known
 * character confusions in narrow contexts, and full-width ASCII variants.
 * Clean is idempotent; it is always the final pipeline step regardless of
 * which path produced the text.
 */

package textclean

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Cleaner applies deterministic corrections to extracted text.
type Cleaner struct{}

// NewCleaner returns a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean normalizes text. Applying Clean twice equals applying it once.
func (c *Cleaner) Clean(text string) string {
	if text == "" {
		return text
	}
	out := norm.NFC.String(text)
	out = removeCJKGaps(out)
	out = foldFullwidthASCII(out)
	out = applyConfusions(out)
	return out
}

// removeCJKGaps drops a single space wedged between two CJK characters,
// a common artifact of OCR and of text layers built from legacy
// double-byte encodings. Runs of two or more spaces are intentional
// spacing and are left alone, as is all spacing in Latin-script runs.
func removeCJKGaps(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' && i > 0 && i+1 < len(runes) {
			prevSpace := runes[i-1] == ' '
			nextSpace := runes[i+1] == ' '
			if !prevSpace && !nextSpace && isCJK(runes[i-1]) && isCJK(runes[i+1]) {
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// foldFullwidthASCII narrows full-width ASCII letters and digits
// (Ａ→A, ３→3). Full-width punctuation is left untouched: a full-width
// comma in CJK prose is correct, and comma vs. period must never change.
func foldFullwidthASCII(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if (r >= 'Ａ' && r <= 'Ｚ') || (r >= 'ａ' && r <= 'ｚ') || (r >= '０' && r <= '９') {
			b.WriteString(width.Narrow.String(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Confusion corrections are narrowly scoped pattern substitutions, never
// a general spellchecker. Each rule names the context in which the
// correction is safe.
var confusionRules = []struct {
	pattern *regexp.Regexp
	repl    func(string) string
}{
	{
		// Letter O misread inside a run of digits: 2O21 → 2021.
		pattern: regexp.MustCompile(`[0-9][Oo][0-9]`),
		repl: func(m string) string {
			return strings.Map(func(r rune) rune {
				if r == 'O' || r == 'o' {
					return '0'
				}
				return r
			}, m)
		},
	},
	{
		// Lowercase l or uppercase I misread inside a run of digits.
		pattern: regexp.MustCompile(`[0-9][lI][0-9]`),
		repl: func(m string) string {
			return strings.Map(func(r rune) rune {
				if r == 'l' || r == 'I' {
					return '1'
				}
				return r
			}, m)
		},
	},
	{
		// Year preceding 年 with O/l glyph confusions: 2O2l年 → 2021年.
		pattern: regexp.MustCompile(`[12][0-9Ool]{3}年`),
		repl: func(m string) string {
			return strings.Map(func(r rune) rune {
				switch r {
				case 'O', 'o':
					return '0'
				case 'l':
					return '1'
				}
				return r
			}, m)
		},
	},
}

// applyConfusions runs the confusion rules to a fixed point. Regexp
// replacement is non-overlapping, so adjacent confusions like 1O2O3 need
// a second pass; iterating until stable keeps Clean idempotent.
func applyConfusions(text string) string {
	for i := 0; i < 8; i++ {
		next := text
		for _, rule := range confusionRules {
			next = rule.pattern.ReplaceAllStringFunc(next, rule.repl)
		}
		if next == text {
			return next
		}
		text = next
	}
	return text
}
