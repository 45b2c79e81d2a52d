/**
 * Garbled-text detection for extracted document content.
 *
 * Text-layer extraction from PDFs with remapped fonts or mismatched
 * encodings produces byte-valid but linguistically implausible output.
 * The detector combines several weak signals into a score; no single
 * signal is decisive, and the statistics are global over the whole text
 * so a small corrupted fragment inside clean prose does not trip it.
 */

package garble

import (
	"strings"
	"unicode"
)

// Thresholds controls the detection heuristics. The defaults were tuned
// against CJK government documents and are exposed as configuration so
// they can be adjusted per corpus.
type Thresholds struct {
	// SuspiciousRatio is the fraction of suspicious runes above which the
	// ratio signal fires.
	SuspiciousRatio float64
	// MinTextLen is the rune count below which text is never classified
	// garbled; short text carries too little evidence.
	MinTextLen int
	// ScoreThreshold is the combined signal score at which text is flagged.
	ScoreThreshold float64
}

// DefaultThresholds returns the documented starting defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SuspiciousRatio: 0.30,
		MinTextLen:      10,
		ScoreThreshold:  1.0,
	}
}

// Detector classifies extracted text as plausible or garbled.
// It is stateless: IsGarbled is a pure function of its input.
type Detector struct {
	cfg Thresholds
}

// NewDetector creates a detector with the given thresholds. Zero values
// fall back to the defaults.
func NewDetector(cfg Thresholds) *Detector {
	def := DefaultThresholds()
	if cfg.SuspiciousRatio <= 0 {
		cfg.SuspiciousRatio = def.SuspiciousRatio
	}
	if cfg.MinTextLen <= 0 {
		cfg.MinTextLen = def.MinTextLen
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = def.ScoreThreshold
	}
	return &Detector{cfg: cfg}
}

// IsGarbled reports whether text is linguistically implausible enough to
// warrant the OCR fallback.
func (d *Detector) IsGarbled(text string) bool {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) < d.cfg.MinTextLen {
		// Insufficient evidence; default to not garbled so legitimately
		// short documents never trigger needless OCR.
		return false
	}

	// Each signal contributes 0.5 when present and 1.0 when extreme, so a
	// lone moderate signal never crosses the default threshold of 1.0 but
	// either two weak signals or one severe signal does.
	score := 0.0

	ratio := suspiciousRuneRatio(runes)
	if ratio > d.cfg.SuspiciousRatio {
		score += 0.5
		if ratio > 2*d.cfg.SuspiciousRatio {
			score += 0.5
		}
	}

	if jr := repeatedJunkTokenRatio(text); jr > 0.3 {
		score += 0.5
		if jr > 0.6 {
			score += 0.5
		}
	}

	avgLen, symbolDensity := wordShape(text)
	if avgLen > 0 && avgLen < 2.0 && symbolDensity > 0.2 {
		score += 0.5
		if symbolDensity > 0.5 {
			score += 0.5
		}
	}

	if rr := replacementCharRatio(runes); rr > 0.05 {
		score += 0.5
		if rr > 0.2 {
			score += 0.5
		}
	}

	return score >= d.cfg.ScoreThreshold
}

// suspiciousRuneRatio returns the fraction of runes outside the set of
// characters plausible text is made of: CJK, ASCII letters, digits,
// common punctuation, and whitespace.
func suspiciousRuneRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	suspicious := 0
	total := 0
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isPlausibleRune(r) {
			continue
		}
		suspicious++
	}
	if total == 0 {
		return 0
	}
	return float64(suspicious) / float64(total)
}

func isPlausibleRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
		return true
	case unicode.Is(unicode.Latin, r):
		// Accented Latin letters are plausible even if non-ASCII.
		return true
	case strings.ContainsRune(commonPunct, r):
		return true
	}
	return false
}

// commonPunct covers ASCII punctuation plus the full-width CJK variants
// that appear constantly in CJK prose.
const commonPunct = ".,;:!?'\"()[]{}<>-–—_/\\&%#@*+=~$€£¥·•…" +
	"。，、；：！？「」『』（）《》〈〉【】〔〕“”‘’－％／＃＆＊＠"

// repeatedJunkTokenRatio measures the density of short uppercase/digit
// tokens (2-5 chars) with no vowel-like structure, the signature of
// font-remap corruption where glyph indices leak into the text layer.
func repeatedJunkTokenRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) < 10 {
		return 0
	}

	seen := make(map[string]int)
	junk := 0
	for _, f := range fields {
		if isJunkToken(f) {
			seen[f]++
			junk++
		}
	}

	// A single stray code is fine; corruption produces the same junk
	// tokens over and over. Only count tokens that repeat.
	repeated := 0
	for _, n := range seen {
		if n >= 2 {
			repeated += n
		}
	}
	return float64(repeated) / float64(len(fields))
}

func isJunkToken(tok string) bool {
	n := len(tok)
	if n < 2 || n > 5 {
		return false
	}
	hasVowel := false
	for i := 0; i < n; i++ {
		c := tok[i]
		switch {
		case c >= 'A' && c <= 'Z':
			if strings.ContainsRune("AEIOU", rune(c)) {
				hasVowel = true
			}
		case c >= '0' && c <= '9':
			// digits allowed
		default:
			return false
		}
	}
	return !hasVowel
}

// wordShape returns the average whitespace-separated token length in
// runes and the density of symbol runes across the text.
func wordShape(text string) (avgLen float64, symbolDensity float64) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, 0
	}
	totalRunes := 0
	symbols := 0
	for _, f := range fields {
		for _, r := range f {
			totalRunes++
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Han, r) {
				symbols++
			}
		}
	}
	if totalRunes == 0 {
		return 0, 0
	}
	return float64(totalRunes) / float64(len(fields)), float64(symbols) / float64(totalRunes)
}

// replacementCharRatio returns the fraction of runes that are the Unicode
// replacement character (U+FFFD), a direct sign of encoding failure.
func replacementCharRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	count := 0
	for _, r := range runes {
		if r == '�' {
			count++
		}
	}
	return float64(count) / float64(len(runes))
}
