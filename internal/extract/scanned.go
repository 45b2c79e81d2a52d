package extract

import "strings"

// ScanConfig controls scanned-document classification.
type ScanConfig struct {
	// SamplePages is how many pages from the front of the document are
	// inspected.
	SamplePages int
	// ImageRatio is the fraction of sampled pages that must look
	// scanned for the document to classify as scanned.
	ImageRatio float64
	// MaxPageChars is the text-layer character count at or below which
	// a page counts as textless.
	MaxPageChars int
}

// DefaultScanConfig returns the documented defaults: sample the first 3
// pages, classify as scanned at 80%.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{SamplePages: 3, ImageRatio: 0.8, MaxPageChars: 25}
}

// classifyScanned decides whether a document is a scan: a near-zero
// extractable text layer combined with embedded raster images on the
// sampled pages. A scanned document goes straight to OCR; there is no
// text to judge for garbling.
func classifyScanned(pages []PageResult, doc RasterDocument, cfg ScanConfig) bool {
	if len(pages) == 0 || doc == nil {
		return false
	}

	sample := cfg.SamplePages
	if sample <= 0 {
		sample = DefaultScanConfig().SamplePages
	}
	if sample > len(pages) {
		sample = len(pages)
	}

	scannedLooking := 0
	for i := 0; i < sample; i++ {
		textless := len(strings.TrimSpace(pages[i].Text)) <= cfg.MaxPageChars
		if textless && doc.HasRasterImages(pages[i].Index) {
			scannedLooking++
		}
	}

	ratio := cfg.ImageRatio
	if ratio <= 0 {
		ratio = DefaultScanConfig().ImageRatio
	}
	return float64(scannedLooking) >= ratio*float64(sample)
}
