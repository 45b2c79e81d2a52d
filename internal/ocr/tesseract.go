/**
 * Tesseract OCR engine.
 *
 * Offline recognition via gosseract. A fresh client is created per call:
 * gosseract clients are not safe for concurrent use, and per-call clients
 * let concurrent page recognition proceed without a shared lock.
 */

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine using the gosseract client.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Available checks that the Tesseract runtime has usable language data.
func (e *TesseractEngine) Available() error {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(langs) == 0 {
		return fmt.Errorf("%w: no language data installed", ErrUnavailable)
	}
	return nil
}

// Recognize performs OCR on a single encoded page image.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			// A rejected language set means the trained data is not
			// installed, which is an environment problem, not a
			// property of this page.
			return "", fmt.Errorf("%w: set languages %v: %v", ErrUnavailable, languages, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
