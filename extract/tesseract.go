package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// MediaReader resolves a promoted working-media reference to its bytes.
// The quarantine store satisfies this, so the recognizer reads the same
// backend the scanner promoted into, local filesystem or S3.
type MediaReader interface {
	ReadWorking(ctx context.Context, ref string) ([]byte, error)
}

// TesseractRecognizer runs OCR through a local Tesseract installation.
// A fresh client per call keeps recognitions independent; gosseract clients
// are not safe for concurrent reuse.
type TesseractRecognizer struct {
	languages []string
	media     MediaReader
}

func NewTesseractRecognizer(languages []string, media MediaReader) *TesseractRecognizer {
	return &TesseractRecognizer{languages: languages, media: media}
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, imageRef string) (string, float64, error) {
	data, err := r.media.ReadWorking(ctx, imageRef)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read image %s: %w", imageRef, err)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(r.languages) > 0 {
		if err := client.SetLanguage(r.languages...); err != nil {
			return "", 0, fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", 0, fmt.Errorf("failed to load image into OCR engine: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("OCR recognition failed: %w", err)
	}
	return strings.TrimSpace(text), meanWordConfidence(client), nil
}

// meanWordConfidence averages per-word confidences, scaled to 0..1.
func meanWordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
