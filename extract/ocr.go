package extract

import (
	"context"
	"errors"

	"forkful/types"
)

// Recognizer turns an approved image into text. Confidence is the engine's
// own 0..1 estimate of recognition quality, independent of whether the text
// is a recipe.
type Recognizer interface {
	Recognize(ctx context.Context, imageRef string) (text string, confidence float64, err error)
}

// ImageExtractor recovers a recipe from a photographed or screenshotted
// recipe via OCR. It only ever sees refs that cleared quarantine.
type ImageExtractor struct {
	ocr Recognizer
}

func NewImageExtractor(ocr Recognizer) *ImageExtractor {
	return &ImageExtractor{ocr: ocr}
}

func (e *ImageExtractor) ID() string { return IDImageRecognition }

func (e *ImageExtractor) CanHandle(in Input) bool { return in.ImageRef != "" }

func (e *ImageExtractor) Extract(ctx context.Context, in Input) (*types.RawExtractionResult, error) {
	text, ocrConfidence, err := e.recognize(ctx, in.ImageRef)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, failure(e.ID(), types.FailureExtractionTimeout, "recognition exceeded the attempt budget", err)
		}
		return nil, failure(e.ID(), types.FailureUnsupportedSource, "image not readable", err)
	}
	if text == "" {
		return nil, failure(e.ID(), types.FailureInsufficientConfidence, "no text recognized in image", nil)
	}

	parsed := ParseRecipeText(text)
	parts := partsFromParsedText(parsed)
	parts.Text = text
	parts.ImageURL = in.ImageRef

	// Recognition quality discounts structural confidence: clean structure
	// read from garbled text is still suspect.
	confidence := parsed.Confidence * ocrConfidence
	return buildResult(e.ID(), confidence, parts), nil
}

type recognition struct {
	text       string
	confidence float64
	err        error
}

// recognize guards the engine call with the attempt context. Engines like
// Tesseract cannot be interrupted mid-call, so a timed-out recognition is
// abandoned to finish on its own goroutine.
func (e *ImageExtractor) recognize(ctx context.Context, imageRef string) (string, float64, error) {
	done := make(chan recognition, 1)
	go func() {
		text, confidence, err := e.ocr.Recognize(ctx, imageRef)
		done <- recognition{text: text, confidence: confidence, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	case r := <-done:
		return r.text, r.confidence, r.err
	}
}
