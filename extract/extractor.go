package extract

import (
	"context"

	"forkful/types"
)

// Extractor IDs. Priority breaks confidence ties during merging: a more
// structured source wins over a more generative one.
const (
	IDPageScrape       = "page_scrape"
	IDSocialPost       = "social_post"
	IDImageRecognition = "image_recognition"
	IDAIText           = "ai_text"
)

var priorities = map[string]int{
	IDPageScrape:       0,
	IDSocialPost:       1,
	IDImageRecognition: 2,
	IDAIText:           3,
}

// Priority returns the tie-break rank for an extractor ID; unknown IDs sort
// last.
func Priority(id string) int {
	if p, ok := priorities[id]; ok {
		return p
	}
	return len(priorities)
}

// Input is the single payload handed to an extractor. Exactly one primary
// member is meaningful per source kind; Text additionally carries the best
// text a previous chain member recovered, so an escalation never starts from
// nothing.
type Input struct {
	URL      string
	Text     string
	ImageRef string
}

// Extractor is one strategy for recovering recipe structure from a source.
// Extract returns a partial result with per-field confidence, or a
// *types.ExtractionFailure describing why this strategy cannot proceed.
type Extractor interface {
	ID() string
	CanHandle(in Input) bool
	Extract(ctx context.Context, in Input) (*types.RawExtractionResult, error)
}

func failure(extractor string, kind types.FailureKind, detail string, err error) *types.ExtractionFailure {
	return &types.ExtractionFailure{Extractor: extractor, Kind: kind, Detail: detail, Err: err}
}
