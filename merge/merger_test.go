package merge

import (
	"errors"
	"reflect"
	"testing"

	"forkful/extract"
	"forkful/types"
)

func fieldResult(id string, conf float64, title string) *types.RawExtractionResult {
	return &types.RawExtractionResult{
		ExtractorID: id,
		Confidence:  conf,
		Fields: map[string]types.FieldValue{
			types.FieldTitle: {Value: title, Confidence: conf, Extractor: id},
		},
		Ingredients:          []types.Ingredient{{Name: "flour"}},
		IngredientConfidence: conf,
		Steps:                []string{"mix everything"},
		StepConfidence:       conf,
	}
}

func testRequest() *types.IngestionRequest {
	return &types.IngestionRequest{Source: types.SourceURL, URL: "https://example.com/r"}
}

func TestMergeHighestConfidenceWins(t *testing.T) {
	m := NewMerger(0.35)

	scrape := fieldResult(extract.IDPageScrape, 0.5, "Scraped Title")
	ai := fieldResult(extract.IDAIText, 0.9, "AI Title")

	recipe, err := m.Merge([]*types.RawExtractionResult{scrape, ai}, testRequest(), nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if recipe.Title != "AI Title" {
		t.Errorf("title = %q, want the higher-confidence value", recipe.Title)
	}
	if prov := recipe.Provenance[types.FieldTitle]; prov.Extractor != extract.IDAIText {
		t.Errorf("title provenance = %+v, want ai_text", prov)
	}
}

func TestMergeTieBreaksOnExtractorPriority(t *testing.T) {
	m := NewMerger(0.35)

	ai := fieldResult(extract.IDAIText, 0.7, "AI Title")
	scrape := fieldResult(extract.IDPageScrape, 0.7, "Scraped Title")

	// AI result listed first; the structured extractor must still win the tie.
	recipe, err := m.Merge([]*types.RawExtractionResult{ai, scrape}, testRequest(), nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if recipe.Title != "Scraped Title" {
		t.Errorf("title = %q, want page_scrape to win the confidence tie", recipe.Title)
	}
}

func TestMergeSelectsWholeIngredientList(t *testing.T) {
	m := NewMerger(0.35)

	scrape := fieldResult(extract.IDPageScrape, 0.8, "Title")
	scrape.Ingredients = []types.Ingredient{{Name: "flour"}, {Name: "sugar"}}
	scrape.IngredientConfidence = 0.8

	ai := fieldResult(extract.IDAIText, 0.6, "Title")
	ai.Ingredients = []types.Ingredient{{Name: "butter"}, {Name: "eggs"}, {Name: "milk"}}
	ai.IngredientConfidence = 0.6

	recipe, err := m.Merge([]*types.RawExtractionResult{scrape, ai}, testRequest(), nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	want := []types.Ingredient{{Name: "flour"}, {Name: "sugar"}}
	if !reflect.DeepEqual(recipe.Ingredients, want) {
		t.Errorf("ingredients spliced across extractors: %v", recipe.Ingredients)
	}
	if prov := recipe.Provenance[types.FieldIngredients]; prov.Extractor != extract.IDPageScrape {
		t.Errorf("ingredient provenance = %+v", prov)
	}
}

func TestMergeFillsGapsFromLowerConfidenceResult(t *testing.T) {
	m := NewMerger(0.35)

	scrape := fieldResult(extract.IDPageScrape, 0.9, "Title")
	ai := fieldResult(extract.IDAIText, 0.4, "Other Title")
	ai.Fields[types.FieldServings] = types.FieldValue{Value: "4", Confidence: 0.4, Extractor: extract.IDAIText}

	recipe, err := m.Merge([]*types.RawExtractionResult{scrape, ai}, testRequest(), nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if recipe.Servings != 4 {
		t.Errorf("servings = %d, want gap filled from the weaker result", recipe.Servings)
	}
	if recipe.Title != "Title" {
		t.Errorf("title = %q, want the stronger result to keep contested fields", recipe.Title)
	}
}

func TestMergeRejectsBelowConfidenceFloor(t *testing.T) {
	m := NewMerger(0.35)

	weak := fieldResult(extract.IDAIText, 0.2, "Maybe a Title")
	_, err := m.Merge([]*types.RawExtractionResult{weak}, testRequest(), nil)

	var mf *types.MergeFailure
	if !errors.As(err, &mf) {
		t.Fatalf("expected MergeFailure, got %v", err)
	}
	if mf.Kind != types.FailureInsufficientConfidence {
		t.Errorf("failure kind = %s", mf.Kind)
	}
}

func TestMergeRejectsMissingMandatoryList(t *testing.T) {
	m := NewMerger(0.35)

	noSteps := fieldResult(extract.IDPageScrape, 0.9, "Title")
	noSteps.Steps = nil

	_, err := m.Merge([]*types.RawExtractionResult{noSteps}, testRequest(), nil)
	var mf *types.MergeFailure
	if !errors.As(err, &mf) {
		t.Fatalf("expected MergeFailure, got %v", err)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	m := NewMerger(0.35)
	if _, err := m.Merge(nil, testRequest(), nil); err == nil {
		t.Fatal("expected failure for empty input")
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	m := NewMerger(0.35)
	inputs := []*types.RawExtractionResult{
		fieldResult(extract.IDPageScrape, 0.7, "A"),
		fieldResult(extract.IDAIText, 0.7, "B"),
	}

	first, err := m.Merge(inputs, testRequest(), nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := m.Merge(inputs, testRequest(), nil)
		if err != nil {
			t.Fatalf("Merge failed on repeat: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("merge of identical inputs diverged on run %d", i)
		}
	}
}

func TestMergeCarriesSourceAndMedia(t *testing.T) {
	m := NewMerger(0.35)
	req := &types.IngestionRequest{Source: types.SourceUploadedFile}

	r := fieldResult(extract.IDImageRecognition, 0.8, "Title")
	recipe, err := m.Merge([]*types.RawExtractionResult{r}, req, []string{"media/abc_photo.jpg"})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if recipe.SourceType != types.SourceUploadedFile {
		t.Errorf("source type = %s", recipe.SourceType)
	}
	if len(recipe.MediaRefs) != 1 || recipe.MediaRefs[0] != "media/abc_photo.jpg" {
		t.Errorf("media refs = %v", recipe.MediaRefs)
	}
}
