package extract

import (
	"strconv"

	"forkful/types"
)

// recipeParts is the extractor-neutral bag of everything one strategy
// recovered from a source.
type recipeParts struct {
	Title        string
	Description  string
	ImageURL     string
	Servings     int
	PrepMinutes  int
	CookMinutes  int
	TotalMinutes int
	Ingredients  []types.Ingredient
	Steps        []string
	Text         string
}

func partsFromParsedText(p *ParsedText) recipeParts {
	return recipeParts{
		Title:        p.Title,
		Description:  p.Description,
		Servings:     p.Servings,
		PrepMinutes:  p.PrepMinutes,
		CookMinutes:  p.CookMinutes,
		TotalMinutes: p.TotalMinutes,
		Ingredients:  p.Ingredients,
		Steps:        p.Steps,
	}
}

// buildResult assembles an extraction result, stamping every present field
// with the extractor's confidence and listing absent mandatory fields as
// unresolved.
func buildResult(id string, confidence float64, parts recipeParts) *types.RawExtractionResult {
	result := &types.RawExtractionResult{
		ExtractorID:          id,
		Confidence:           confidence,
		Fields:               make(map[string]types.FieldValue),
		Ingredients:          parts.Ingredients,
		IngredientConfidence: confidence,
		Steps:                parts.Steps,
		StepConfidence:       confidence,
		Text:                 parts.Text,
	}

	setField := func(name, value string) {
		if value != "" {
			result.Fields[name] = types.FieldValue{Value: value, Confidence: confidence, Extractor: id}
		}
	}
	setInt := func(name string, value int) {
		if value > 0 {
			result.Fields[name] = types.FieldValue{Value: strconv.Itoa(value), Confidence: confidence, Extractor: id}
		}
	}

	setField(types.FieldTitle, parts.Title)
	setField(types.FieldDescription, parts.Description)
	setField(types.FieldImageURL, parts.ImageURL)
	setInt(types.FieldServings, parts.Servings)
	setInt(types.FieldPrepMinutes, parts.PrepMinutes)
	setInt(types.FieldCookMinutes, parts.CookMinutes)
	setInt(types.FieldTotalMinutes, parts.TotalMinutes)

	if parts.Title == "" {
		result.Unresolved = append(result.Unresolved, types.FieldTitle)
	}
	if len(parts.Ingredients) == 0 {
		result.Unresolved = append(result.Unresolved, types.FieldIngredients)
	}
	if len(parts.Steps) == 0 {
		result.Unresolved = append(result.Unresolved, types.FieldSteps)
	}
	return result
}

// completenessConfidence scores how much of a full recipe the parts cover.
// Weights favor the two mandatory lists, then title, then metadata.
func completenessConfidence(parts recipeParts) float64 {
	score := 0
	if len(parts.Title) > 3 {
		score += 20
	}
	switch {
	case len(parts.Steps) >= 3:
		score += 30
	case len(parts.Steps) >= 1:
		score += 15
	}
	switch {
	case len(parts.Ingredients) >= 3:
		score += 25
	case len(parts.Ingredients) >= 1:
		score += 10
	}
	if parts.PrepMinutes > 0 || parts.CookMinutes > 0 || parts.TotalMinutes > 0 {
		score += 10
	}
	if parts.Servings > 0 {
		score += 5
	}
	if len(parts.Description) > 10 {
		score += 10
	}
	return float64(score) / 100.0
}
