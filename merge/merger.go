package merge

import (
	"fmt"
	"strconv"
	"strings"

	"forkful/extract"
	"forkful/types"
)

// scalarFields is the fixed merge order. Iterating a fixed slice rather than
// the field maps keeps merging deterministic for identical inputs.
var scalarFields = []string{
	types.FieldTitle,
	types.FieldDescription,
	types.FieldServings,
	types.FieldPrepMinutes,
	types.FieldCookMinutes,
	types.FieldTotalMinutes,
	types.FieldImageURL,
}

// Merger reconciles the partial results of every extractor that ran into one
// canonical recipe. Field conflicts resolve to the highest-confidence value;
// equal confidence resolves to the more structured extractor.
type Merger struct {
	minConfidence float64
}

// NewMerger creates a merger that requires mandatory fields to clear
// minConfidence.
func NewMerger(minConfidence float64) *Merger {
	return &Merger{minConfidence: minConfidence}
}

// Merge builds the canonical recipe from all usable extraction results.
// It returns a *types.MergeFailure when the mandatory fields (title, at
// least one ingredient, at least one step) cannot be established at or above
// the confidence floor.
func (m *Merger) Merge(results []*types.RawExtractionResult, req *types.IngestionRequest, mediaRefs []string) (*types.CanonicalRecipe, error) {
	usable := make([]*types.RawExtractionResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, &types.MergeFailure{
			Kind:   types.FailureInsufficientConfidence,
			Detail: "no extraction results to merge",
		}
	}

	recipe := &types.CanonicalRecipe{
		SourceType: req.Source,
		SourceURL:  req.URL,
		MediaRefs:  mediaRefs,
		Provenance: make(map[string]types.Provenance),
	}

	fields := make(map[string]types.FieldValue)
	for _, name := range scalarFields {
		if fv, ok := bestField(usable, name); ok {
			fields[name] = fv
			recipe.Provenance[name] = types.Provenance{Extractor: fv.Extractor, Confidence: fv.Confidence}
		}
	}

	ingredients, ingredientProv := bestIngredients(usable)
	steps, stepProv := bestSteps(usable)

	var missing []string
	if title, ok := fields[types.FieldTitle]; !ok || title.Confidence < m.minConfidence {
		missing = append(missing, types.FieldTitle)
	}
	if len(ingredients) == 0 || ingredientProv.Confidence < m.minConfidence {
		missing = append(missing, types.FieldIngredients)
	}
	if len(steps) == 0 || stepProv.Confidence < m.minConfidence {
		missing = append(missing, types.FieldSteps)
	}
	if len(missing) > 0 {
		return nil, &types.MergeFailure{
			Kind:   types.FailureInsufficientConfidence,
			Detail: fmt.Sprintf("mandatory fields below confidence floor: %s", strings.Join(missing, ", ")),
		}
	}

	recipe.Title = fields[types.FieldTitle].Value
	recipe.Description = fields[types.FieldDescription].Value
	recipe.Servings = fieldInt(fields, types.FieldServings)
	recipe.PrepMinutes = fieldInt(fields, types.FieldPrepMinutes)
	recipe.CookMinutes = fieldInt(fields, types.FieldCookMinutes)
	recipe.TotalMinutes = fieldInt(fields, types.FieldTotalMinutes)
	recipe.Ingredients = ingredients
	recipe.Steps = steps
	recipe.Provenance[types.FieldIngredients] = ingredientProv
	recipe.Provenance[types.FieldSteps] = stepProv

	if img, ok := fields[types.FieldImageURL]; ok && len(recipe.MediaRefs) == 0 {
		recipe.MediaRefs = []string{img.Value}
	}
	return recipe, nil
}

// bestField picks the winning value for one scalar field across all results.
func bestField(results []*types.RawExtractionResult, name string) (types.FieldValue, bool) {
	var best types.FieldValue
	found := false
	for _, r := range results {
		fv, ok := r.Fields[name]
		if !ok || fv.Value == "" {
			continue
		}
		if !found || wins(fv.Confidence, fv.Extractor, best.Confidence, best.Extractor) {
			best = fv
			found = true
		}
	}
	return best, found
}

// bestIngredients selects one whole ingredient list rather than splicing
// lines from different extractors.
func bestIngredients(results []*types.RawExtractionResult) ([]types.Ingredient, types.Provenance) {
	var (
		best []types.Ingredient
		prov types.Provenance
	)
	for _, r := range results {
		if len(r.Ingredients) == 0 {
			continue
		}
		if best == nil || wins(r.IngredientConfidence, r.ExtractorID, prov.Confidence, prov.Extractor) {
			best = r.Ingredients
			prov = types.Provenance{Extractor: r.ExtractorID, Confidence: r.IngredientConfidence}
		}
	}
	return best, prov
}

func bestSteps(results []*types.RawExtractionResult) ([]string, types.Provenance) {
	var (
		best []string
		prov types.Provenance
	)
	for _, r := range results {
		if len(r.Steps) == 0 {
			continue
		}
		if best == nil || wins(r.StepConfidence, r.ExtractorID, prov.Confidence, prov.Extractor) {
			best = r.Steps
			prov = types.Provenance{Extractor: r.ExtractorID, Confidence: r.StepConfidence}
		}
	}
	return best, prov
}

// wins implements the conflict rule: higher confidence first, then the more
// structured (lower-priority-rank) extractor on exact ties.
func wins(conf float64, extractor string, bestConf float64, bestExtractor string) bool {
	if conf != bestConf {
		return conf > bestConf
	}
	return extract.Priority(extractor) < extract.Priority(bestExtractor)
}

func fieldInt(fields map[string]types.FieldValue, name string) int {
	fv, ok := fields[name]
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(fv.Value)
	return n
}
