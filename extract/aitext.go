package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"forkful/types"
)

// CompletionClient is the narrow surface of a hosted language model used for
// recipe extraction.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Cache stores completed AI extractions keyed by source text, so retries and
// duplicate submissions of the same content skip the paid upstream call.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// AITextExtractor is the terminal chain member: it asks a language model to
// structure text every cheaper strategy failed on.
type AITextExtractor struct {
	client CompletionClient
	cache  Cache
}

// NewAITextExtractor creates the extractor. cache may be nil.
func NewAITextExtractor(client CompletionClient, cache Cache) *AITextExtractor {
	return &AITextExtractor{client: client, cache: cache}
}

func (e *AITextExtractor) ID() string { return IDAIText }

func (e *AITextExtractor) CanHandle(in Input) bool { return strings.TrimSpace(in.Text) != "" }

// aiRecipe is the JSON shape the model is instructed to reply with.
type aiRecipe struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Ingredients  []types.Ingredient `json:"ingredients"`
	Steps        []string           `json:"steps"`
	Servings     int                `json:"servings"`
	PrepMinutes  int                `json:"prep_minutes"`
	CookMinutes  int                `json:"cook_minutes"`
	TotalMinutes int                `json:"total_minutes"`
	Confidence   float64            `json:"confidence"`
}

const extractionPrompt = `Extract the recipe from the text below. Reply with ONLY a JSON object, no prose, using exactly this shape:
{
  "title": "...",
  "description": "...",
  "ingredients": [{"quantity": "2", "unit": "cups", "name": "flour"}],
  "steps": ["..."],
  "servings": 0,
  "prep_minutes": 0,
  "cook_minutes": 0,
  "total_minutes": 0,
  "confidence": 0.0
}
Use empty strings or 0 for anything the text does not state. Set confidence between 0 and 1 to reflect how certain you are that the text contains this recipe.

Text:
`

func (e *AITextExtractor) Extract(ctx context.Context, in Input) (*types.RawExtractionResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, failure(e.ID(), types.FailureUnsupportedSource, "no text available for AI extraction", nil)
	}

	key := cacheKey(text)
	if e.cache != nil {
		if raw, ok := e.cache.Get(ctx, key); ok {
			var cached types.RawExtractionResult
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				cached.Text = text
				cached.Cached = true
				return &cached, nil
			}
		}
	}

	reply, err := e.client.Complete(ctx, extractionPrompt+text)
	if err != nil {
		var ef *types.ExtractionFailure
		if errors.As(err, &ef) {
			ef.Extractor = e.ID()
			return nil, ef
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, failure(e.ID(), types.FailureExtractionTimeout, "", err)
		}
		return nil, failure(e.ID(), types.FailureSourceUnreachable, "completion call failed", err)
	}

	var recipe aiRecipe
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &recipe); err != nil {
		return nil, failure(e.ID(), types.FailureMalformedResponse, "model reply is not the requested JSON", err)
	}

	parts := recipeParts{
		Title:        strings.TrimSpace(recipe.Title),
		Description:  strings.TrimSpace(recipe.Description),
		Servings:     recipe.Servings,
		PrepMinutes:  recipe.PrepMinutes,
		CookMinutes:  recipe.CookMinutes,
		TotalMinutes: recipe.TotalMinutes,
		Ingredients:  cleanIngredients(recipe.Ingredients),
		Steps:        cleanSteps(recipe.Steps),
		Text:         text,
	}

	confidence := recipe.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = completenessConfidence(parts)
	}
	result := buildResult(e.ID(), confidence, parts)

	if e.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			e.cache.Set(ctx, key, string(raw))
		}
	}
	return result, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "extract:ai:" + hex.EncodeToString(sum[:])
}

// stripCodeFences removes a markdown fence the model sometimes wraps its
// JSON in despite instructions.
func stripCodeFences(reply string) string {
	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(reply, "```") {
		reply = strings.TrimPrefix(reply, "```json")
		reply = strings.TrimPrefix(reply, "```")
		if i := strings.LastIndex(reply, "```"); i >= 0 {
			reply = reply[:i]
		}
	}
	return strings.TrimSpace(reply)
}

func cleanIngredients(in []types.Ingredient) []types.Ingredient {
	var out []types.Ingredient
	for _, ing := range in {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name != "" {
			out = append(out, ing)
		}
	}
	return out
}

func cleanSteps(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
