package extract

import (
	"context"
	"errors"
	"testing"

	"forkful/types"
)

type fakeFetcher struct {
	body string
	err  error
}

func (f *fakeFetcher) FetchHTML(_ context.Context, _ string) (string, error) {
	return f.body, f.err
}

const jsonLDPage = `<!DOCTYPE html>
<html><head><title>Blog</title>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@graph": [
    {"@type": "WebSite", "name": "A Food Blog"},
    {
      "@type": "Recipe",
      "name": "Classic Lasagna",
      "description": "A rich and hearty family lasagna.",
      "recipeIngredient": ["500g ground beef", "12 lasagna sheets", "2 cups tomato sauce"],
      "recipeInstructions": [
        {"@type": "HowToStep", "text": "Brown the beef."},
        {"@type": "HowToStep", "text": "Layer everything in a dish."},
        {"@type": "HowToStep", "text": "Bake for 45 minutes."}
      ],
      "prepTime": "PT20M",
      "cookTime": "PT1H30M",
      "recipeYield": "8 servings",
      "image": {"url": "https://example.com/lasagna.jpg"}
    }
  ]
}
</script></head>
<body><article><p>Some intro prose about lasagna.</p></article></body></html>`

func TestPageScrapeUsesStructuredData(t *testing.T) {
	e := NewPageScrapeExtractor(&fakeFetcher{body: jsonLDPage})

	result, err := e.Extract(context.Background(), Input{URL: "https://example.com/lasagna"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := result.Fields[types.FieldTitle].Value; got != "Classic Lasagna" {
		t.Errorf("title = %q", got)
	}
	if len(result.Ingredients) != 3 {
		t.Fatalf("ingredients = %v", result.Ingredients)
	}
	if result.Ingredients[0].Name != "ground beef" || result.Ingredients[0].Quantity != "500" {
		t.Errorf("ingredient decomposition: %+v", result.Ingredients[0])
	}
	if len(result.Steps) != 3 {
		t.Errorf("steps = %v", result.Steps)
	}
	if got := result.Fields[types.FieldPrepMinutes].Value; got != "20" {
		t.Errorf("prep minutes = %q", got)
	}
	if got := result.Fields[types.FieldCookMinutes].Value; got != "90" {
		t.Errorf("cook minutes = %q", got)
	}
	if got := result.Fields[types.FieldServings].Value; got != "8" {
		t.Errorf("servings = %q", got)
	}
	if result.Confidence < 0.9 {
		t.Errorf("complete structured recipe scored %f", result.Confidence)
	}
}

const heuristicPage = `<!DOCTYPE html>
<html><head><title>Grandma's Cookies</title></head>
<body>
<h1>Grandma's Cookies</h1>
<ul>
  <li class="recipe-ingredient">2 cups flour</li>
  <li class="recipe-ingredient">1 cup sugar</li>
  <li class="recipe-ingredient">2 eggs</li>
</ul>
<ol>
  <li class="instruction">Cream the butter and sugar.</li>
  <li class="instruction">Fold in the flour.</li>
  <li class="instruction">Bake at 350 degrees.</li>
</ol>
</body></html>`

func TestPageScrapeFallsBackToDOMHeuristics(t *testing.T) {
	e := NewPageScrapeExtractor(&fakeFetcher{body: heuristicPage})

	result, err := e.Extract(context.Background(), Input{URL: "https://example.com/cookies"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := result.Fields[types.FieldTitle].Value; got != "Grandma's Cookies" {
		t.Errorf("title = %q", got)
	}
	if len(result.Ingredients) != 3 {
		t.Errorf("ingredients = %v", result.Ingredients)
	}
	if len(result.Steps) != 3 {
		t.Errorf("steps = %v", result.Steps)
	}
}

const jumpLinkPage = `<!DOCTYPE html>
<html><head><title>Long Story</title></head>
<body>
<a href="#recipe-card">Jump to Recipe</a>
<p>Three thousand words about my trip to Italy.</p>
<div id="recipe-card">
  <h2>Weeknight Carbonara</h2>
  <ul>
    <li class="ingredient">200g spaghetti</li>
    <li class="ingredient">2 egg yolks</li>
  </ul>
  <ol>
    <li class="instruction">Boil the pasta.</li>
    <li class="instruction">Toss with the yolks off heat.</li>
  </ol>
</div>
</body></html>`

func TestPageScrapeFollowsJumpLink(t *testing.T) {
	e := NewPageScrapeExtractor(&fakeFetcher{body: jumpLinkPage})

	result, err := e.Extract(context.Background(), Input{URL: "https://example.com/trip"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := result.Fields[types.FieldTitle].Value; got != "Weeknight Carbonara" {
		t.Errorf("title = %q, want the recipe card heading", got)
	}
	if len(result.Ingredients) != 2 {
		t.Errorf("ingredients = %v", result.Ingredients)
	}
}

func TestPageScrapePropagatesFetchFailure(t *testing.T) {
	e := NewPageScrapeExtractor(&fakeFetcher{
		err: &types.ExtractionFailure{Kind: types.FailureSourceUnreachable, Detail: "blocked"},
	})

	_, err := e.Extract(context.Background(), Input{URL: "https://example.com/blocked"})
	var ef *types.ExtractionFailure
	if !errors.As(err, &ef) {
		t.Fatalf("expected ExtractionFailure, got %v", err)
	}
	if ef.Extractor != IDPageScrape {
		t.Errorf("failure extractor = %q", ef.Extractor)
	}
	if ef.Kind != types.FailureSourceUnreachable {
		t.Errorf("failure kind = %s", ef.Kind)
	}
}

func TestParseISODuration(t *testing.T) {
	cases := map[string]int{
		"PT20M":      20,
		"PT1H30M":    90,
		"PT2H":       120,
		"45 minutes": 45,
		"":           0,
	}
	for in, want := range cases {
		if got := parseISODuration(in); got != want {
			t.Errorf("parseISODuration(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFindStructuredRecipeHandlesTypeArrays(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type": ["Recipe", "NewsArticle"], "name": "Stew",
	 "recipeIngredient": ["1 lb beef"], "recipeInstructions": "Simmer for hours."}
	</script></head><body></body></html>`

	e := NewPageScrapeExtractor(&fakeFetcher{body: page})
	result, err := e.Extract(context.Background(), Input{URL: "https://example.com/stew"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := result.Fields[types.FieldTitle].Value; got != "Stew" {
		t.Errorf("title = %q", got)
	}
	if len(result.Steps) != 1 {
		t.Errorf("steps = %v", result.Steps)
	}
}
