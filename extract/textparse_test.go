package extract

import (
	"testing"
)

const captionFixture = `Easy Homemade Carbonara Recipe

This creamy pasta is my go-to weeknight dinner and takes under half an hour from start to finish.

Serves 4

Ingredients:
- 400g spaghetti
- 4 egg yolks
- 100 g parmesan cheese
- 150g pancetta
- 1 tsp black pepper

Instructions:
1. Boil the spaghetti in salted water until al dente.
2. Fry the pancetta until crisp.
3. Whisk the egg yolks with the cheese and pepper.
4. Toss everything together off the heat and serve immediately.`

func TestParseRecipeTextFullCaption(t *testing.T) {
	parsed := ParseRecipeText(captionFixture)

	if parsed.Title != "Easy Homemade Carbonara Recipe" {
		t.Errorf("title = %q", parsed.Title)
	}
	if len(parsed.Ingredients) != 5 {
		t.Fatalf("expected 5 ingredients, got %d: %v", len(parsed.Ingredients), parsed.Ingredients)
	}
	if len(parsed.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d: %v", len(parsed.Steps), parsed.Steps)
	}
	if parsed.Servings != 4 {
		t.Errorf("servings = %d, want 4", parsed.Servings)
	}
	if parsed.Steps[0] != "Boil the spaghetti in salted water until al dente." {
		t.Errorf("step numbering not stripped: %q", parsed.Steps[0])
	}
	if parsed.Confidence < 0.8 {
		t.Errorf("confidence = %f, want >= 0.8 for a complete recipe", parsed.Confidence)
	}
}

func TestParseRecipeTextWithoutSectionHeaders(t *testing.T) {
	text := `Quick garlic butter shrimp for dinner tonight
2 tbsp butter
1 lb shrimp
3 cloves garlic
Heat the butter in a pan over medium heat.
Add the garlic and cook until fragrant.
Add the shrimp and cook for 3 minutes per side.`

	parsed := ParseRecipeText(text)
	if len(parsed.Ingredients) < 3 {
		t.Errorf("expected >=3 ingredients without headers, got %v", parsed.Ingredients)
	}
	if len(parsed.Steps) < 3 {
		t.Errorf("expected >=3 steps without headers, got %v", parsed.Steps)
	}
}

func TestParseRecipeTextNonRecipe(t *testing.T) {
	parsed := ParseRecipeText("Had a great time at the beach today! The weather was perfect.")
	if parsed.Confidence > 0.3 {
		t.Errorf("non-recipe text scored %f, want low confidence", parsed.Confidence)
	}
	if len(parsed.Ingredients) != 0 {
		t.Errorf("found phantom ingredients: %v", parsed.Ingredients)
	}
}

func TestParseRecipeTextEmptyInput(t *testing.T) {
	parsed := ParseRecipeText("")
	if parsed.Confidence != 0 {
		t.Errorf("empty input confidence = %f, want 0", parsed.Confidence)
	}
	if parsed.Title != "" || len(parsed.Ingredients) != 0 || len(parsed.Steps) != 0 {
		t.Errorf("empty input produced content: %+v", parsed)
	}
}

func TestDecomposeIngredient(t *testing.T) {
	cases := []struct {
		line                 string
		quantity, unit, name string
	}{
		{"2 cups flour", "2", "cups", "flour"},
		{"- 1/2 tsp salt", "1/2", "tsp", "salt"},
		{"1.5 lbs chicken breast", "1.5", "lbs", "chicken breast"},
		{"3 cloves garlic", "3", "cloves", "garlic"},
		{"salt to taste", "", "", "salt to taste"},
		{"1 pinch of saffron", "1", "pinch", "saffron"},
	}
	for _, c := range cases {
		got := DecomposeIngredient(c.line)
		if got.Quantity != c.quantity || got.Unit != c.unit || got.Name != c.name {
			t.Errorf("DecomposeIngredient(%q) = {%q %q %q}, want {%q %q %q}",
				c.line, got.Quantity, got.Unit, got.Name, c.quantity, c.unit, c.name)
		}
	}
}

func TestStripSocialArtifacts(t *testing.T) {
	got := StripSocialArtifacts("Best pasta ever #foodie #recipe thanks @chefmaria")
	if got != "Best pasta ever   thanks" && got != "Best pasta ever thanks" {
		t.Errorf("StripSocialArtifacts left artifacts: %q", got)
	}
}

func TestExtractServingsVariants(t *testing.T) {
	cases := map[string]int{
		"Makes 6 servings":   6,
		"serves 4":           4,
		"Yield: 12 cookies":  12,
		"8 servings":         8,
		"no serving info at": 0,
	}
	for text, want := range cases {
		if got := extractServings(text); got != want {
			t.Errorf("extractServings(%q) = %d, want %d", text, got, want)
		}
	}
}
