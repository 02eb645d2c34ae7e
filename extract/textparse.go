package extract

import (
	"regexp"
	"strconv"
	"strings"

	"forkful/types"
)

// ParsedText is the structured output of the heuristic text parser. It is the
// common backend for social captions, OCR output, and raw pasted text.
type ParsedText struct {
	Title        string
	Description  string
	Ingredients  []types.Ingredient
	Steps        []string
	Servings     int
	PrepMinutes  int
	CookMinutes  int
	TotalMinutes int
	Confidence   float64
}

var ingredientSectionKeywords = []string{
	"ingredients", "ingredient", "you'll need", "you will need",
	"shopping list", "what you need", "grocery list", "supplies",
}

var instructionSectionKeywords = []string{
	"instructions", "instruction", "directions", "direction", "method",
	"steps", "how to make", "preparation", "cooking method", "procedure",
}

var measurementUnits = []string{
	"cups", "cup", "tablespoons", "tablespoon", "tbsp", "teaspoons",
	"teaspoon", "tsp", "ounces", "ounce", "oz", "pounds", "pound", "lbs",
	"lb", "kilograms", "kilogram", "kg", "grams", "gram", "g",
	"milliliters", "milliliter", "ml", "liters", "liter", "l",
	"pinch", "dash", "handful", "cloves", "clove", "slices", "slice",
	"pieces", "piece", "cans", "can", "jars", "jar", "packages", "package",
	"bunches", "bunch",
}

var cookingActions = []string{
	"mix", "stir", "combine", "whisk", "beat", "fold", "chop", "dice",
	"mince", "slice", "cut", "heat", "cook", "bake", "fry", "saute",
	"sauté", "boil", "simmer", "roast", "grill", "season", "add", "remove",
	"serve", "garnish", "blend", "process", "knead", "roll", "pour",
}

var foodIndicators = []string{
	"oil", "salt", "pepper", "sugar", "flour", "butter", "milk", "egg",
	"cheese", "chicken", "beef", "fish", "onion", "garlic", "tomato",
	"water", "vinegar", "lemon", "herbs", "spice", "vanilla", "baking",
	"powder", "soda", "chocolate", "chips",
}

var recipeKeywords = []string{
	"recipe", "cook", "bake", "ingredients", "instructions",
	"delicious", "homemade", "easy", "simple", "tasty",
}

var (
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	multiNewline      = regexp.MustCompile(`\n{3,}`)
	bulletPrefix      = regexp.MustCompile(`^\s*[-•*]\s+`)
	stepNumberPrefix  = regexp.MustCompile(`^\d+[.)]\s*`)
	numberedStep      = regexp.MustCompile(`^(\d+\.|\d+\)\s|step \d+)`)
	sequenceStart     = regexp.MustCompile(`^(first|then|next|finally)\b`)
	timeOrTemp        = regexp.MustCompile(`until|for \d+|°|degrees|minutes?|hours?|oven|bake`)
	servingsLine      = regexp.MustCompile(`(?i)(?:makes?|serves?|yield:?)\s+(\d+)|(\d+)\s*servings?`)
	prepTimePattern   = regexp.MustCompile(`(?i)prep(?:aration)?\s*time:?\s*(\d+)\s*(?:min|minute)`)
	cookTimePattern   = regexp.MustCompile(`(?i)cook(?:ing)?\s*time:?\s*(\d+)\s*(?:min|minute)`)
	totalTimePattern  = regexp.MustCompile(`(?i)total\s*time:?\s*(\d+)\s*(?:min|minute)`)
	quantityPattern   = regexp.MustCompile(`^(\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?(?:\s*-\s*\d+(?:\.\d+)?)?|[½⅓⅔¼¾⅛]|half|quarter|a few|several|some)\s*`)
	anyDigit          = regexp.MustCompile(`\d`)
	hashtagOrMention  = regexp.MustCompile(`[#@]\w+`)
	maxIngredients    = 25
	maxSteps          = 15
)

// ParseRecipeText recovers recipe structure from unstructured text using
// section headers, measurement vocabulary, and cooking-verb heuristics.
// Confidence reflects completeness, not correctness.
func ParseRecipeText(text string) *ParsedText {
	cleaned := cleanText(text)
	lines := nonEmptyLines(cleaned)

	result := &ParsedText{
		Title:       extractTitle(lines),
		Description: extractDescription(lines),
		Servings:    extractServings(cleaned),
	}
	result.PrepMinutes = firstIntMatch(prepTimePattern, cleaned)
	result.CookMinutes = firstIntMatch(cookTimePattern, cleaned)
	result.TotalMinutes = firstIntMatch(totalTimePattern, cleaned)

	ingredientLines, stepLines := splitSections(lines, result.Description)
	for _, line := range ingredientLines {
		result.Ingredients = append(result.Ingredients, DecomposeIngredient(line))
		if len(result.Ingredients) >= maxIngredients {
			break
		}
	}
	for _, line := range stepLines {
		result.Steps = append(result.Steps, stepNumberPrefix.ReplaceAllString(line, ""))
		if len(result.Steps) >= maxSteps {
			break
		}
	}

	result.Confidence = textConfidence(result, cleaned)
	return result
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = urlPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func extractTitle(lines []string) string {
	// Short early lines with recipe vocabulary are the strongest signal.
	titleWords := []string{"recipe", "easy", "homemade", "delicious", "simple"}
	for i, line := range lines {
		if i >= 3 {
			break
		}
		if len(line) >= 5 && len(line) <= 50 && !looksLikeIngredient(line) {
			lower := strings.ToLower(line)
			for _, w := range titleWords {
				if strings.Contains(lower, w) {
					return line
				}
			}
		}
	}
	for _, line := range lines {
		if len(line) > 5 && len(strings.Fields(line)) >= 2 &&
			!looksLikeIngredient(line) && !looksLikeInstruction(line) {
			if len(line) > 50 {
				return line[:50]
			}
			return line
		}
	}
	return ""
}

// extractDescription looks for a long descriptive paragraph near the top that
// is neither an ingredient nor an imperative cooking instruction. Descriptive
// prose often mentions times ("ready in 30 minutes"), so only the opening
// word is checked against cooking verbs.
func extractDescription(lines []string) string {
	for i, line := range lines {
		if i >= 5 {
			break
		}
		if len(line) > 50 && !looksLikeIngredient(line) &&
			!numberedStep.MatchString(strings.ToLower(line)) &&
			!startsWithCookingAction(line) &&
			!servingsLine.MatchString(line) {
			return line
		}
	}
	return ""
}

func startsWithCookingAction(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}
	for _, action := range cookingActions {
		if fields[0] == action {
			return true
		}
	}
	return false
}

// splitSections walks the text once, switching buckets on section headers and
// classifying unheadered lines by shape. The description line is prose, not
// recipe structure, and is excluded up front.
func splitSections(lines []string, description string) (ingredients, steps []string) {
	section := ""
	var loose []string

	for _, line := range lines {
		if description != "" && line == description {
			continue
		}
		lower := strings.ToLower(line)
		if isSectionHeader(lower, ingredientSectionKeywords) {
			section = "ingredients"
			continue
		}
		if isSectionHeader(lower, instructionSectionKeywords) {
			section = "instructions"
			continue
		}
		if servingsLine.MatchString(line) && len(strings.Fields(line)) <= 4 {
			continue
		}
		switch section {
		case "ingredients":
			if looksLikeInstruction(line) && !looksLikeIngredient(line) {
				steps = append(steps, line)
			} else if looksLikeIngredient(line) {
				ingredients = append(ingredients, line)
			}
		case "instructions":
			if looksLikeInstruction(line) {
				steps = append(steps, line)
			}
		default:
			loose = append(loose, line)
		}
	}

	// No explicit sections: classify every line by shape.
	for _, line := range loose {
		switch {
		case looksLikeInstruction(line) && !looksLikeIngredient(line):
			steps = append(steps, line)
		case looksLikeIngredient(line):
			ingredients = append(ingredients, line)
		}
	}
	return ingredients, steps
}

func isSectionHeader(lower string, keywords []string) bool {
	if len(strings.Fields(lower)) > 4 {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func looksLikeIngredient(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	if len(lower) < 3 {
		return false
	}
	if bulletPrefix.MatchString(line) {
		clean := bulletPrefix.ReplaceAllString(lower, "")
		if len(clean) > 3 && len(strings.Fields(clean)) <= 8 {
			return true
		}
	}
	if containsUnit(lower) {
		return true
	}
	if anyDigit.MatchString(line) && len(strings.Fields(line)) <= 8 {
		for _, food := range foodIndicators {
			if strings.Contains(lower, food) {
				return true
			}
		}
	}
	return false
}

func looksLikeInstruction(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	if len(lower) < 5 {
		return false
	}
	if numberedStep.MatchString(lower) || sequenceStart.MatchString(lower) {
		return true
	}
	words := len(strings.Fields(line))
	if words >= 3 {
		for _, action := range cookingActions {
			if strings.Contains(lower, action) {
				return true
			}
		}
		if timeOrTemp.MatchString(lower) {
			return true
		}
	}
	return false
}

func containsUnit(lower string) bool {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '(' || r == ')' || r == ','
	})
	for _, w := range words {
		for _, unit := range measurementUnits {
			if w == unit {
				return true
			}
		}
	}
	return false
}

// DecomposeIngredient splits an ingredient line into quantity, unit, and name.
// Lines that resist decomposition keep the whole text as the name.
func DecomposeIngredient(line string) types.Ingredient {
	text := bulletPrefix.ReplaceAllString(strings.TrimSpace(line), "")
	ing := types.Ingredient{Name: text}

	rest := text
	if m := quantityPattern.FindString(strings.ToLower(rest)); m != "" {
		ing.Quantity = strings.TrimSpace(m)
		rest = strings.TrimSpace(rest[len(m):])
	}
	if rest != "" {
		fields := strings.Fields(rest)
		first := strings.ToLower(strings.TrimSuffix(fields[0], "."))
		for _, unit := range measurementUnits {
			if first == unit {
				ing.Unit = first
				rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[0]))
				break
			}
		}
	}
	if rest = strings.TrimSpace(strings.TrimPrefix(rest, "of ")); rest != "" {
		ing.Name = rest
	}
	return ing
}

func extractServings(text string) int {
	m := servingsLine.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g != "" {
			n, _ := strconv.Atoi(g)
			return n
		}
	}
	return 0
}

func firstIntMatch(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// textConfidence scores completeness of the recovered structure: presence of
// both lists, list sizes, recipe vocabulary, with a penalty for near-empty
// input.
func textConfidence(result *ParsedText, text string) float64 {
	score := 0.0
	if len(result.Ingredients) > 0 {
		score += 0.3
	}
	if len(result.Steps) > 0 {
		score += 0.3
	}
	if len(result.Ingredients) >= 3 {
		score += 0.2
	}
	if len(result.Steps) >= 2 {
		score += 0.2
	}

	lower := strings.ToLower(text)
	keywordBonus := 0.0
	for _, kw := range recipeKeywords {
		if strings.Contains(lower, kw) {
			keywordBonus += 0.05
		}
	}
	if keywordBonus > 0.15 {
		keywordBonus = 0.15
	}
	score += keywordBonus

	if len(strings.Fields(text)) < 10 {
		score *= 0.5
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// StripSocialArtifacts removes hashtags and mentions so they never leak into
// ingredient or step text.
func StripSocialArtifacts(text string) string {
	return strings.TrimSpace(hashtagOrMention.ReplaceAllString(text, ""))
}
