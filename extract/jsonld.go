package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// structuredRecipe is the intermediate form of a schema.org/Recipe block
// before it is turned into an extraction result.
type structuredRecipe struct {
	Title        string
	Description  string
	Ingredients  []string
	Steps        []string
	PrepMinutes  int
	CookMinutes  int
	TotalMinutes int
	Servings     int
	ImageURL     string
}

var (
	isoHours   = regexp.MustCompile(`(\d+)H`)
	isoMinutes = regexp.MustCompile(`(\d+)M`)
	firstInt   = regexp.MustCompile(`(\d+)`)
)

// findStructuredRecipe scans every application/ld+json block in the document
// for a schema.org Recipe node, including nodes nested under @graph.
func findStructuredRecipe(doc *html.Node) *structuredRecipe {
	for _, raw := range collectJSONLDBlocks(doc) {
		var data interface{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			continue
		}
		if node := findRecipeNode(data); node != nil {
			return parseRecipeNode(node)
		}
	}
	return nil
}

func collectJSONLDBlocks(doc *html.Node) []string {
	var blocks []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key == "type" && strings.EqualFold(attr.Val, "application/ld+json") {
					if n.FirstChild != nil {
						blocks = append(blocks, n.FirstChild.Data)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return blocks
}

// findRecipeNode searches arbitrarily nested JSON-LD for the first object
// whose @type includes Recipe.
func findRecipeNode(data interface{}) map[string]interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		if hasType(v, "Recipe") {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			if node := findRecipeNode(graph); node != nil {
				return node
			}
		}
	case []interface{}:
		for _, item := range v {
			if node := findRecipeNode(item); node != nil {
				return node
			}
		}
	}
	return nil
}

func hasType(node map[string]interface{}, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func parseRecipeNode(node map[string]interface{}) *structuredRecipe {
	r := &structuredRecipe{
		Title:        stringValue(node["name"]),
		Description:  stringValue(node["description"]),
		Ingredients:  stringList(node["recipeIngredient"]),
		Steps:        parseInstructions(node["recipeInstructions"]),
		PrepMinutes:  parseISODuration(stringValue(node["prepTime"])),
		CookMinutes:  parseISODuration(stringValue(node["cookTime"])),
		TotalMinutes: parseISODuration(stringValue(node["totalTime"])),
		Servings:     parseYield(node["recipeYield"]),
		ImageURL:     parseImage(node["image"]),
	}
	return r
}

// parseInstructions flattens recipeInstructions, which may be plain strings,
// HowToStep objects, or HowToSection groups.
func parseInstructions(data interface{}) []string {
	var steps []string
	switch v := data.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			steps = append(steps, s)
		}
	case []interface{}:
		for _, item := range v {
			switch step := item.(type) {
			case string:
				if s := strings.TrimSpace(step); s != "" {
					steps = append(steps, s)
				}
			case map[string]interface{}:
				if hasType(step, "HowToSection") {
					steps = append(steps, parseInstructions(step["itemListElement"])...)
					continue
				}
				text := stringValue(step["text"])
				if text == "" {
					text = stringValue(step["name"])
				}
				if text != "" {
					steps = append(steps, text)
				}
			}
		}
	}
	return steps
}

func stringList(data interface{}) []string {
	switch v := data.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

func stringValue(data interface{}) string {
	if s, ok := data.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// parseISODuration converts an ISO 8601 duration (PT1H30M) to minutes,
// falling back to the first bare number for loose formats.
func parseISODuration(s string) int {
	if s == "" {
		return 0
	}
	if strings.HasPrefix(s, "PT") || strings.HasPrefix(s, "P") {
		minutes := 0
		if m := isoHours.FindStringSubmatch(s); m != nil {
			h, _ := strconv.Atoi(m[1])
			minutes += h * 60
		}
		if m := isoMinutes.FindStringSubmatch(s); m != nil {
			mins, _ := strconv.Atoi(m[1])
			minutes += mins
		}
		return minutes
	}
	if m := firstInt.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// parseYield accepts number, string, or list forms of recipeYield.
func parseYield(data interface{}) int {
	switch v := data.(type) {
	case float64:
		return int(v)
	case string:
		if m := firstInt.FindStringSubmatch(v); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n
		}
	case []interface{}:
		for _, item := range v {
			if n := parseYield(item); n > 0 {
				return n
			}
		}
	}
	return 0
}

func parseImage(data interface{}) string {
	switch v := data.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		return stringValue(v["url"])
	case []interface{}:
		for _, item := range v {
			if s := parseImage(item); s != "" {
				return s
			}
		}
	}
	return ""
}
