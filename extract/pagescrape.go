package extract

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"forkful/types"
)

// PageScrapeExtractor recovers recipe structure from regular web pages.
// It tries JSON-LD structured data first, then targeted DOM heuristics, and
// finally readability-extracted main text through the heuristic text parser.
type PageScrapeExtractor struct {
	fetcher Fetcher
}

func NewPageScrapeExtractor(fetcher Fetcher) *PageScrapeExtractor {
	return &PageScrapeExtractor{fetcher: fetcher}
}

func (e *PageScrapeExtractor) ID() string { return IDPageScrape }

func (e *PageScrapeExtractor) CanHandle(in Input) bool { return in.URL != "" }

func (e *PageScrapeExtractor) Extract(ctx context.Context, in Input) (*types.RawExtractionResult, error) {
	body, err := e.fetcher.FetchHTML(ctx, in.URL)
	if err != nil {
		return nil, e.stamp(err)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, failure(e.ID(), types.FailureMalformedResponse, "unparseable HTML", err)
	}

	// Main-text extraction runs regardless of the structured path: it is both
	// the last fallback here and the text handed to the next chain member.
	mainText := extractMainText(body, in.URL)

	if rec := findStructuredRecipe(doc); rec != nil && (len(rec.Ingredients) > 0 || len(rec.Steps) > 0) {
		parts := partsFromStructured(rec)
		parts.Text = mainText
		log.Printf("✅ Structured recipe data found at %s", in.URL)
		return buildResult(e.ID(), completenessConfidence(parts), parts), nil
	}

	if parts := scrapeDOM(doc); len(parts.Ingredients) > 0 || len(parts.Steps) > 0 {
		parts.Text = mainText
		return buildResult(e.ID(), completenessConfidence(parts), parts), nil
	}

	if mainText == "" {
		return nil, failure(e.ID(), types.FailureSourceUnreachable, "page contained no readable content", nil)
	}

	parsed := ParseRecipeText(mainText)
	parts := partsFromParsedText(parsed)
	parts.Text = mainText
	return buildResult(e.ID(), parsed.Confidence, parts), nil
}

// stamp attaches this extractor's identity to fetcher failures.
func (e *PageScrapeExtractor) stamp(err error) error {
	var ef *types.ExtractionFailure
	if errors.As(err, &ef) {
		ef.Extractor = e.ID()
		return ef
	}
	return failure(e.ID(), types.FailureSourceUnreachable, "", err)
}

func partsFromStructured(rec *structuredRecipe) recipeParts {
	parts := recipeParts{
		Title:        rec.Title,
		Description:  rec.Description,
		ImageURL:     rec.ImageURL,
		Servings:     rec.Servings,
		PrepMinutes:  rec.PrepMinutes,
		CookMinutes:  rec.CookMinutes,
		TotalMinutes: rec.TotalMinutes,
		Steps:        rec.Steps,
	}
	for _, line := range rec.Ingredients {
		parts.Ingredients = append(parts.Ingredients, DecomposeIngredient(line))
	}
	return parts
}

func extractMainText(body, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(body), parsedURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// scrapeDOM applies common recipe-site markup conventions when no structured
// data exists: a jump-to-recipe anchor narrows the search to the recipe card,
// then itemprop and class heuristics pull the lists.
func scrapeDOM(doc *html.Node) recipeParts {
	root := doc
	if section := findJumpTarget(doc); section != nil {
		root = section
	}

	parts := recipeParts{
		Title:       firstText(root, isHeading),
		Description: metaContent(doc, "og:description"),
	}
	if parts.Title == "" {
		parts.Title = firstText(doc, func(n *html.Node) bool { return n.Data == "title" })
	}

	for _, n := range findAll(root, hasItemprop("recipeIngredient")) {
		if t := nodeText(n); t != "" {
			parts.Ingredients = append(parts.Ingredients, DecomposeIngredient(t))
		}
	}
	if len(parts.Ingredients) == 0 {
		for _, n := range findAll(root, isListItemWithClass("ingredient")) {
			if t := nodeText(n); t != "" {
				parts.Ingredients = append(parts.Ingredients, DecomposeIngredient(t))
			}
		}
	}

	for _, n := range findAll(root, hasItemprop("recipeInstructions")) {
		if t := nodeText(n); t != "" {
			parts.Steps = append(parts.Steps, t)
		}
	}
	if len(parts.Steps) == 0 {
		for _, class := range []string{"instruction", "direction", "step"} {
			for _, n := range findAll(root, isListItemWithClass(class)) {
				if t := nodeText(n); t != "" {
					parts.Steps = append(parts.Steps, t)
				}
			}
			if len(parts.Steps) > 0 {
				break
			}
		}
	}
	return parts
}

var jumpLinkPhrases = []string{
	"jump to recipe", "skip to recipe", "go to recipe", "recipe card",
	"jump to card", "recipe below", "scroll to recipe", "view recipe",
	"get recipe",
}

// findJumpTarget follows an in-page "jump to recipe" anchor to the recipe
// card element.
func findJumpTarget(doc *html.Node) *html.Node {
	for _, link := range findAll(doc, func(n *html.Node) bool { return n.Data == "a" && attr(n, "href") != "" }) {
		text := strings.ToLower(strings.TrimSpace(nodeText(link)))
		for _, phrase := range jumpLinkPhrases {
			if strings.Contains(text, phrase) {
				href := attr(link, "href")
				if strings.HasPrefix(href, "#") {
					if target := findByID(doc, href[1:]); target != nil {
						return target
					}
				}
			}
		}
	}
	return nil
}

func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func findByID(root *html.Node, id string) *html.Node {
	matches := findAll(root, func(n *html.Node) bool { return attr(n, "id") == id })
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

func firstText(root *html.Node, pred func(*html.Node) bool) string {
	for _, n := range findAll(root, pred) {
		if t := nodeText(n); t != "" {
			return t
		}
	}
	return ""
}

func metaContent(doc *html.Node, property string) string {
	for _, n := range findAll(doc, func(n *html.Node) bool {
		return n.Data == "meta" && (attr(n, "property") == property || attr(n, "name") == property)
	}) {
		if c := attr(n, "content"); c != "" {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

func isHeading(n *html.Node) bool {
	return n.Data == "h1" || n.Data == "h2"
}

func hasItemprop(value string) func(*html.Node) bool {
	return func(n *html.Node) bool { return attr(n, "itemprop") == value }
}

func isListItemWithClass(fragment string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Data == "li" && strings.Contains(strings.ToLower(attr(n, "class")), fragment)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
