package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"forkful/types"
)

var instagramShortcodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`instagram\.com/p/([^/?]+)`),
	regexp.MustCompile(`instagram\.com/reel/([^/?]+)`),
	regexp.MustCompile(`instagram\.com/tv/([^/?]+)`),
	regexp.MustCompile(`instagram\.com/[^/]+/(?:p|reel|tv)/([^/?]+)`),
	regexp.MustCompile(`instagram\.com/stories/[^/]+/([^/?]+)`),
}

var (
	tiktokPattern       = regexp.MustCompile(`tiktok\.com/(?:@[^/]+/video/\d+|t/\w+)`)
	socialUsernameMatch = regexp.MustCompile(`(?:instagram|tiktok)\.com/@?([A-Za-z0-9._]+)`)
)

// IsSocialURL reports whether a URL points at a supported social post.
func IsSocialURL(url string) bool {
	return InstagramShortcode(url) != "" || tiktokPattern.MatchString(url)
}

// InstagramShortcode pulls the post shortcode out of any supported Instagram
// URL shape, or returns "".
func InstagramShortcode(url string) string {
	for _, p := range instagramShortcodePatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// SocialPostExtractor recovers a recipe from a social media post caption.
// Captions are informal, so the result confidence is capped: caption-derived
// structure never outranks a structured web source of equal completeness.
type SocialPostExtractor struct {
	fetcher       Fetcher
	confidenceCap float64
}

func NewSocialPostExtractor(fetcher Fetcher, confidenceCap float64) *SocialPostExtractor {
	return &SocialPostExtractor{fetcher: fetcher, confidenceCap: confidenceCap}
}

func (e *SocialPostExtractor) ID() string { return IDSocialPost }

func (e *SocialPostExtractor) CanHandle(in Input) bool { return IsSocialURL(in.URL) }

func (e *SocialPostExtractor) Extract(ctx context.Context, in Input) (*types.RawExtractionResult, error) {
	if !IsSocialURL(in.URL) {
		return nil, failure(e.ID(), types.FailureUnsupportedSource, "not a recognized social post URL", nil)
	}

	body, err := e.fetcher.FetchHTML(ctx, in.URL)
	if err != nil {
		var ef *types.ExtractionFailure
		if errors.As(err, &ef) {
			ef.Extractor = e.ID()
			return nil, ef
		}
		return nil, failure(e.ID(), types.FailureSourceUnreachable, "", err)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, failure(e.ID(), types.FailureMalformedResponse, "unparseable post page", err)
	}

	caption := postCaption(doc)
	if caption == "" {
		return nil, failure(e.ID(), types.FailureSourceUnreachable,
			"post caption not accessible without login", nil)
	}

	cleaned := StripSocialArtifacts(caption)
	parsed := ParseRecipeText(cleaned)
	parts := partsFromParsedText(parsed)
	parts.Text = cleaned
	if parts.Title == "" {
		if user := socialUsername(in.URL); user != "" {
			parts.Title = fmt.Sprintf("Recipe from @%s", user)
		}
	}
	if parts.ImageURL == "" {
		parts.ImageURL = metaContent(doc, "og:image")
	}

	confidence := parsed.Confidence
	if confidence > e.confidenceCap {
		confidence = e.confidenceCap
	}
	return buildResult(e.ID(), confidence, parts), nil
}

// postCaption reads the caption that social platforms mirror into OpenGraph
// metadata for public posts.
func postCaption(doc *html.Node) string {
	for _, property := range []string{"og:description", "description", "og:title"} {
		if c := metaContent(doc, property); c != "" {
			return c
		}
	}
	return ""
}

func socialUsername(url string) string {
	if m := socialUsernameMatch.FindStringSubmatch(url); m != nil {
		switch strings.ToLower(m[1]) {
		case "p", "reel", "tv", "stories", "t":
			return ""
		}
		return m[1]
	}
	return ""
}
