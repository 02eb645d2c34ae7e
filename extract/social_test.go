package extract

import (
	"context"
	"strings"
	"testing"

	"forkful/types"
)

func TestInstagramShortcode(t *testing.T) {
	cases := map[string]string{
		"https://www.instagram.com/p/Cxyz123/":               "Cxyz123",
		"https://instagram.com/reel/AbC_d-9/?igsh=xyz":       "AbC_d-9",
		"https://www.instagram.com/tv/Qwerty/":               "Qwerty",
		"https://www.instagram.com/somecook/reel/ShortC0de/": "ShortC0de",
		"https://www.instagram.com/stories/somecook/123456/": "123456",
		"https://www.instagram.com/somecook/":                "",
		"https://example.com/p/NotInstagram/":                "",
	}
	for url, want := range cases {
		if got := InstagramShortcode(url); got != want {
			t.Errorf("InstagramShortcode(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestIsSocialURL(t *testing.T) {
	social := []string{
		"https://www.instagram.com/reel/AbC123/",
		"https://www.tiktok.com/@somecook/video/7234567890123456789",
		"https://www.tiktok.com/t/ZTRabcde/",
	}
	for _, url := range social {
		if !IsSocialURL(url) {
			t.Errorf("IsSocialURL(%q) = false", url)
		}
	}
	plain := []string{
		"https://www.seriouseats.com/carbonara",
		"https://www.tiktok.com/about",
	}
	for _, url := range plain {
		if IsSocialURL(url) {
			t.Errorf("IsSocialURL(%q) = true", url)
		}
	}
}

const socialPage = `<html><head>
<meta property="og:description" content="Garlic Butter Noodles 🧄 #easyrecipe @somecook
Ingredients:
8 oz noodles
4 tbsp butter
6 cloves garlic
Instructions:
1. Cook the noodles.
2. Melt the butter with the garlic.
3. Toss and serve." />
<meta property="og:image" content="https://cdn.example.com/post.jpg" />
</head><body></body></html>`

func TestSocialPostExtractsCaption(t *testing.T) {
	e := NewSocialPostExtractor(&fakeFetcher{body: socialPage}, 0.75)

	result, err := e.Extract(context.Background(), Input{URL: "https://www.instagram.com/reel/AbC123/"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Ingredients) != 3 {
		t.Errorf("ingredients = %v", result.Ingredients)
	}
	if len(result.Steps) != 3 {
		t.Errorf("steps = %v", result.Steps)
	}
	if result.Confidence > 0.75 {
		t.Errorf("confidence = %f, want capped at 0.75", result.Confidence)
	}
	if title := result.Fields[types.FieldTitle].Value; strings.Contains(title, "#") {
		t.Errorf("title kept social artifacts: %q", title)
	}
	if img := result.Fields[types.FieldImageURL].Value; img != "https://cdn.example.com/post.jpg" {
		t.Errorf("image = %q", img)
	}
}

func TestSocialPostFallbackTitleFromUsername(t *testing.T) {
	page := `<html><head><meta property="og:description" content="2 cups flour
1 cup sugar
Mix well and bake." /></head><body></body></html>`
	e := NewSocialPostExtractor(&fakeFetcher{body: page}, 0.75)

	result, err := e.Extract(context.Background(), Input{URL: "https://www.tiktok.com/@somecook/video/7234567890123456789"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if title := result.Fields[types.FieldTitle].Value; title != "Recipe from @somecook" {
		t.Errorf("title = %q", title)
	}
}

func TestSocialPostWithoutCaptionFails(t *testing.T) {
	e := NewSocialPostExtractor(&fakeFetcher{body: "<html><head></head><body>Log in to see this post</body></html>"}, 0.75)

	_, err := e.Extract(context.Background(), Input{URL: "https://www.instagram.com/p/Cxyz123/"})
	if err == nil {
		t.Fatal("expected failure when the caption is not exposed")
	}
}
