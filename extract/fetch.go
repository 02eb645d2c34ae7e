package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"forkful/types"
)

// Phrases that indicate a bot wall or consent page instead of content.
var blockedIndicators = []string{
	"access denied", "forbidden", "blocked", "sign in", "login",
	"subscribe", "membership required", "unauthorized access",
	"please enable javascript", "verify you are human",
	"captcha", "are you a robot", "cloudflare", "ddos protection",
	"rate limit", "too many requests", "temporarily unavailable",
	"security check", "suspicious activity", "bot detected",
	"checking your browser", "error 1020", "error 1015",
}

const maxFetchBytes = 4 << 20

// Fetcher retrieves the rendered HTML of a page.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// WebFetcher fetches pages with a plain HTTP GET first and escalates to an
// external render service when the response looks like a bot wall. Both paths
// run under one concurrency cap so a burst of ingestions cannot starve the
// render service.
type WebFetcher struct {
	client    *http.Client
	renderURL string
	sem       *semaphore.Weighted
}

// NewWebFetcher creates a fetcher. renderURL may be empty, in which case
// blocked pages fail as unreachable.
func NewWebFetcher(renderURL string, maxConcurrent int64, timeout time.Duration) *WebFetcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &WebFetcher{
		client:    &http.Client{Timeout: timeout},
		renderURL: renderURL,
		sem:       semaphore.NewWeighted(maxConcurrent),
	}
}

func (f *WebFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return "", &types.ExtractionFailure{Kind: types.FailureExtractionTimeout, Detail: "fetch slot wait", Err: err}
	}
	defer f.sem.Release(1)

	body, err := f.direct(ctx, url)
	if err == nil && !looksBlocked(body) {
		return body, nil
	}

	if f.renderURL == "" {
		if err != nil {
			return "", err
		}
		return "", &types.ExtractionFailure{
			Kind:   types.FailureSourceUnreachable,
			Detail: "page blocked automated access and no render service is configured",
		}
	}

	log.Printf("📥 Direct fetch blocked for %s, escalating to render service", url)
	body, rerr := f.render(ctx, url)
	if rerr != nil {
		return "", rerr
	}
	if looksBlocked(body) {
		return "", &types.ExtractionFailure{
			Kind:   types.FailureSourceUnreachable,
			Detail: "page blocked automated access even through the render service",
		}
	}
	return body, nil
}

func (f *WebFetcher) direct(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &types.ExtractionFailure{Kind: types.FailureUnsupportedSource, Detail: "invalid URL", Err: err}
	}
	// Browser-like headers cut down on trivial bot rejections.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyFetchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &types.ExtractionFailure{Kind: types.FailureQuotaExceeded, Detail: "source rate limited the fetch"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &types.ExtractionFailure{
			Kind:   types.FailureSourceUnreachable,
			Detail: fmt.Sprintf("fetch returned status %d", resp.StatusCode),
		}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", classifyFetchError(err)
	}
	return string(b), nil
}

// render asks the headless browser service to load the page and return its
// rendered DOM.
func (f *WebFetcher) render(ctx context.Context, url string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"url": url})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.renderURL, bytes.NewReader(payload))
	if err != nil {
		return "", &types.ExtractionFailure{Kind: types.FailureSourceUnreachable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyFetchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &types.ExtractionFailure{
			Kind:   types.FailureSourceUnreachable,
			Detail: fmt.Sprintf("render service returned status %d", resp.StatusCode),
		}
	}

	var out struct {
		HTML string `json:"html"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFetchBytes)).Decode(&out); err != nil {
		return "", &types.ExtractionFailure{Kind: types.FailureMalformedResponse, Detail: "render service reply", Err: err}
	}
	return out.HTML, nil
}

func classifyFetchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &types.ExtractionFailure{Kind: types.FailureExtractionTimeout, Err: err}
	}
	return &types.ExtractionFailure{Kind: types.FailureSourceUnreachable, Err: err}
}

// looksBlocked reports whether a short page reads like a bot wall rather
// than content.
func looksBlocked(body string) bool {
	if len(body) > 20000 {
		return false
	}
	lower := strings.ToLower(body)
	for _, indicator := range blockedIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
