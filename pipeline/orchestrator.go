package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"forkful/audit"
	"forkful/extract"
	"forkful/merge"
	"forkful/quarantine"
	"forkful/types"
)

// chains maps each source kind to its ordered extractor fallback chain.
// Escalation moves down the chain when an attempt fails or finishes below
// the confidence floor; the AI extractor is always the terminal member.
var chains = map[types.SourceKind][]string{
	types.SourceURL:          {extract.IDPageScrape, extract.IDAIText},
	types.SourceSocialURL:    {extract.IDSocialPost, extract.IDAIText},
	types.SourceUploadedFile: {extract.IDImageRecognition, extract.IDAIText},
	types.SourceRawText:      {extract.IDAIText},
}

// Policy holds the orchestrator's escalation and timeout knobs.
type Policy struct {
	// EscalateBelow is the confidence under which a successful attempt still
	// triggers the next chain member.
	EscalateBelow   float64
	AttemptTimeout  time.Duration
	PipelineTimeout time.Duration
}

// RunResult is the outcome of one complete ingestion run.
type RunResult struct {
	RunID      string                    `json:"run_id"`
	Source     types.SourceKind          `json:"source_kind"`
	Recipe     *types.CanonicalRecipe    `json:"recipe"`
	Attempts   []types.ExtractionAttempt `json:"attempts"`
	Quarantine []*types.QuarantineRecord `json:"quarantine,omitempty"`
}

// Orchestrator drives one ingestion request through quarantine, the
// extraction chain, and merging.
type Orchestrator struct {
	scanner    *quarantine.Scanner
	merger     *merge.Merger
	extractors map[string]extract.Extractor
	attempts   audit.AttemptSink
	policy     Policy
}

// NewOrchestrator wires the pipeline together. The scanner may be nil when
// file uploads are disabled.
func NewOrchestrator(scanner *quarantine.Scanner, merger *merge.Merger, extractors []extract.Extractor, attempts audit.AttemptSink, policy Policy) *Orchestrator {
	byID := make(map[string]extract.Extractor, len(extractors))
	for _, e := range extractors {
		byID[e.ID()] = e
	}
	return &Orchestrator{
		scanner:    scanner,
		merger:     merger,
		extractors: byID,
		attempts:   attempts,
		policy:     policy,
	}
}

// Classify resolves the source kind of a request, distinguishing social post
// URLs from regular web pages.
func Classify(req *types.IngestionRequest) (types.SourceKind, error) {
	switch {
	case len(req.Files) > 0:
		return types.SourceUploadedFile, nil
	case req.URL != "":
		parsed, err := url.Parse(req.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return "", &types.PipelineFailure{
				Kind:   types.FailureUnsupportedSource,
				Detail: "not a valid http(s) URL",
			}
		}
		if extract.IsSocialURL(req.URL) {
			return types.SourceSocialURL, nil
		}
		return types.SourceURL, nil
	case strings.TrimSpace(req.Text) != "":
		return types.SourceRawText, nil
	default:
		return "", &types.PipelineFailure{
			Kind:   types.FailureUnsupportedSource,
			Detail: "request carries no URL, text, or files",
		}
	}
}

// Ingest runs the full pipeline for one request. On failure the returned
// error is a *types.PipelineFailure carrying the attempt audit trail.
func (o *Orchestrator) Ingest(ctx context.Context, req *types.IngestionRequest) (*RunResult, error) {
	source, err := Classify(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.policy.PipelineTimeout)
	defer cancel()

	run := &RunResult{RunID: runID(req), Source: source}
	log.Printf("📥 Ingestion run %s started (source: %s)", run.RunID, source)

	input := extract.Input{URL: req.URL, Text: req.Text}
	var mediaRefs []string

	if source == types.SourceUploadedFile {
		records, approvedRef, err := o.gateUploads(ctx, req, run)
		if err != nil {
			return nil, err
		}
		run.Quarantine = records
		input.ImageRef = approvedRef
		for _, r := range records {
			if r.State == types.QuarantineApproved {
				mediaRefs = append(mediaRefs, r.WorkingRef)
			}
		}
	}

	results, err := o.runChain(ctx, run, chains[source], input)
	if err != nil {
		return nil, err
	}

	// The request is immutable once handed in; the merger sees a copy
	// carrying the classified source kind.
	classified := *req
	classified.Source = source
	recipe, err := o.merger.Merge(results, &classified, mediaRefs)
	if err != nil {
		var mf *types.MergeFailure
		kind := types.FailureInsufficientConfidence
		detail := err.Error()
		if errors.As(err, &mf) {
			kind = mf.Kind
			detail = mf.Detail
		}
		return nil, &types.PipelineFailure{Kind: kind, Detail: detail, Attempts: run.Attempts}
	}

	run.Recipe = recipe
	log.Printf("✅ Ingestion run %s produced %q after %d attempt(s)",
		run.RunID, recipe.Title, len(run.Attempts))
	return run, nil
}

// gateUploads scans every uploaded file and returns the first approved
// working ref. A request whose every file is rejected fails the run.
func (o *Orchestrator) gateUploads(ctx context.Context, req *types.IngestionRequest, run *RunResult) ([]*types.QuarantineRecord, string, error) {
	if o.scanner == nil {
		return nil, "", &types.PipelineFailure{
			Kind:   types.FailureUnsupportedSource,
			Detail: "file uploads are not enabled",
		}
	}

	records, err := o.scanner.ScanAll(ctx, req.Files)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", &types.PipelineFailure{Kind: types.FailurePipelineTimeout, Detail: "quarantine scan exceeded the pipeline deadline"}
		}
		return nil, "", fmt.Errorf("quarantine scan failed: %w", err)
	}

	approvedRef := ""
	for _, r := range records {
		if r.State == types.QuarantineApproved && approvedRef == "" {
			approvedRef = r.WorkingRef
		}
	}
	if approvedRef == "" {
		return nil, "", &types.PipelineFailure{
			Kind:   types.FailureSecurityRejected,
			Detail: "every uploaded file was rejected by the quarantine scanner",
		}
	}
	return records, approvedRef, nil
}

// runChain walks one fallback chain, collecting every usable result so the
// merger can weigh a low-confidence early result against a later one.
func (o *Orchestrator) runChain(ctx context.Context, run *RunResult, chain []string, input extract.Input) ([]*types.RawExtractionResult, error) {
	var (
		results  []*types.RawExtractionResult
		lastKind = types.FailureUnsupportedSource
	)

	for _, id := range chain {
		if ctx.Err() != nil {
			return nil, &types.PipelineFailure{
				Kind:     types.FailurePipelineTimeout,
				Detail:   "pipeline deadline exhausted before the chain completed",
				Attempts: run.Attempts,
			}
		}

		ext, ok := o.extractors[id]
		if !ok || !ext.CanHandle(input) {
			continue
		}

		result, attempt := o.attempt(ctx, ext, input)
		run.Attempts = append(run.Attempts, attempt)
		o.recordAttempt(ctx, run.RunID, attempt)

		if result == nil {
			if attempt.FailureKind != "" {
				lastKind = attempt.FailureKind
			}
			if lastKind == types.FailurePipelineTimeout {
				return nil, &types.PipelineFailure{Kind: lastKind, Attempts: run.Attempts}
			}
			continue
		}

		results = append(results, result)
		if result.Confidence >= o.policy.EscalateBelow {
			break
		}
		// Escalate, carrying forward the best text recovered so far so the
		// next member never starts blind.
		if result.Text != "" {
			input.Text = result.Text
		}
		log.Printf("Run %s: %s finished at %.2f confidence, escalating", run.RunID, id, result.Confidence)
	}

	if len(results) == 0 {
		return nil, &types.PipelineFailure{
			Kind:     lastKind,
			Detail:   "no extractor produced a usable result",
			Attempts: run.Attempts,
		}
	}
	return results, nil
}

// attempt runs one extractor under the per-attempt timeout and turns the
// outcome into an audit entry.
func (o *Orchestrator) attempt(ctx context.Context, ext extract.Extractor, input extract.Input) (*types.RawExtractionResult, types.ExtractionAttempt) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
	defer cancel()

	attempt := types.ExtractionAttempt{
		ExtractorID: ext.ID(),
		InputRef:    inputRef(input),
		StartedAt:   time.Now().UTC(),
	}

	result, err := ext.Extract(attemptCtx, input)
	attempt.Latency = time.Since(attempt.StartedAt)

	if err != nil {
		attempt.Status = types.AttemptFailed
		attempt.FailureKind = classifyFailure(err, attemptCtx, ctx)
		if attempt.FailureKind == types.FailureExtractionTimeout {
			attempt.Status = types.AttemptTimedOut
		}
		log.Printf("❌ Extractor %s failed: %v", ext.ID(), err)
		return nil, attempt
	}

	attempt.Status = types.AttemptSucceeded
	if result.Cached {
		attempt.Status = types.AttemptCached
	}
	attempt.Confidence = result.Confidence
	return result, attempt
}

// classifyFailure separates a single slow attempt from the whole run running
// out of time.
func classifyFailure(err error, attemptCtx, pipelineCtx context.Context) types.FailureKind {
	if pipelineCtx.Err() != nil {
		return types.FailurePipelineTimeout
	}
	if attemptCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return types.FailureExtractionTimeout
	}
	var ef *types.ExtractionFailure
	if errors.As(err, &ef) {
		return ef.Kind
	}
	return types.FailureSourceUnreachable
}

func (o *Orchestrator) recordAttempt(ctx context.Context, runID string, attempt types.ExtractionAttempt) {
	if o.attempts == nil {
		return
	}
	ev := audit.AttemptEvent{RunID: runID, Attempt: attempt, At: time.Now().UTC()}
	if err := o.attempts.RecordAttempt(ctx, ev); err != nil {
		log.Printf("Warning: failed to record attempt event: %v", err)
	}
}

func inputRef(in extract.Input) string {
	switch {
	case in.URL != "":
		return in.URL
	case in.ImageRef != "":
		return in.ImageRef
	default:
		return "text:" + types.GenerateID(in.Text)
	}
}

func runID(req *types.IngestionRequest) string {
	seed := req.URL + req.Text + time.Now().Format(time.RFC3339Nano)
	return types.GenerateID(seed)
}
