package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"forkful/audit"
	"forkful/extract"
	"forkful/merge"
	"forkful/quarantine"
	"forkful/types"
)

type fakeExtractor struct {
	id      string
	handles func(extract.Input) bool

	mu     sync.Mutex
	calls  int
	inputs []extract.Input

	result *types.RawExtractionResult
	err    error
	// waitForCtx makes the extractor block until its context expires.
	waitForCtx bool
}

func (f *fakeExtractor) ID() string { return f.id }

func (f *fakeExtractor) CanHandle(in extract.Input) bool {
	if f.handles != nil {
		return f.handles(in)
	}
	return true
}

func (f *fakeExtractor) Extract(ctx context.Context, in extract.Input) (*types.RawExtractionResult, error) {
	f.mu.Lock()
	f.calls++
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()

	if f.waitForCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAttemptSink struct {
	mu     sync.Mutex
	events []audit.AttemptEvent
}

func (f *fakeAttemptSink) RecordAttempt(_ context.Context, ev audit.AttemptEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func goodResult(id string, conf float64) *types.RawExtractionResult {
	return &types.RawExtractionResult{
		ExtractorID: id,
		Confidence:  conf,
		Fields: map[string]types.FieldValue{
			types.FieldTitle: {Value: "Pasta", Confidence: conf, Extractor: id},
		},
		Ingredients:          []types.Ingredient{{Name: "pasta"}},
		IngredientConfidence: conf,
		Steps:                []string{"boil water"},
		StepConfidence:       conf,
		Text:                 "recovered recipe text",
	}
}

func testPolicy() Policy {
	return Policy{
		EscalateBelow:   0.6,
		AttemptTimeout:  time.Second,
		PipelineTimeout: 5 * time.Second,
	}
}

func newTestOrchestrator(sink audit.AttemptSink, policy Policy, extractors ...extract.Extractor) *Orchestrator {
	return NewOrchestrator(nil, merge.NewMerger(0.35), extractors, sink, policy)
}

func TestIngestURLSucceedsWithoutEscalation(t *testing.T) {
	scrape := &fakeExtractor{id: extract.IDPageScrape, result: goodResult(extract.IDPageScrape, 0.9)}
	ai := &fakeExtractor{id: extract.IDAIText, result: goodResult(extract.IDAIText, 0.9)}
	o := newTestOrchestrator(&fakeAttemptSink{}, testPolicy(), scrape, ai)

	run, err := o.Ingest(context.Background(), &types.IngestionRequest{URL: "https://example.com/lasagna"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if run.Recipe == nil || run.Recipe.Title != "Pasta" {
		t.Fatalf("unexpected recipe: %+v", run.Recipe)
	}
	if ai.calls != 0 {
		t.Error("high-confidence first attempt must not escalate")
	}
	if len(run.Attempts) != 1 || run.Attempts[0].Status != types.AttemptSucceeded {
		t.Errorf("attempts = %+v", run.Attempts)
	}
}

func TestIngestEscalatesOnLowConfidence(t *testing.T) {
	scrape := &fakeExtractor{id: extract.IDPageScrape, result: goodResult(extract.IDPageScrape, 0.4)}
	ai := &fakeExtractor{id: extract.IDAIText, result: goodResult(extract.IDAIText, 0.9)}
	o := newTestOrchestrator(&fakeAttemptSink{}, testPolicy(), scrape, ai)

	run, err := o.Ingest(context.Background(), &types.IngestionRequest{URL: "https://example.com/r"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if ai.calls != 1 {
		t.Fatal("low confidence must escalate to the next chain member")
	}
	// The escalated attempt receives the text the first member recovered.
	if got := ai.inputs[0].Text; got != "recovered recipe text" {
		t.Errorf("escalation input text = %q", got)
	}
	if len(run.Attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(run.Attempts))
	}
}

func TestIngestEscalatesOnFailure(t *testing.T) {
	scrape := &fakeExtractor{
		id:  extract.IDPageScrape,
		err: &types.ExtractionFailure{Extractor: extract.IDPageScrape, Kind: types.FailureSourceUnreachable},
	}
	ai := &fakeExtractor{id: extract.IDAIText, result: goodResult(extract.IDAIText, 0.9)}
	o := newTestOrchestrator(&fakeAttemptSink{}, testPolicy(), scrape, ai)

	run, err := o.Ingest(context.Background(), &types.IngestionRequest{URL: "https://example.com/r", Text: "seed text"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if run.Recipe == nil {
		t.Fatal("expected recipe from the fallback extractor")
	}
	if run.Attempts[0].Status != types.AttemptFailed ||
		run.Attempts[0].FailureKind != types.FailureSourceUnreachable {
		t.Errorf("first attempt = %+v", run.Attempts[0])
	}
}

func TestIngestReportsLastFailureKindWhenChainExhausted(t *testing.T) {
	scrape := &fakeExtractor{
		id:  extract.IDPageScrape,
		err: &types.ExtractionFailure{Kind: types.FailureSourceUnreachable},
	}
	ai := &fakeExtractor{
		id:  extract.IDAIText,
		err: &types.ExtractionFailure{Kind: types.FailureQuotaExceeded},
	}
	o := newTestOrchestrator(&fakeAttemptSink{}, testPolicy(), scrape, ai)

	_, err := o.Ingest(context.Background(), &types.IngestionRequest{URL: "https://example.com/r", Text: "seed"})
	var pf *types.PipelineFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PipelineFailure, got %v", err)
	}
	if pf.Kind != types.FailureQuotaExceeded {
		t.Errorf("failure kind = %s, want the last attempt's kind", pf.Kind)
	}
	if len(pf.Attempts) != 2 {
		t.Errorf("failure must carry the full attempt trail, got %d", len(pf.Attempts))
	}
}

func TestIngestAttemptTimeoutEscalates(t *testing.T) {
	policy := testPolicy()
	policy.AttemptTimeout = 20 * time.Millisecond

	slow := &fakeExtractor{id: extract.IDPageScrape, waitForCtx: true}
	ai := &fakeExtractor{id: extract.IDAIText, result: goodResult(extract.IDAIText, 0.9)}
	o := newTestOrchestrator(&fakeAttemptSink{}, policy, slow, ai)

	run, err := o.Ingest(context.Background(), &types.IngestionRequest{URL: "https://example.com/r", Text: "seed"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if run.Attempts[0].Status != types.AttemptTimedOut {
		t.Errorf("slow attempt status = %s, want timeout", run.Attempts[0].Status)
	}
	if run.Attempts[0].FailureKind != types.FailureExtractionTimeout {
		t.Errorf("slow attempt kind = %s", run.Attempts[0].FailureKind)
	}
	if run.Recipe == nil {
		t.Error("expected the chain to continue after a single slow attempt")
	}
}

func TestIngestPipelineTimeoutIsTerminal(t *testing.T) {
	policy := testPolicy()
	policy.PipelineTimeout = 20 * time.Millisecond

	slow := &fakeExtractor{id: extract.IDPageScrape, waitForCtx: true}
	ai := &fakeExtractor{id: extract.IDAIText, result: goodResult(extract.IDAIText, 0.9)}
	o := newTestOrchestrator(&fakeAttemptSink{}, policy, slow, ai)

	_, err := o.Ingest(context.Background(), &types.IngestionRequest{URL: "https://example.com/r", Text: "seed"})
	var pf *types.PipelineFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PipelineFailure, got %v", err)
	}
	if pf.Kind != types.FailurePipelineTimeout {
		t.Errorf("failure kind = %s, want pipeline_timeout", pf.Kind)
	}
	if ai.calls != 0 {
		t.Error("no further attempts may start after the pipeline deadline")
	}
}

func TestIngestCachedResultMarksAttempt(t *testing.T) {
	cached := goodResult(extract.IDAIText, 0.9)
	cached.Cached = true
	ai := &fakeExtractor{id: extract.IDAIText, result: cached}
	o := newTestOrchestrator(&fakeAttemptSink{}, testPolicy(), ai)

	run, err := o.Ingest(context.Background(), &types.IngestionRequest{Text: "2 cups flour\nmix and bake"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if run.Attempts[0].Status != types.AttemptCached {
		t.Errorf("attempt status = %s, want cached", run.Attempts[0].Status)
	}
}

func TestIngestRecordsAttemptEvents(t *testing.T) {
	sink := &fakeAttemptSink{}
	scrape := &fakeExtractor{id: extract.IDPageScrape, result: goodResult(extract.IDPageScrape, 0.9)}
	o := newTestOrchestrator(sink, testPolicy(), scrape)

	run, err := o.Ingest(context.Background(), &types.IngestionRequest{URL: "https://example.com/r"})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 attempt event, got %d", len(sink.events))
	}
	if sink.events[0].RunID != run.RunID {
		t.Errorf("event run ID = %s, want %s", sink.events[0].RunID, run.RunID)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		req  types.IngestionRequest
		want types.SourceKind
		err  bool
	}{
		{"web url", types.IngestionRequest{URL: "https://example.com/recipe"}, types.SourceURL, false},
		{"instagram", types.IngestionRequest{URL: "https://www.instagram.com/p/Cabc123/"}, types.SourceSocialURL, false},
		{"instagram reel", types.IngestionRequest{URL: "https://instagram.com/reel/Xyz789/"}, types.SourceSocialURL, false},
		{"raw text", types.IngestionRequest{Text: "2 cups flour"}, types.SourceRawText, false},
		{"file", types.IngestionRequest{Files: []*types.FileUpload{{Filename: "a.jpg"}}}, types.SourceUploadedFile, false},
		{"bad scheme", types.IngestionRequest{URL: "ftp://example.com/x"}, "", true},
		{"empty", types.IngestionRequest{}, "", true},
	}
	for _, c := range cases {
		got, err := Classify(&c.req)
		if c.err {
			if err == nil {
				t.Errorf("%s: expected error", c.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: classified as %s, want %s", c.name, got, c.want)
		}
	}
}

func TestIngestRejectsAllBadUploads(t *testing.T) {
	store := &memStore{}
	scanner := quarantine.NewScanner(store, noopSecuritySink{}, quarantine.ScannerConfig{
		MaxUploadBytes: 1 << 20,
		ScoreThreshold: 50,
	})
	ai := &fakeExtractor{id: extract.IDAIText, result: goodResult(extract.IDAIText, 0.9)}
	o := NewOrchestrator(scanner, merge.NewMerger(0.35), []extract.Extractor{ai}, &fakeAttemptSink{}, testPolicy())

	exe := append([]byte{0x4d, 0x5a}, make([]byte, 64)...)
	_, err := o.Ingest(context.Background(), &types.IngestionRequest{
		Files: []*types.FileUpload{{Filename: "photo.jpg", DeclaredMIME: "image/jpeg", Data: exe}},
	})

	var pf *types.PipelineFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PipelineFailure, got %v", err)
	}
	if pf.Kind != types.FailureSecurityRejected {
		t.Errorf("failure kind = %s, want security_rejected", pf.Kind)
	}
	if ai.calls != 0 {
		t.Error("no extractor may run on a rejected upload")
	}
}

func TestIngestApprovedUploadReachesExtractor(t *testing.T) {
	store := &memStore{}
	scanner := quarantine.NewScanner(store, noopSecuritySink{}, quarantine.ScannerConfig{
		MaxUploadBytes: 1 << 20,
		ScoreThreshold: 50,
	})
	ocr := &fakeExtractor{
		id:      extract.IDImageRecognition,
		handles: func(in extract.Input) bool { return in.ImageRef != "" },
		result:  goodResult(extract.IDImageRecognition, 0.9),
	}
	o := NewOrchestrator(scanner, merge.NewMerger(0.35), []extract.Extractor{ocr}, &fakeAttemptSink{}, testPolicy())

	jpeg := append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 256)...)
	run, err := o.Ingest(context.Background(), &types.IngestionRequest{
		Files: []*types.FileUpload{{Filename: "dinner.jpg", DeclaredMIME: "image/jpeg", Data: jpeg}},
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if ocr.calls != 1 || ocr.inputs[0].ImageRef == "" {
		t.Errorf("extractor did not receive the promoted media ref: %+v", ocr.inputs)
	}
	if len(run.Recipe.MediaRefs) != 1 {
		t.Errorf("recipe media refs = %v", run.Recipe.MediaRefs)
	}
	if len(run.Quarantine) != 1 || run.Quarantine[0].State != types.QuarantineApproved {
		t.Errorf("quarantine records = %+v", run.Quarantine)
	}
}

// stuckOCR models a recognition engine that cannot be interrupted.
type stuckOCR struct{ release chan struct{} }

func (s *stuckOCR) Recognize(context.Context, string) (string, float64, error) {
	<-s.release
	return "", 0, nil
}

func TestIngestStuckRecognitionIsTimeboxed(t *testing.T) {
	stuck := &stuckOCR{release: make(chan struct{})}
	defer close(stuck.release)

	store := &memStore{}
	scanner := quarantine.NewScanner(store, noopSecuritySink{}, quarantine.ScannerConfig{
		MaxUploadBytes: 1 << 20,
		ScoreThreshold: 50,
	})
	ocr := extract.NewImageExtractor(stuck)
	ai := &fakeExtractor{id: extract.IDAIText, result: goodResult(extract.IDAIText, 0.9)}
	o := NewOrchestrator(scanner, merge.NewMerger(0.35), []extract.Extractor{ocr, ai}, &fakeAttemptSink{}, Policy{
		EscalateBelow:   0.6,
		AttemptTimeout:  20 * time.Millisecond,
		PipelineTimeout: time.Second,
	})

	jpeg := append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 256)...)
	start := time.Now()
	run, err := o.Ingest(context.Background(), &types.IngestionRequest{
		Files: []*types.FileUpload{{Filename: "dinner.jpg", DeclaredMIME: "image/jpeg", Data: jpeg}},
	})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("run blocked %s on an uninterruptible recognition", elapsed)
	}
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if run.Attempts[0].Status != types.AttemptTimedOut {
		t.Errorf("OCR attempt status = %s, want timeout", run.Attempts[0].Status)
	}
	if run.Attempts[0].FailureKind != types.FailureExtractionTimeout {
		t.Errorf("OCR attempt failure kind = %s", run.Attempts[0].FailureKind)
	}
	if run.Recipe == nil || ai.calls != 1 {
		t.Error("chain must continue to the AI extractor after the OCR timeout")
	}
}

func TestIngestLeavesRequestUnmodified(t *testing.T) {
	scrape := &fakeExtractor{id: extract.IDPageScrape, result: goodResult(extract.IDPageScrape, 0.9)}
	o := newTestOrchestrator(&fakeAttemptSink{}, testPolicy(), scrape)

	req := &types.IngestionRequest{URL: "https://example.com/soup"}
	run, err := o.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if req.Source != "" {
		t.Errorf("request mutated by the orchestrator: source = %q", req.Source)
	}
	if run.Source != types.SourceURL {
		t.Errorf("run source = %q, want url", run.Source)
	}
	if run.Recipe.SourceType != types.SourceURL {
		t.Errorf("recipe source type = %q, want the classified kind", run.Recipe.SourceType)
	}
}

// memStore is an in-memory quarantine.Store for orchestrator tests.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memStore) WriteQuarantine(_ context.Context, id, filename string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[id] = data
	return "quarantine/" + id, nil
}

func (m *memStore) Promote(_ context.Context, id, filename string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := "media/" + id + "_" + filename
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[ref] = m.files[id]
	delete(m.files, id)
	return ref, nil
}

func (m *memStore) ReadWorking(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[ref]
	if !ok {
		return nil, errors.New("no working file " + ref)
	}
	return data, nil
}

func (m *memStore) Discard(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

type noopSecuritySink struct{}

func (noopSecuritySink) RecordSecurityEvent(context.Context, audit.SecurityEvent) error { return nil }
