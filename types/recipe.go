package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SourceKind identifies where an ingestion request originated
type SourceKind string

const (
	SourceURL          SourceKind = "url"
	SourceSocialURL    SourceKind = "social_url"
	SourceUploadedFile SourceKind = "uploaded_file"
	SourceRawText      SourceKind = "raw_text"
)

// FileUpload carries the raw bytes of an uploaded file together with the
// caller-declared metadata. Nothing in here is trusted until the quarantine
// scanner has approved it.
type FileUpload struct {
	Filename     string `json:"filename"`
	DeclaredMIME string `json:"declared_mime"`
	Data         []byte `json:"-"`
}

// IngestionRequest is the single input to one pipeline run.
// It is immutable once handed to the orchestrator.
type IngestionRequest struct {
	Source      SourceKind    `json:"source_kind"`
	URL         string        `json:"url,omitempty"`
	Text        string        `json:"text,omitempty"`
	Files       []*FileUpload `json:"-"`
	RequestedAt time.Time     `json:"requested_at"`
}

// Ingredient is one ingredient line decomposed into its components.
// Quantity and Unit may be empty when the source line could not be split.
type Ingredient struct {
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Name     string `json:"name"`
}

// Canonical field names used for field-level merging and provenance.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldServings     = "servings"
	FieldPrepMinutes  = "prep_minutes"
	FieldCookMinutes  = "cook_minutes"
	FieldTotalMinutes = "total_minutes"
	FieldImageURL     = "image_url"
	FieldIngredients  = "ingredients"
	FieldSteps        = "steps"
)

// FieldValue is one extractor's answer for one scalar field.
type FieldValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Extractor  string  `json:"extractor"`
}

// RawExtractionResult is the partial output of a single extractor invocation.
// Fields holds scalar values; ingredient and step lists are kept whole so the
// merger can select one list per result instead of splicing lines.
type RawExtractionResult struct {
	ExtractorID string                `json:"extractor_id"`
	Confidence  float64               `json:"confidence"`
	Fields      map[string]FieldValue `json:"fields"`

	Ingredients          []Ingredient `json:"ingredients"`
	IngredientConfidence float64      `json:"ingredient_confidence"`
	Steps                []string     `json:"steps"`
	StepConfidence       float64      `json:"step_confidence"`

	// Unresolved lists fields the extractor looked for but could not produce
	// in the expected shape.
	Unresolved []string `json:"unresolved,omitempty"`

	// Text is the normalized source text this result was derived from.
	// The orchestrator feeds it to the next chain member on escalation.
	Text string `json:"-"`

	// Cached marks a result served from the extraction cache rather than a
	// fresh upstream call.
	Cached bool `json:"-"`
}

// Provenance records which extractor produced a field's winning value.
type Provenance struct {
	Extractor  string  `json:"extractor"`
	Confidence float64 `json:"confidence"`
}

// CanonicalRecipe is the single reconciled recipe record produced by the
// merger. Immutable once returned; ownership passes to the persistence layer.
type CanonicalRecipe struct {
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Ingredients  []Ingredient `json:"ingredients"`
	Steps        []string     `json:"steps"`
	Servings     int          `json:"servings,omitempty"`
	PrepMinutes  int          `json:"prep_minutes,omitempty"`
	CookMinutes  int          `json:"cook_minutes,omitempty"`
	TotalMinutes int          `json:"total_minutes,omitempty"`

	SourceType SourceKind `json:"source_type"`
	SourceURL  string     `json:"source_url,omitempty"`
	MediaRefs  []string   `json:"media_refs,omitempty"`

	Provenance map[string]Provenance `json:"provenance"`
}

// AttemptStatus is the terminal state of one extraction attempt.
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
	AttemptTimedOut  AttemptStatus = "timeout"
	AttemptCached    AttemptStatus = "cached"
)

// ExtractionAttempt is one audit entry per extractor invocation. The
// orchestrator appends one per chain member tried; the list is never mutated
// after the run completes.
type ExtractionAttempt struct {
	ExtractorID string        `json:"extractor_id"`
	InputRef    string        `json:"input_ref"`
	StartedAt   time.Time     `json:"started_at"`
	Status      AttemptStatus `json:"status"`
	Confidence  float64       `json:"confidence,omitempty"`
	Latency     time.Duration `json:"latency"`
	FailureKind FailureKind   `json:"failure_kind,omitempty"`
}

// GenerateID creates a stable short ID from arbitrary input bytes
func GenerateID(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}
