package types

import (
	"fmt"
	"strings"
)

// FailureKind is the closed taxonomy of pipeline failure categories.
type FailureKind string

const (
	FailureSecurityRejected       FailureKind = "security_rejected"
	FailureSourceUnreachable      FailureKind = "source_unreachable"
	FailureUnsupportedSource      FailureKind = "unsupported_source"
	FailureExtractionTimeout      FailureKind = "extraction_timeout"
	FailurePipelineTimeout        FailureKind = "pipeline_timeout"
	FailureQuotaExceeded          FailureKind = "upstream_quota_exceeded"
	FailureMalformedResponse      FailureKind = "malformed_upstream_response"
	FailureInsufficientConfidence FailureKind = "insufficient_confidence"
)

// ExtractionFailure is the typed error every extractor returns instead of a
// raw lower-level fault. Detail is internal-only; callers surface UserMessage.
type ExtractionFailure struct {
	Extractor string
	Kind      FailureKind
	Detail    string
	Err       error
}

func (e *ExtractionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Extractor, e.Kind, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Extractor, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Extractor, e.Kind)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }

// PipelineFailure is the terminal failure of a whole run. Attempts holds the
// ordered audit trail of every chain member tried before giving up.
type PipelineFailure struct {
	Kind     FailureKind
	Detail   string
	Attempts []ExtractionAttempt
}

func (f *PipelineFailure) Error() string {
	kinds := make([]string, 0, len(f.Attempts))
	for _, a := range f.Attempts {
		if a.FailureKind != "" {
			kinds = append(kinds, string(a.FailureKind))
		}
	}
	if len(kinds) == 0 {
		return fmt.Sprintf("pipeline failed: %s", f.Kind)
	}
	return fmt.Sprintf("pipeline failed: %s (attempts: %s)", f.Kind, strings.Join(kinds, ", "))
}

// MergeFailure reports that no combination of extraction results cleared the
// minimum confidence for the mandatory fields.
type MergeFailure struct {
	Kind   FailureKind
	Detail string
}

func (f *MergeFailure) Error() string {
	return fmt.Sprintf("merge failed: %s: %s", f.Kind, f.Detail)
}

// UserMessage maps a failure kind to the coarse-grained text shown to end
// users. Internal detail stays in the audit sinks.
func UserMessage(kind FailureKind) string {
	switch kind {
	case FailureSecurityRejected:
		return "This file was rejected for security reasons."
	case FailureSourceUnreachable:
		return "We could not read this source. The site may be down or blocking access."
	case FailureUnsupportedSource:
		return "This kind of source is not supported."
	case FailureExtractionTimeout, FailurePipelineTimeout:
		return "Reading this source took too long. Please try again later."
	case FailureQuotaExceeded:
		return "The service is busy right now. Please try again in a few minutes."
	case FailureMalformedResponse:
		return "We could not make sense of this source."
	case FailureInsufficientConfidence:
		return "We could not find a complete recipe in this source."
	default:
		return "Something went wrong while reading this source."
	}
}
