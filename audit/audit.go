package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"forkful/types"
)

// SecurityEvent is one append-only entry in the security event stream.
// Every quarantine decision emits exactly one, approved or not.
type SecurityEvent struct {
	EventType string    `json:"event_type"`
	RecordID  string    `json:"record_id"`
	Filename  string    `json:"filename"`
	Score     int       `json:"security_score"`
	State     string    `json:"state"`
	Reasons   []string  `json:"reasons,omitempty"`
	At        time.Time `json:"at"`
}

// AttemptEvent is one append-only entry in the extraction attempt stream.
type AttemptEvent struct {
	RunID   string                  `json:"run_id"`
	Attempt types.ExtractionAttempt `json:"attempt"`
	At      time.Time               `json:"at"`
}

// SecuritySink receives quarantine decisions. Implementations must not block
// the scanner for long; delivery failures are logged, never propagated into
// the scan verdict.
type SecuritySink interface {
	RecordSecurityEvent(ctx context.Context, ev SecurityEvent) error
}

// AttemptSink receives per-attempt extraction telemetry.
type AttemptSink interface {
	RecordAttempt(ctx context.Context, ev AttemptEvent) error
}

// LogSink writes audit events to the process log as JSON lines. It is the
// fallback sink when no Kafka brokers are configured.
type LogSink struct{}

func (LogSink) RecordSecurityEvent(_ context.Context, ev SecurityEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	log.Printf("security-event %s", b)
	return nil
}

func (LogSink) RecordAttempt(_ context.Context, ev AttemptEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	log.Printf("extraction-attempt %s", b)
	return nil
}
