package tui

import (
	"fmt"
	"time"
)

// State represents the application state machine
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
	StateError      State = "error"
)

// Source is the single input this demo run will ingest. Exactly one of the
// fields is set.
type Source struct {
	URL   string
	Text  string
	Files []string
}

// Describe renders the source for the header line
func (s Source) Describe() string {
	switch {
	case s.URL != "":
		return s.URL
	case len(s.Files) > 0:
		return fmt.Sprintf("%d uploaded file(s)", len(s.Files))
	default:
		return fmt.Sprintf("pasted text (%d chars)", len(s.Text))
	}
}

// Model represents the TUI client state (thin client over the ingestion API)
type Model struct {
	Client *IngestClient
	Source Source

	State     State
	Result    *IngestResponse
	Failure   *IngestFailure
	Err       error
	Started   time.Time
	Elapsed   time.Duration
	Connected bool
}

// NewModel creates a new TUI model
func NewModel(serverURL string, source Source) Model {
	return Model{
		Client: NewIngestClient(serverURL),
		Source: source,
		State:  StateIdle,
	}
}

// getStateText returns the appropriate state message
func (m Model) getStateText() string {
	switch m.State {
	case StateIdle:
		if !m.Connected {
			return ErrorStyle.Render("❌ Server not reachable") + "\n\n" +
				InfoStyle.Render("Start the server, then press 'r' to retry")
		}
		return HighlightStyle.Render("👋 Ready!") + "\n\n" +
			InfoStyle.Render("Press 'i' to ingest: "+m.Source.Describe())
	case StateSubmitting:
		return StatusStyle.Render("⏳ Running the extraction pipeline...")
	case StateComplete:
		return HighlightStyle.Render(fmt.Sprintf("✅ COMPLETE in %.1fs", m.Elapsed.Seconds()))
	case StateFailed:
		return ErrorStyle.Render(fmt.Sprintf("❌ Rejected (%s): %s", m.Failure.Kind, m.Failure.Message))
	case StateError:
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", m.Err))
	default:
		return ""
	}
}
