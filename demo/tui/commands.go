package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// checkHealth creates a command that probes the server health endpoint
func checkHealth(client *IngestClient) tea.Cmd {
	return func() tea.Msg {
		return HealthCheckMsg{Err: client.Health()}
	}
}

// submitIngestion creates a command that runs one ingestion end to end
func submitIngestion(client *IngestClient, source Source) tea.Cmd {
	return func() tea.Msg {
		var (
			result *IngestResponse
			err    error
		)
		if len(source.Files) > 0 {
			result, err = client.Upload(source.Files)
		} else {
			result, err = client.Ingest(source.URL, source.Text)
		}

		var failure *IngestFailure
		if errors.As(err, &failure) {
			return IngestCompleteMsg{Failure: failure}
		}
		return IngestCompleteMsg{Result: result, Err: err}
	}
}
