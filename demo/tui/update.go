package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return checkHealth(m.Client)
}

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case HealthCheckMsg:
		m.Connected = msg.Err == nil
		return m, nil
	case IngestCompleteMsg:
		return m.handleIngestComplete(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if m.State == StateIdle && !m.Connected {
			return m, checkHealth(m.Client)
		}
	case "i", "I":
		if m.State == StateIdle && m.Connected {
			m.State = StateSubmitting
			m.Started = time.Now()
			return m, submitIngestion(m.Client, m.Source)
		}
	}
	return m, nil
}

// handleIngestComplete processes the pipeline result
func (m Model) handleIngestComplete(msg IngestCompleteMsg) (tea.Model, tea.Cmd) {
	m.Elapsed = time.Since(m.Started)
	switch {
	case msg.Failure != nil:
		m.State = StateFailed
		m.Failure = msg.Failure
	case msg.Err != nil:
		m.State = StateError
		m.Err = msg.Err
	default:
		m.State = StateComplete
		m.Result = msg.Result
	}
	return m, nil
}
