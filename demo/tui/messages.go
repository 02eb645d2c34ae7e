package tui

// Messages for the tea program

// HealthCheckMsg reports whether the server answered the health probe
type HealthCheckMsg struct {
	Err error
}

// IngestCompleteMsg is sent when the pipeline run finishes, either way
type IngestCompleteMsg struct {
	Result  *IngestResponse
	Failure *IngestFailure
	Err     error
}
