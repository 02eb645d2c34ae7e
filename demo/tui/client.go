package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"forkful/types"
)

// IngestResponse is the JSON body returned by a successful pipeline run.
type IngestResponse struct {
	RunID      string                    `json:"run_id"`
	Recipe     *types.CanonicalRecipe    `json:"recipe"`
	Attempts   []types.ExtractionAttempt `json:"attempts"`
	Quarantine []*types.QuarantineRecord `json:"quarantine,omitempty"`
}

// IngestFailure is the JSON body returned when the pipeline could not produce
// a recipe.
type IngestFailure struct {
	Message  string                    `json:"error"`
	Kind     types.FailureKind         `json:"kind"`
	Attempts []types.ExtractionAttempt `json:"attempts"`
	Status   int                       `json:"-"`
}

func (f *IngestFailure) Error() string {
	return fmt.Sprintf("ingestion failed (%s): %s", f.Kind, f.Message)
}

// IngestClient is a thin HTTP client for the ingestion API
type IngestClient struct {
	baseURL string
	client  *http.Client
}

// NewIngestClient creates a new ingestion client. The timeout covers a full
// pipeline run including AI fallback, so it is deliberately generous.
func NewIngestClient(baseURL string) *IngestClient {
	return &IngestClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Health checks that the server is reachable
func (c *IngestClient) Health() error {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

// Ingest submits a URL or pasted text and waits for the pipeline result
func (c *IngestClient) Ingest(url, text string) (*IngestResponse, error) {
	body, err := json.Marshal(map[string]string{"url": url, "text": text})
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Post(c.baseURL+"/api/v1/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to submit ingestion: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

// Upload submits one or more local image files as a multipart request
func (c *IngestClient) Upload(paths []string) (*IngestResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		part, err := w.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	resp, err := c.client.Post(c.baseURL+"/api/v1/ingest/upload", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to submit upload: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (*IngestResponse, error) {
	if resp.StatusCode != http.StatusOK {
		var failure IngestFailure
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Message == "" {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
		}
		failure.Status = resp.StatusCode
		return nil, &failure
	}

	var result IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
