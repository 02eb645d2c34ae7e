package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"forkful/pipeline"
	"forkful/types"
)

// IngestRequest is the JSON body for URL and raw-text ingestion.
type IngestRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// RegisterIngestRoutes registers the ingestion endpoints.
func RegisterIngestRoutes(r *gin.Engine, orch *pipeline.Orchestrator, maxUploadBytes int64) {
	h := &ingestHandler{orch: orch, maxUploadBytes: maxUploadBytes}
	v1 := r.Group("/api/v1")
	v1.POST("/ingest", h.handleIngest)
	v1.POST("/ingest/upload", h.handleUpload)
}

type ingestHandler struct {
	orch           *pipeline.Orchestrator
	maxUploadBytes int64
}

// handleIngest accepts a URL or pasted text and runs the pipeline.
func (h *ingestHandler) handleIngest(c *gin.Context) {
	var body IngestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	req := &types.IngestionRequest{
		URL:         body.URL,
		Text:        body.Text,
		RequestedAt: time.Now().UTC(),
	}
	h.run(c, req)
}

// handleUpload accepts one or more image files as multipart form data.
func (h *ingestHandler) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart payload"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files in upload"})
		return
	}

	req := &types.IngestionRequest{RequestedAt: time.Now().UTC()}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file in upload"})
			return
		}
		// One past the cap is enough to let the scanner reject oversize.
		data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file in upload"})
			return
		}
		req.Files = append(req.Files, &types.FileUpload{
			Filename:     fh.Filename,
			DeclaredMIME: fh.Header.Get("Content-Type"),
			Data:         data,
		})
	}
	h.run(c, req)
}

func (h *ingestHandler) run(c *gin.Context, req *types.IngestionRequest) {
	result, err := h.orch.Ingest(c.Request.Context(), req)
	if err != nil {
		status, payload := failureResponse(err)
		c.JSON(status, payload)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":     result.RunID,
		"recipe":     result.Recipe,
		"attempts":   result.Attempts,
		"quarantine": result.Quarantine,
	})
}

// failureResponse maps a pipeline failure to an HTTP status and the
// coarse-grained user message. Internal detail stays in the logs.
func failureResponse(err error) (int, gin.H) {
	var pf *types.PipelineFailure
	if !errors.As(err, &pf) {
		log.Printf("❌ Ingestion failed with internal error: %v", err)
		return http.StatusInternalServerError, gin.H{"error": "internal error"}
	}

	status := http.StatusBadGateway
	switch pf.Kind {
	case types.FailureSecurityRejected, types.FailureInsufficientConfidence:
		status = http.StatusUnprocessableEntity
	case types.FailureUnsupportedSource:
		status = http.StatusBadRequest
	case types.FailureExtractionTimeout, types.FailurePipelineTimeout:
		status = http.StatusGatewayTimeout
	case types.FailureQuotaExceeded:
		status = http.StatusTooManyRequests
	}

	return status, gin.H{
		"error":    types.UserMessage(pf.Kind),
		"kind":     pf.Kind,
		"attempts": pf.Attempts,
	}
}
