package api

import (
	"github.com/gin-gonic/gin"

	"forkful/pipeline"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(orch *pipeline.Orchestrator, maxUploadBytes int64) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = maxUploadBytes

	RegisterIngestRoutes(r, orch, maxUploadBytes)
	RegisterHealthRoutes(r)
	return r
}
