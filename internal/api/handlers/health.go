package handlers

import (
	"net/http"
	"time"

	"github.com/a4way/report-agent-workflow/internal/api"
	"github.com/a4way/report-agent-workflow/internal/workflow"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Endpoints lists the routes advertised at the root path.
var Endpoints = []string{
	"GET /api/health",
	"POST /api/workflow/start",
	"GET /api/workflow/{id}/status",
	"GET /api/workflow/{id}/logs",
	"GET /api/workflow/{id}/report/download",
	"POST /api/workflow/{id}/summary",
	"DELETE /api/workflow/{id}",
	"GET /api/workflows",
	"GET /api/tools",
	"POST /api/tools/{name}",
	"GET /metrics",
}

// HealthHandler serves the root info and health endpoints
type HealthHandler struct {
	manager *workflow.Manager
	now     func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(manager *workflow.Manager) *HealthHandler {
	return &HealthHandler{manager: manager, now: time.Now}
}

// Info handles GET /
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.InfoResponse{
		Message:   "Multi-agent business intelligence API",
		Version:   Version,
		Endpoints: Endpoints,
	})
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:            "healthy",
		Timestamp:         h.now().UTC().Format(time.RFC3339),
		OrchestratorReady: !h.manager.Simulated(),
		SimulationMode:    h.manager.Simulated(),
		PDFAvailable:      h.manager.PDFAvailable(),
	})
}
