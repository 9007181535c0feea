package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/api"
	"github.com/a4way/report-agent-workflow/internal/workflow"
)

// Exporter renders a finished run as a downloadable document.
type Exporter interface {
	Export(rec workflow.Record) (string, []byte, error)
}

// WorkflowHandler handles workflow-related HTTP requests
type WorkflowHandler struct {
	manager  *workflow.Manager
	exporter Exporter
	logger   zerolog.Logger
}

// NewWorkflowHandler creates a new workflow handler. A nil exporter disables
// report downloads.
func NewWorkflowHandler(manager *workflow.Manager, exporter Exporter, logger zerolog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		manager:  manager,
		exporter: exporter,
		logger:   logger,
	}
}

// Start handles POST /api/workflow/start
func (h *WorkflowHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req api.StartWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	id, err := h.manager.Start(r.Context(), req.Query, req.DemoID)
	if errors.Is(err, workflow.ErrEmptyQuery) {
		writeJSONError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "query field is required")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Failed to start workflow", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, api.StartWorkflowResponse{
		Success:    true,
		Message:    "Workflow started successfully",
		WorkflowID: id,
	})
}

// Status handles GET /api/workflow/{id}/status
func (h *WorkflowHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.manager.Get(id)
	if err != nil {
		h.notFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Logs handles GET /api/workflow/{id}/logs
func (h *WorkflowHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	logs, err := h.manager.Logs(id)
	if err != nil {
		h.notFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, api.LogsResponse{Logs: logs})
}

// List handles GET /api/workflows
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.manager.List()
	writeJSON(w, http.StatusOK, api.ListWorkflowsResponse{Workflows: ids, Count: len(ids)})
}

// Delete handles DELETE /api/workflow/{id}
func (h *WorkflowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.manager.Delete(id) {
		h.notFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: fmt.Sprintf("Workflow %s deleted", id)})
}

// Download handles GET /api/workflow/{id}/report/download
func (h *WorkflowHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := h.manager.Get(id)
	if err != nil {
		h.notFound(w, id)
		return
	}
	if rec.Status != workflow.StatusCompleted {
		writeJSONError(w, http.StatusBadRequest, "Workflow not completed", "current status: "+string(rec.Status))
		return
	}
	if h.exporter == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "PDF generation not available", "")
		return
	}

	name, data, err := h.exporter.Export(rec)
	if err != nil {
		h.logger.Error().Err(err).Str("workflow_id", id).Msg("pdf export failed")
		writeJSONError(w, http.StatusInternalServerError, "PDF generation failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn().Err(err).Str("workflow_id", id).Msg("failed to write pdf")
	}
}

// Summary handles POST /api/workflow/{id}/summary
func (h *WorkflowHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	summary, err := h.manager.Summarize(r.Context(), id)
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		h.notFound(w, id)
	case errors.Is(err, workflow.ErrNotCompleted):
		writeJSONError(w, http.StatusBadRequest, "Workflow not completed", err.Error())
	case errors.Is(err, workflow.ErrSummaryUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "Executive summary not available", "")
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, "Summary generation failed", err.Error())
	default:
		writeJSON(w, http.StatusOK, api.SummaryResponse{WorkflowID: id, Summary: summary})
	}
}

func (h *WorkflowHandler) notFound(w http.ResponseWriter, id string) {
	writeJSONError(w, http.StatusNotFound, "Workflow not found", id)
}
