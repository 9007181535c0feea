package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/a4way/report-agent-workflow/internal/api"
	"github.com/a4way/report-agent-workflow/internal/tools"
)

// ToolHandler handles tool-related HTTP requests
type ToolHandler struct {
	toolRegistry *tools.Registry
}

// NewToolHandler creates a new tool handler
func NewToolHandler(toolRegistry *tools.Registry) *ToolHandler {
	return &ToolHandler{
		toolRegistry: toolRegistry,
	}
}

// ExecuteTool handles POST /api/tools/{name}
func (h *ToolHandler) ExecuteTool(w http.ResponseWriter, r *http.Request) {
	toolName := mux.Vars(r)["name"]
	if _, err := h.toolRegistry.Get(toolName); err != nil {
		writeJSONError(w, http.StatusNotFound, "Tool not found", err.Error())
		return
	}

	var req api.ExecuteToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if req.Input == nil {
		writeJSONError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELD", "input field is required")
		return
	}

	result, err := h.toolRegistry.Execute(r.Context(), &tools.Input{Name: toolName, Data: req.Input})
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Tool execution failed", err.Error())
		return
	}

	response := api.ToolResponse{
		Success: result.Success,
		Output:  result.Data,
		Stats:   result.Stats,
	}
	if !result.Success {
		response.Error = result.Error
	}
	writeJSON(w, http.StatusOK, response)
}

// ListTools handles GET /api/tools
func (h *ToolHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	registered := h.toolRegistry.List()
	list := make([]api.ToolInfo, 0, len(registered))
	for _, tool := range registered {
		list = append(list, api.ToolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			Schema:      tool.Schema(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": list})
}
