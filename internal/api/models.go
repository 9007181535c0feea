// Package api holds the request and response bodies of the HTTP API.
package api

import "github.com/a4way/report-agent-workflow/internal/workflow"

// StartWorkflowRequest starts a pipeline run
type StartWorkflowRequest struct {
	Query  string `json:"query"`
	DemoID string `json:"demoId,omitempty"`
}

// StartWorkflowResponse is returned once the run is registered
type StartWorkflowResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	WorkflowID string `json:"workflowId"`
}

// LogsResponse wraps the progress log of a run
type LogsResponse struct {
	Logs []workflow.LogEntry `json:"logs"`
}

// ListWorkflowsResponse lists the known run ids
type ListWorkflowsResponse struct {
	Workflows []string `json:"workflows"`
	Count     int      `json:"count"`
}

// SummaryResponse carries the executive summary of a finished run
type SummaryResponse struct {
	WorkflowID string `json:"workflowId"`
	Summary    string `json:"summary"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ExecuteToolRequest represents a request to execute a tool
type ExecuteToolRequest struct {
	Input map[string]any `json:"input"`
}

// ToolResponse represents the response from tool execution
type ToolResponse struct {
	Success bool   `json:"success"`
	Output  any    `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Stats   any    `json:"stats,omitempty"`
}

// ToolInfo describes a registered tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      any    `json:"schema"`
}

// HealthResponse reports the readiness of the server
type HealthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	OrchestratorReady bool   `json:"orchestrator_ready"`
	SimulationMode    bool   `json:"simulation_mode"`
	PDFAvailable      bool   `json:"pdf_available"`
}

// InfoResponse is served at the root path
type InfoResponse struct {
	Message   string   `json:"message"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
