// Package workflow tracks background pipeline runs for the HTTP API.
package workflow

import (
	"time"

	"github.com/a4way/report-agent-workflow/internal/progress"
)

// Status is the lifecycle status of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// LogEntry is one line of a run's progress log.
type LogEntry struct {
	Timestamp int64          `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Agent     string         `json:"agent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ResultInfo describes the outcome of one agent within a run.
type ResultInfo struct {
	Status    string `json:"status"`
	Agent     string `json:"agent,omitempty"`
	WordCount int    `json:"word_count,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Record is the status of a run as seen by pollers.
type Record struct {
	ID               string                    `json:"id"`
	Status           Status                    `json:"status"`
	Query            string                    `json:"query"`
	DemoID           string                    `json:"demoId"`
	StartedAt        time.Time                 `json:"started_at"`
	CompletedAt      *time.Time                `json:"completed_at,omitempty"`
	CurrentStep      string                    `json:"current_step"`
	AgentStatus      map[string]progress.State `json:"workflow_status"`
	Classification   string                    `json:"classification,omitempty"`
	FinalResult      string                    `json:"final_result,omitempty"`
	Report           string                    `json:"report,omitempty"`
	AnalysisResult   *ResultInfo               `json:"analysis_result,omitempty"`
	ReportResult     *ResultInfo               `json:"report_result,omitempty"`
	ExecutiveSummary string                    `json:"executive_summary,omitempty"`
	Error            string                    `json:"error,omitempty"`
	PDFAvailable     bool                      `json:"pdf_available"`
	Simulated        bool                      `json:"simulated,omitempty"`
}

// Finished reports whether the run has stopped.
func (r *Record) Finished() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

func newRecord(id, query, demoID string, now time.Time) *Record {
	agents := make(map[string]progress.State, len(progress.Agents))
	for _, a := range progress.Agents {
		agents[a.StatusKey()] = progress.StateIdle
	}
	return &Record{
		ID:          id,
		Status:      StatusRunning,
		Query:       query,
		DemoID:      demoID,
		StartedAt:   now,
		CurrentStep: "Initializing...",
		AgentStatus: agents,
	}
}

func (r *Record) clone() Record {
	out := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	if r.AgentStatus != nil {
		out.AgentStatus = make(map[string]progress.State, len(r.AgentStatus))
		for k, v := range r.AgentStatus {
			out.AgentStatus[k] = v
		}
	}
	if r.AnalysisResult != nil {
		a := *r.AnalysisResult
		out.AnalysisResult = &a
	}
	if r.ReportResult != nil {
		rr := *r.ReportResult
		out.ReportResult = &rr
	}
	return out
}

func (e LogEntry) clone() LogEntry {
	if e.Details != nil {
		details := make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			details[k] = v
		}
		e.Details = details
	}
	return e
}
