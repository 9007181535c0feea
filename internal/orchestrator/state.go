package orchestrator

import (
	"github.com/a4way/report-agent-workflow/internal/agents"
)

// Step labels recorded in State.Step. They are informational only.
const (
	StepStarting          = "starting"
	StepRequestClassified = "request_classified"
	StepDataAnalyzed      = "data_analyzed"
	StepReportGenerated   = "report_generated"
	StepCompleted         = "completed"
)

// State is the value threaded through the pipeline. Stages receive a copy and
// return the updated copy.
type State struct {
	Request        string        `json:"original_request"`
	Step           string        `json:"current_step"`
	Classification string        `json:"classification,omitempty"`
	Analysis       agents.Result `json:"analysis_result"`
	Report         agents.Result `json:"report_result"`
	FinalOutput    string        `json:"final_output"`
	// Err is sticky: once set, later stages keep it and finalize surfaces it.
	Err string `json:"error,omitempty"`
}

// Failed reports whether an error has been recorded.
func (s State) Failed() bool { return s.Err != "" }

// withError records msg unless an earlier stage already failed.
func (s State) withError(msg string) State {
	if s.Err == "" {
		s.Err = msg
	}
	return s
}
