// Package agents holds the result type and prompts shared by the analysis
// and report agents.
package agents

import (
	"context"
	"time"

	"github.com/a4way/report-agent-workflow/internal/llm"
	"github.com/a4way/report-agent-workflow/internal/metrics"
)

// Status is the outcome tag of an agent call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Agent names reported in results.
const (
	DataAnalystName     = "DataAnalystAgent"
	ReportGeneratorName = "ReportGeneratorAgent"
)

// Result is the uniform outcome of an agent call. A failed call carries its
// message in Error and an empty Payload.
type Result struct {
	Status    Status         `json:"status"`
	Agent     string         `json:"agent"`
	Payload   string         `json:"payload,omitempty"`
	WordCount int            `json:"word_count,omitempty"`
	Error     string         `json:"error,omitempty"`
	Stats     Stats          `json:"stats"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Stats records the cost of one agent call.
type Stats struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	CallsMade  int           `json:"calls_made"`
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Succeeded builds a success result.
func Succeeded(agent, payload string) Result {
	return Result{Status: StatusSuccess, Agent: agent, Payload: payload}
}

// Failed builds an error result.
func Failed(agent string, err error) Result {
	return Result{Status: StatusError, Agent: agent, Error: err.Error()}
}

// Tracker counts completion calls made on behalf of one agent call.
type Tracker struct {
	agent     string
	completer llm.Completer
	start     time.Time
	calls     int
}

// Track starts timing an agent call that uses c.
func Track(agent string, c llm.Completer) *Tracker {
	return &Tracker{agent: agent, completer: c, start: time.Now()}
}

// Complete forwards to the underlying completer and records the outcome.
func (t *Tracker) Complete(ctx context.Context, system, user string) (string, error) {
	t.calls++
	out, err := t.completer.Complete(ctx, system, user)
	metrics.CompletionCalls.WithLabelValues(t.agent, metrics.Outcome(err)).Inc()
	return out, err
}

// Finish stamps r with the collected stats.
func (t *Tracker) Finish(r Result) Result {
	now := time.Now()
	r.Stats = Stats{
		StartedAt:  t.start,
		FinishedAt: now,
		Duration:   now.Sub(t.start),
		CallsMade:  t.calls,
	}
	return r
}
