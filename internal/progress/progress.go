// Package progress carries workflow progress events through a context.
//
// Agents and pipeline stages emit events without knowing who listens. The
// workflow manager installs a Reporter that turns them into log entries and
// agent status changes; when no Reporter is installed Emit is a no-op.
package progress

import (
	"context"
	"sync"
	"time"
)

// Level classifies an event for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// State is the lifecycle state of one agent within a run.
type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Agent names the component an event originates from.
type Agent string

const (
	System          Agent = "System"
	Orchestrator    Agent = "Orchestrator"
	DataAnalyst     Agent = "DataAnalyst"
	QueryTool       Agent = "QueryTool"
	ReportGenerator Agent = "ReportGenerator"
)

// Agents lists the agents that carry a status, in pipeline order.
var Agents = []Agent{Orchestrator, DataAnalyst, QueryTool, ReportGenerator}

// StatusKey returns the key used for the agent in status records, or "" for
// agents without a tracked status.
func (a Agent) StatusKey() string {
	switch a {
	case Orchestrator:
		return "orchestrator"
	case DataAnalyst:
		return "dataAnalyst"
	case QueryTool:
		return "queryTool"
	case ReportGenerator:
		return "reportGenerator"
	default:
		return ""
	}
}

// Event is a single progress notification.
type Event struct {
	Time    time.Time
	Level   Level
	Agent   Agent
	Message string
	Details map[string]any

	// State, when set, moves Agent to a new lifecycle state.
	State State
	// Step, when set, replaces the run's current step label.
	Step string
}

// Reporter receives events. Implementations must be safe for concurrent use.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

type ctxKey struct{}

// WithReporter returns a context that delivers events to r.
func WithReporter(ctx context.Context, r Reporter) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the installed Reporter, if any.
func FromContext(ctx context.Context) (Reporter, bool) {
	r, ok := ctx.Value(ctxKey{}).(Reporter)
	return r, ok && r != nil
}

// Emit delivers e to the context's Reporter.
func Emit(ctx context.Context, e Event) {
	r, ok := FromContext(ctx)
	if !ok {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	r.Report(e)
}

// Info emits an info event.
func Info(ctx context.Context, agent Agent, msg string) {
	Emit(ctx, Event{Level: LevelInfo, Agent: agent, Message: msg})
}

// Transition emits an event that also moves agent to state.
func Transition(ctx context.Context, agent Agent, state State, level Level, msg string) {
	Emit(ctx, Event{Level: level, Agent: agent, Message: msg, State: state})
}

// Recorder collects events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Messages returns the recorded messages in order.
func (r *Recorder) Messages() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}
