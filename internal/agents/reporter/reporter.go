// Package reporter implements the report generation agent.
package reporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/agents"
	"github.com/a4way/report-agent-workflow/internal/llm"
	"github.com/a4way/report-agent-workflow/internal/progress"
)

// Agent writes prose reports and executive summaries.
type Agent struct {
	completer llm.Completer
	language  string
	logger    zerolog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the agent's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithLanguage sets the report language.
func WithLanguage(language string) Option {
	return func(a *Agent) { a.language = language }
}

// New creates a report agent.
func New(completer llm.Completer, opts ...Option) *Agent {
	a := &Agent{
		completer: completer,
		language:  agents.DefaultLanguage,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GenerateReport turns analysis into a structured business report.
func (a *Agent) GenerateReport(ctx context.Context, analysis, requestContext string) (result agents.Result) {
	tracker := agents.Track(agents.ReportGeneratorName, a.completer)
	defer a.recoverPanic(ctx, tracker, &result)

	progress.Transition(ctx, progress.ReportGenerator, progress.StateActive, progress.LevelInfo,
		"Report generator: writing report")

	report, err := tracker.Complete(ctx, agents.ReportSystemPrompt(a.language),
		agents.ReportRequestPrompt(analysis, requestContext))
	if err != nil {
		return a.fail(ctx, tracker, fmt.Errorf("report generation failed: %w", err))
	}

	res := agents.Succeeded(agents.ReportGeneratorName, report)
	res.WordCount = WordCount(report)

	progress.Emit(ctx, progress.Event{
		Level:   progress.LevelSuccess,
		Agent:   progress.ReportGenerator,
		State:   progress.StateCompleted,
		Message: "Report generator: report finished",
		Details: map[string]any{"word_count": res.WordCount},
	})
	a.logger.Debug().Int("words", res.WordCount).Msg("report generated")

	return tracker.Finish(res)
}

// Summarize compresses report into a short executive summary.
func (a *Agent) Summarize(ctx context.Context, report string) (result agents.Result) {
	tracker := agents.Track(agents.ReportGeneratorName, a.completer)
	defer a.recoverPanic(ctx, tracker, &result)

	summary, err := tracker.Complete(ctx, agents.SummarySystemPrompt(a.language), agents.SummaryRequestPrompt(report))
	if err != nil {
		a.logger.Warn().Err(err).Msg("executive summary failed")
		return tracker.Finish(agents.Failed(agents.ReportGeneratorName, fmt.Errorf("executive summary failed: %w", err)))
	}

	res := agents.Succeeded(agents.ReportGeneratorName, summary)
	res.WordCount = WordCount(summary)
	return tracker.Finish(res)
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func (a *Agent) recoverPanic(ctx context.Context, tracker *agents.Tracker, result *agents.Result) {
	if r := recover(); r != nil {
		a.logger.Error().Interface("panic", r).Msg("report agent panicked")
		*result = a.fail(ctx, tracker, fmt.Errorf("report agent panicked: %v", r))
	}
}

func (a *Agent) fail(ctx context.Context, tracker *agents.Tracker, err error) agents.Result {
	a.logger.Warn().Err(err).Msg("report generation failed")
	progress.Transition(ctx, progress.ReportGenerator, progress.StateError, progress.LevelError,
		"Report generator: "+err.Error())
	return tracker.Finish(agents.Failed(agents.ReportGeneratorName, err))
}
