// Package orchestrator runs the fixed four-stage analysis pipeline:
// classify_request, analyze_data, generate_report and finalize_output.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/agents"
	"github.com/a4way/report-agent-workflow/internal/llm"
	"github.com/a4way/report-agent-workflow/internal/metrics"
	"github.com/a4way/report-agent-workflow/internal/progress"
)

// Analyzer produces the data analysis for a request.
type Analyzer interface {
	Analyze(ctx context.Context, request string) agents.Result
}

// ReportWriter turns an analysis into a report.
type ReportWriter interface {
	GenerateReport(ctx context.Context, analysis, requestContext string) agents.Result
}

// Stage names.
const (
	StageClassify = "classify_request"
	StageAnalyze  = "analyze_data"
	StageReport   = "generate_report"
	StageFinalize = "finalize_output"
)

// IncompleteMessage is the final output when neither an error nor a complete
// result is available.
const IncompleteMessage = "Workflow could not be completed successfully"

type stage struct {
	name string
	run  func(ctx context.Context, s State) State
}

// Orchestrator wires the agents into the pipeline.
type Orchestrator struct {
	classifier llm.Completer
	analyzer   Analyzer
	writer     ReportWriter
	language   string
	logger     zerolog.Logger
	stages     []stage
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithLanguage sets the language of the classification call.
func WithLanguage(language string) Option {
	return func(o *Orchestrator) { o.language = language }
}

// New creates an orchestrator.
func New(classifier llm.Completer, analyzer Analyzer, writer ReportWriter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		analyzer:   analyzer,
		writer:     writer,
		language:   agents.DefaultLanguage,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.stages = []stage{
		{StageClassify, o.classify},
		{StageAnalyze, o.analyze},
		{StageReport, o.generateReport},
		{StageFinalize, o.finalize},
	}
	return o
}

// Run executes every stage in order and returns the final state. Stages always
// advance; failures are recorded in State.Err.
func (o *Orchestrator) Run(ctx context.Context, request string) State {
	log := o.loggerFor(ctx)
	log.Info().Str("request", truncate(request, 50)).Msg("starting workflow")

	s := State{Request: request, Step: StepStarting}
	for _, st := range o.stages {
		s = o.runStage(ctx, st, s)
	}

	if s.FinalOutput == "" {
		s.FinalOutput = IncompleteMessage
	}
	return s
}

// Process runs the pipeline and returns its text output, which is never empty.
func (o *Orchestrator) Process(ctx context.Context, request string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			o.loggerFor(ctx).Error().Interface("panic", r).Msg("orchestrator failed")
			out = fmt.Sprintf("Critical orchestrator error: %v", r)
		}
	}()
	return o.Run(ctx, request).FinalOutput
}

func (o *Orchestrator) runStage(ctx context.Context, st stage, in State) (out State) {
	log := o.loggerFor(ctx).With().Str("stage", st.name).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("stage panicked")
			out = in.withError(fmt.Sprintf("%s failed: %v", st.name, r))
			if st.name == StageFinalize {
				out.FinalOutput = "Finalization error: " + fmt.Sprint(r)
			}
		}
		metrics.StageDuration.WithLabelValues(st.name).Observe(time.Since(start).Seconds())
		log.Debug().Dur("took", time.Since(start)).Bool("failed", out.Failed()).Msg("stage finished")
	}()

	log.Debug().Msg("stage started")
	return st.run(ctx, in)
}

func (o *Orchestrator) classify(ctx context.Context, s State) State {
	progress.Emit(ctx, progress.Event{
		Agent:   progress.Orchestrator,
		State:   progress.StateActive,
		Step:    "Orchestrator classifying request",
		Message: "Orchestrator: classifying request",
	})

	classification, err := o.classifier.Complete(ctx, agents.ClassifierSystemPrompt,
		agents.ClassifierRequestPrompt(s.Request, o.language))
	metrics.CompletionCalls.WithLabelValues("Orchestrator", metrics.Outcome(err)).Inc()
	if err != nil {
		progress.Transition(ctx, progress.Orchestrator, progress.StateError, progress.LevelError,
			"Orchestrator: request classification failed")
		return s.withError(fmt.Sprintf("request classification failed: %v", err))
	}

	s.Classification = classification
	s.Step = StepRequestClassified
	o.loggerFor(ctx).Info().Str("classification", truncate(classification, 100)).Msg("request classified")

	progress.Transition(ctx, progress.Orchestrator, progress.StateCompleted, progress.LevelSuccess,
		"Orchestrator: request classified")
	return s
}

func (o *Orchestrator) analyze(ctx context.Context, s State) State {
	progress.Emit(ctx, progress.Event{Agent: progress.Orchestrator, Step: "Data analysis running", Message: "Starting data analysis"})

	s.Analysis = o.analyzer.Analyze(ctx, s.Request)
	s.Step = StepDataAnalyzed

	if s.Analysis.OK() {
		o.loggerFor(ctx).Info().Msg("data analysis completed")
	} else {
		o.loggerFor(ctx).Warn().Str("error", s.Analysis.Error).Msg("data analysis failed")
	}
	return s
}

func (o *Orchestrator) generateReport(ctx context.Context, s State) State {
	if !s.Analysis.OK() {
		return s.withError("cannot generate report: data analysis was not successful: " + s.Analysis.Error)
	}

	progress.Emit(ctx, progress.Event{Agent: progress.Orchestrator, Step: "Generating report", Message: "Generating report"})

	s.Report = o.writer.GenerateReport(ctx, s.Analysis.Payload, s.Request)
	s.Step = StepReportGenerated

	if s.Report.OK() {
		o.loggerFor(ctx).Info().Int("words", s.Report.WordCount).Msg("report generated")
	} else {
		o.loggerFor(ctx).Warn().Str("error", s.Report.Error).Msg("report generation failed")
	}
	return s
}

func (o *Orchestrator) finalize(ctx context.Context, s State) State {
	s.Step = StepCompleted

	switch {
	case s.Failed():
		s.FinalOutput = "Workflow error: " + s.Err
	case s.Analysis.OK() && s.Report.OK():
		s.FinalOutput = renderFinal(s)
	default:
		s.FinalOutput = IncompleteMessage
	}
	return s
}

func renderFinal(s State) string {
	var b strings.Builder
	b.WriteString("# Business Intelligence Report\n\n")
	b.WriteString("## Your request\n")
	b.WriteString(s.Request)
	b.WriteString("\n\n## Data analysis\n")
	b.WriteString(s.Analysis.Payload)
	b.WriteString("\n\n## Executive report\n")
	b.WriteString(s.Report.Payload)
	b.WriteString("\n\n---\n*Generated by the multi-agent workflow*\n")
	fmt.Fprintf(&b, "*Words in report: %d*\n", s.Report.WordCount)
	return b.String()
}

// loggerFor prefers a logger attached to ctx, which carries per-run fields.
func (o *Orchestrator) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &o.logger
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
