// Package app assembles the pipeline, the workflow manager and the API server
// from a configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/agents/analyst"
	"github.com/a4way/report-agent-workflow/internal/agents/reporter"
	"github.com/a4way/report-agent-workflow/internal/api/handlers"
	"github.com/a4way/report-agent-workflow/internal/api/server"
	"github.com/a4way/report-agent-workflow/internal/config"
	"github.com/a4way/report-agent-workflow/internal/export/pdf"
	"github.com/a4way/report-agent-workflow/internal/llm/factory"
	"github.com/a4way/report-agent-workflow/internal/orchestrator"
	"github.com/a4way/report-agent-workflow/internal/querytool"
	"github.com/a4way/report-agent-workflow/internal/tools"
	"github.com/a4way/report-agent-workflow/internal/workflow"
)

// SimulationStep paces simulated runs.
const SimulationStep = time.Second

// App holds the wired components. Orchestrator and Reporter are nil when the
// completion service is not configured.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	QueryTool    *querytool.QueryTool
	Tools        *tools.Registry
	Orchestrator *orchestrator.Orchestrator
	Reporter     *reporter.Agent
	Manager      *workflow.Manager
	PDF          *pdf.Renderer
}

// Option configures New.
type Option func(*options)

type options struct {
	completers *factory.Completers
	simStep    time.Duration
}

// WithCompleters uses the given completers instead of building them from
// the LLM configuration.
func WithCompleters(c *factory.Completers) Option {
	return func(o *options) { o.completers = c }
}

// WithSimulationStep overrides the pause between simulated events.
func WithSimulationStep(step time.Duration) Option {
	return func(o *options) { o.simStep = step }
}

// New wires every component for cfg.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	o := &options{simStep: SimulationStep}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Tools:  tools.NewRegistry(),
	}

	a.QueryTool = querytool.New(cfg.TablePaths(), querytool.WithLogger(logger.With().Str("component", "query_tool").Logger()))
	a.Tools.Register(a.QueryTool)

	completers := o.completers
	if completers == nil && cfg.HasCredentials() {
		c, err := factory.NewFactory().Create(&cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create completion client: %w", err)
		}
		completers = c
	}

	if completers != nil {
		lang := cfg.LLM.Language
		dataAnalyst := analyst.New(completers.Analysis, a.QueryTool,
			analyst.WithLogger(logger.With().Str("component", "data_analyst").Logger()),
			analyst.WithLanguage(lang))
		a.Reporter = reporter.New(completers.Report,
			reporter.WithLogger(logger.With().Str("component", "report_generator").Logger()),
			reporter.WithLanguage(lang))
		a.Orchestrator = orchestrator.New(completers.Analysis, dataAnalyst, a.Reporter,
			orchestrator.WithLogger(logger.With().Str("component", "orchestrator").Logger()),
			orchestrator.WithLanguage(lang))
	} else {
		logger.Warn().Msg("no completion credentials configured; workflows will be simulated")
	}

	if cfg.PDF.Enabled {
		a.PDF = pdf.NewRenderer(
			pdf.WithOutputDir(cfg.PDF.OutputDir),
			pdf.WithLogger(logger.With().Str("component", "pdf").Logger()))
	}

	managerOpts := []workflow.Option{
		workflow.WithLogger(logger.With().Str("component", "workflow").Logger()),
		workflow.WithPDFAvailable(a.PDF != nil),
	}
	if a.Reporter != nil {
		managerOpts = append(managerOpts, workflow.WithSummarizer(a.Reporter))
	}
	if a.Orchestrator == nil || cfg.Server.Simulate {
		managerOpts = append(managerOpts, workflow.WithSimulation(o.simStep))
	}

	var runner workflow.Runner
	if a.Orchestrator != nil {
		runner = a.Orchestrator
	}
	a.Manager = workflow.NewManager(workflow.NewStore(), runner, managerOpts...)

	return a, nil
}

// Ready reports whether real pipeline runs are possible.
func (a *App) Ready() bool {
	return a.Orchestrator != nil
}

// NewServer builds the API server and starts the expiry sweeper, if configured.
func (a *App) NewServer(ctx context.Context) *server.Server {
	var exporter handlers.Exporter
	if a.PDF != nil {
		exporter = a.PDF
	}

	if ttl := time.Duration(a.Config.Server.WorkflowTTL) * time.Minute; ttl > 0 {
		a.Manager.StartSweeper(ctx, ttl, ttl/4)
	}

	return server.NewServer(server.Config{
		Address:        a.Config.Server.Address,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
	}, a.Manager, a.Tools, exporter, a.Logger.With().Str("component", "api").Logger())
}

// ShutdownTimeout is the configured grace period for running workflows.
func (a *App) ShutdownTimeout() time.Duration {
	return time.Duration(a.Config.Server.ShutdownTimeout) * time.Second
}
