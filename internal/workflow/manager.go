package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/agents"
	"github.com/a4way/report-agent-workflow/internal/metrics"
	"github.com/a4way/report-agent-workflow/internal/orchestrator"
	"github.com/a4way/report-agent-workflow/internal/progress"
)

var (
	// ErrEmptyQuery is returned by Start for blank requests.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrSummaryUnavailable is returned when no summarizer is configured.
	ErrSummaryUnavailable = errors.New("executive summary not available")
	// ErrShutdown is returned by Start once Shutdown has been called.
	ErrShutdown = errors.New("manager is shut down")
)

// Runner executes the analysis pipeline for one request.
type Runner interface {
	Run(ctx context.Context, request string) orchestrator.State
}

// Summarizer condenses a finished report.
type Summarizer interface {
	Summarize(ctx context.Context, report string) agents.Result
}

// Manager starts pipeline runs in the background and records their progress
// in a Store. Each run is owned by its goroutine until it finishes; everyone
// else reads snapshots.
type Manager struct {
	store        *Store
	runner       Runner
	summarizer   Summarizer
	simulate     bool
	simStep      time.Duration
	pdfAvailable bool
	logger       zerolog.Logger
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu orders wg.Add in Start against the wg.Wait in Shutdown.
	mu     sync.Mutex
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSummarizer enables executive summaries of finished runs.
func WithSummarizer(s Summarizer) Option {
	return func(m *Manager) { m.summarizer = s }
}

// WithSimulation replays a canned progress sequence instead of running the
// pipeline. step scales the pauses between simulated events.
func WithSimulation(step time.Duration) Option {
	return func(m *Manager) {
		m.simulate = true
		m.simStep = step
	}
}

// WithPDFAvailable marks completed runs as downloadable.
func WithPDFAvailable(available bool) Option {
	return func(m *Manager) { m.pdfAvailable = available }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager. A nil runner forces simulation mode.
func NewManager(store *Store, runner Runner, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:   store,
		runner:  runner,
		simStep: time.Second,
		logger:  zerolog.Nop(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runner == nil {
		m.simulate = true
	}
	return m
}

// Simulated reports whether runs are simulated.
func (m *Manager) Simulated() bool { return m.simulate }

// PDFAvailable reports whether completed runs can be exported.
func (m *Manager) PDFAvailable() bool { return m.pdfAvailable }

// NewID returns a workflow id of the form workflow_<yyyymmdd_hhmmss>_<8 hex>.
func NewID(now time.Time) string {
	return fmt.Sprintf("workflow_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])
}

// Start registers a run and executes it in the background. It returns as soon
// as the run is recorded.
func (m *Manager) Start(ctx context.Context, query, demoID string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrShutdown
	}
	id := NewID(m.now())
	if err := m.store.Create(newRecord(id, query, demoID, m.now())); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.wg.Add(1)
	m.mu.Unlock()

	metrics.WorkflowsStarted.Inc()
	metrics.WorkflowsActive.Inc()
	m.logger.Info().Str("workflow_id", id).Str("demo_id", demoID).Msg("workflow started")

	go m.run(id, query)
	return id, nil
}

// Get returns a snapshot of a run.
func (m *Manager) Get(id string) (Record, error) { return m.store.Get(id) }

// Logs returns a run's progress log.
func (m *Manager) Logs(id string) ([]LogEntry, error) { return m.store.Logs(id) }

// List returns all known workflow ids.
func (m *Manager) List() []string { return m.store.IDs() }

// Delete forgets a run. A run still executing keeps going but its updates are dropped.
func (m *Manager) Delete(id string) bool {
	removed := m.store.Delete(id)
	if removed {
		m.logger.Info().Str("workflow_id", id).Msg("workflow deleted")
	}
	return removed
}

// Summarize produces and stores an executive summary of a completed run.
func (m *Manager) Summarize(ctx context.Context, id string) (string, error) {
	rec, err := m.store.Get(id)
	if err != nil {
		return "", err
	}
	if rec.Status != StatusCompleted {
		return "", ErrNotCompleted
	}
	if rec.ExecutiveSummary != "" {
		return rec.ExecutiveSummary, nil
	}
	if m.summarizer == nil {
		return "", ErrSummaryUnavailable
	}

	report := rec.Report
	if report == "" {
		report = rec.FinalResult
	}

	res := m.summarizer.Summarize(ctx, report)
	if !res.OK() {
		return "", errors.New(res.Error)
	}

	if err := m.store.Update(id, func(r *Record) { r.ExecutiveSummary = res.Payload }); err != nil {
		return "", err
	}
	return res.Payload, nil
}

// Sweep removes runs that finished more than ttl ago.
func (m *Manager) Sweep(ttl time.Duration) int {
	removed := m.store.Sweep(m.now().Add(-ttl))
	if len(removed) > 0 {
		m.logger.Debug().Strs("workflow_ids", removed).Msg("expired workflows removed")
	}
	return len(removed)
}

// StartSweeper removes expired runs every interval until ctx is done. A zero
// ttl disables it.
func (m *Manager) StartSweeper(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(ttl)
			}
		}
	}()
}

// Wait blocks until every started run has finished.
func (m *Manager) Wait() { m.wg.Wait() }

// Shutdown refuses new runs and waits for running workflows until ctx
// expires, then cancels them.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-done
		return ctx.Err()
	}
}

func (m *Manager) run(id, query string) {
	defer m.wg.Done()
	defer metrics.WorkflowsActive.Dec()

	log := m.logger.With().Str("workflow_id", id).Logger()
	ctx := progress.WithReporter(log.WithContext(m.ctx), m.reporterFor(id))

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("workflow panicked")
			m.fail(ctx, id, fmt.Errorf("workflow panicked: %v", r))
		}
	}()

	progress.Emit(ctx, progress.Event{Agent: progress.System, Message: "Starting workflow: " + id, Step: "Orchestrator starting..."})
	progress.Info(ctx, progress.System, "Query: "+query)

	if m.simulate {
		if err := m.simulateRun(ctx, id); err != nil {
			m.fail(ctx, id, err)
		}
		return
	}

	m.finish(ctx, id, m.runner.Run(ctx, query))
}

func (m *Manager) finish(ctx context.Context, id string, s orchestrator.State) {
	completed := !s.Failed() && s.Analysis.OK() && s.Report.OK()
	now := m.now()

	err := m.store.Update(id, func(r *Record) {
		r.CompletedAt = &now
		r.Classification = s.Classification
		r.FinalResult = s.FinalOutput
		r.Report = s.Report.Payload
		if s.Analysis.Status != "" {
			r.AnalysisResult = &ResultInfo{Status: string(s.Analysis.Status), Agent: s.Analysis.Agent, Error: s.Analysis.Error}
		}
		if s.Report.Status != "" {
			r.ReportResult = &ResultInfo{Status: string(s.Report.Status), Agent: s.Report.Agent, WordCount: s.Report.WordCount, Error: s.Report.Error}
		}

		if completed {
			r.Status = StatusCompleted
			r.CurrentStep = "Workflow completed!"
			r.PDFAvailable = m.pdfAvailable
			return
		}
		r.Status = StatusError
		r.CurrentStep = "Workflow failed"
		r.Error = failureReason(s)
	})
	if err != nil {
		m.logger.Debug().Str("workflow_id", id).Msg("workflow deleted before it finished")
		return
	}

	if !completed {
		metrics.WorkflowsFinished.WithLabelValues(string(StatusError)).Inc()
		progress.Emit(ctx, progress.Event{Level: progress.LevelError, Agent: progress.System,
			Message: "Workflow error: " + failureReason(s)})
		zerolog.Ctx(ctx).Warn().Str("error", failureReason(s)).Msg("workflow failed")
		return
	}

	metrics.WorkflowsFinished.WithLabelValues(string(StatusCompleted)).Inc()
	progress.Emit(ctx, progress.Event{Level: progress.LevelSuccess, Agent: progress.System, Message: "Workflow completed successfully!"})
	if m.pdfAvailable {
		progress.Info(ctx, progress.System, "PDF report is ready for download")
	}
	zerolog.Ctx(ctx).Info().Msg("workflow completed")
}

func (m *Manager) fail(ctx context.Context, id string, err error) {
	now := m.now()
	if uerr := m.store.Update(id, func(r *Record) {
		r.Status = StatusError
		r.CompletedAt = &now
		r.Error = err.Error()
	}); uerr != nil {
		return
	}
	metrics.WorkflowsFinished.WithLabelValues(string(StatusError)).Inc()
	progress.Emit(ctx, progress.Event{Level: progress.LevelError, Agent: progress.System, Message: "Workflow error: " + err.Error()})
}

func failureReason(s orchestrator.State) string {
	switch {
	case s.Err != "":
		return s.Err
	case s.Analysis.Error != "":
		return s.Analysis.Error
	case s.Report.Error != "":
		return s.Report.Error
	default:
		return orchestrator.IncompleteMessage
	}
}

// reporterFor turns progress events into log entries and status changes on
// the run's record.
func (m *Manager) reporterFor(id string) progress.Reporter {
	return progress.ReporterFunc(func(e progress.Event) {
		if e.Message != "" {
			_ = m.store.AppendLog(id, LogEntry{
				Timestamp: e.Time.UnixMilli(),
				Level:     string(e.Level),
				Message:   e.Message,
				Agent:     string(e.Agent),
				Details:   e.Details,
			})
		}

		key := e.Agent.StatusKey()
		if (e.State == "" || key == "") && e.Step == "" {
			return
		}
		_ = m.store.Update(id, func(r *Record) {
			if e.State != "" && key != "" {
				r.AgentStatus[key] = e.State
			}
			if e.Step != "" {
				r.CurrentStep = e.Step
			}
		})
	})
}
