package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/a4way/report-agent-workflow/internal/metrics"
	"github.com/a4way/report-agent-workflow/internal/progress"
)

// simulatedQueries are shown in the log of simulated runs.
var simulatedQueries = []string{
	"SELECT SUM(revenue) FROM orders WHERE status = 'paid'",
	"SELECT channel, COUNT(*) FROM customers GROUP BY channel",
	"SELECT AVG(order_value) FROM order_items",
}

var simulatedKPIs = map[string]any{
	"revenue":      "782,517.00 €",
	"aov":          "863.71 €",
	"orders":       "906",
	"gross_margin": "42.84%",
}

const simulatedReport = `# Business Intelligence Report (simulation)

This run was simulated because no language model is configured.

- **Revenue:** 782,517.00 €
- **AOV:** 863.71 €
- **Paid orders:** 906
- **Gross margin:** 42.84%

Configure an API key to run the real analysis.`

// simEvent is emitted after pausing units simulation steps.
type simEvent struct {
	units int
	event progress.Event
}

// simulateRun replays the demo progress sequence with pauses scaled by simStep.
func (m *Manager) simulateRun(ctx context.Context, id string) error {
	steps := []simEvent{
		{0, progress.Event{Agent: progress.Orchestrator, State: progress.StateActive}},
		{2, progress.Event{Level: progress.LevelSuccess, Agent: progress.Orchestrator, State: progress.StateCompleted,
			Message: "Orchestrator: request classified"}},
		{0, progress.Event{Agent: progress.DataAnalyst, State: progress.StateActive, Step: "Data analysis running...",
			Message: "Data analyst: starting analysis"}},
		{0, progress.Event{Agent: progress.QueryTool, State: progress.StateActive,
			Message: "Query tool: running SQL queries"}},
	}
	for i, q := range simulatedQueries {
		steps = append(steps, simEvent{1, progress.Event{Agent: progress.QueryTool,
			Message: fmt.Sprintf("SQL query %d: %s", i+1, q)}})
	}
	steps = append(steps,
		simEvent{0, progress.Event{Level: progress.LevelSuccess, Agent: progress.QueryTool, State: progress.StateCompleted,
			Message: "Query tool: all queries succeeded"}},
		simEvent{1, progress.Event{Level: progress.LevelSuccess, Agent: progress.DataAnalyst, State: progress.StateCompleted,
			Message: "Data analyst: KPIs computed", Details: simulatedKPIs}},
		simEvent{0, progress.Event{Agent: progress.ReportGenerator, State: progress.StateActive, Step: "Writing report...",
			Message: "Report generator: writing report"}},
		simEvent{3, progress.Event{Level: progress.LevelSuccess, Agent: progress.ReportGenerator, State: progress.StateCompleted,
			Message: "Report generator: report finished",
			Details: map[string]any{"word_count": 377, "sections": []string{"Executive summary", "KPI analysis", "Recommendations"}}}},
	)

	for _, st := range steps {
		if err := sleep(ctx, time.Duration(st.units)*m.simStep); err != nil {
			return err
		}
		progress.Emit(ctx, st.event)
	}

	now := m.now()
	if err := m.store.Update(id, func(r *Record) {
		r.Status = StatusCompleted
		r.CurrentStep = "Workflow completed!"
		r.CompletedAt = &now
		r.FinalResult = simulatedReport
		r.Report = simulatedReport
		r.Simulated = true
		r.AnalysisResult = &ResultInfo{Status: "success", Agent: "simulation"}
		r.ReportResult = &ResultInfo{Status: "success", Agent: "simulation", WordCount: 377}
		r.PDFAvailable = m.pdfAvailable
	}); err != nil {
		return nil
	}

	metrics.WorkflowsFinished.WithLabelValues(string(StatusCompleted)).Inc()
	progress.Emit(ctx, progress.Event{Level: progress.LevelSuccess, Agent: progress.System, Message: "Workflow completed successfully!"})
	if m.pdfAvailable {
		progress.Info(ctx, progress.System, "PDF report is ready for download")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
