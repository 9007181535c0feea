// Package analyst implements the data analysis agent.
package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/agents"
	"github.com/a4way/report-agent-workflow/internal/llm"
	"github.com/a4way/report-agent-workflow/internal/progress"
	"github.com/a4way/report-agent-workflow/internal/querytool"
)

// QueryRunner executes SQL and returns formatted text. It never fails; errors
// are reported inside the returned text.
type QueryRunner interface {
	Run(ctx context.Context, query string) string
}

// CannedQuery is a named, request-independent query.
type CannedQuery struct {
	Name string
	SQL  string
}

// CannedQueries are executed for every request, in this order.
var CannedQueries = []CannedQuery{
	{
		Name: "revenue",
		SQL: `SELECT SUM((oi.net_price + oi.tax_amount) * oi.quantity) AS total_revenue
FROM order_items oi
JOIN orders o ON oi.order_id = o.order_id
WHERE o.order_status = 'paid'`,
	},
	{
		Name: "aov",
		SQL: `SELECT SUM((oi.net_price + oi.tax_amount) * oi.quantity) * 1.0 / COUNT(DISTINCT o.order_id) AS aov
FROM order_items oi
JOIN orders o ON oi.order_id = o.order_id
WHERE o.order_status = 'paid'`,
	},
	{
		Name: "orders_by_channel",
		SQL: `SELECT c.acquisition_channel,
       COUNT(DISTINCT o.order_id) AS orders,
       SUM((oi.net_price + oi.tax_amount) * oi.quantity) AS revenue
FROM orders o
JOIN customers c ON o.customer_id = c.customer_id
JOIN order_items oi ON o.order_id = oi.order_id
WHERE o.order_status = 'paid'
GROUP BY c.acquisition_channel
ORDER BY revenue DESC`,
	},
	{
		Name: "gross_margin",
		SQL: `SELECT SUM((oi.net_price + oi.tax_amount) * oi.quantity) AS revenue,
       SUM(p.unit_cost * oi.quantity) AS cogs,
       (SUM((oi.net_price + oi.tax_amount) * oi.quantity) - SUM(p.unit_cost * oi.quantity)) * 1.0
         / SUM((oi.net_price + oi.tax_amount) * oi.quantity) * 100 AS gross_margin_percent
FROM order_items oi
JOIN orders o ON oi.order_id = o.order_id
JOIN products p ON oi.product_id = p.product_id
WHERE o.order_status = 'paid'`,
	},
}

// Agent answers analysis requests with an LLM and the query tool.
type Agent struct {
	completer llm.Completer
	runner    QueryRunner
	queries   []CannedQuery
	language  string
	logger    zerolog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the agent's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithLanguage sets the response language.
func WithLanguage(language string) Option {
	return func(a *Agent) { a.language = language }
}

// WithQueries replaces the canned query set.
func WithQueries(queries []CannedQuery) Option {
	return func(a *Agent) { a.queries = queries }
}

// New creates a data analysis agent.
func New(completer llm.Completer, runner QueryRunner, opts ...Option) *Agent {
	a := &Agent{
		completer: completer,
		runner:    runner,
		queries:   CannedQueries,
		language:  agents.DefaultLanguage,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze interprets request, runs every canned query and asks the model for a
// structured analysis of the results. Failures are returned as error results.
func (a *Agent) Analyze(ctx context.Context, request string) (result agents.Result) {
	tracker := agents.Track(agents.DataAnalystName, a.completer)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("analysis panicked")
			result = a.fail(ctx, tracker, fmt.Errorf("analysis panicked: %v", r))
		}
	}()

	progress.Transition(ctx, progress.DataAnalyst, progress.StateActive, progress.LevelInfo,
		"Data analyst: starting analysis")

	system := agents.AnalystSystemPrompt(a.language)
	interpretation, err := tracker.Complete(ctx, system, agents.AnalystRequestPrompt(request))
	if err != nil {
		return a.fail(ctx, tracker, fmt.Errorf("request interpretation failed: %w", err))
	}

	outputs := a.runQueries(ctx)

	analysis, err := tracker.Complete(ctx, system, agents.AnalystResultsPrompt(request, interpretation, outputs))
	if err != nil {
		return a.fail(ctx, tracker, fmt.Errorf("analysis failed: %w", err))
	}

	queryResults := make(map[string]any, len(outputs))
	for _, o := range outputs {
		queryResults[o.Name] = o.Output
	}

	progress.Emit(ctx, progress.Event{
		Level:   progress.LevelSuccess,
		Agent:   progress.DataAnalyst,
		State:   progress.StateCompleted,
		Message: "Data analyst: KPIs computed",
		Details: queryResults,
	})

	res := agents.Succeeded(agents.DataAnalystName, analysis)
	res.Metadata = map[string]any{
		"interpretation": interpretation,
		"queries":        queryResults,
	}
	return tracker.Finish(res)
}

func (a *Agent) runQueries(ctx context.Context) []agents.QueryOutput {
	progress.Transition(ctx, progress.QueryTool, progress.StateActive, progress.LevelInfo,
		"Query tool: running SQL queries")

	outputs := make([]agents.QueryOutput, 0, len(a.queries))
	failed := 0
	for i, q := range a.queries {
		progress.Info(ctx, progress.QueryTool, fmt.Sprintf("SQL query %d (%s): %s", i+1, q.Name, compact(q.SQL)))

		out := a.runQuery(ctx, q)
		if strings.HasPrefix(out, querytool.ErrorPrefix) || strings.HasPrefix(out, "Error:") {
			failed++
			a.logger.Warn().Str("query", q.Name).Str("result", out).Msg("canned query failed")
			progress.Emit(ctx, progress.Event{
				Level:   progress.LevelWarning,
				Agent:   progress.QueryTool,
				Message: fmt.Sprintf("Query tool: %s failed", q.Name),
				Details: map[string]any{"error": out},
			})
		}
		outputs = append(outputs, agents.QueryOutput{Name: q.Name, Output: out})
	}

	if failed == 0 {
		progress.Transition(ctx, progress.QueryTool, progress.StateCompleted, progress.LevelSuccess,
			"Query tool: all queries succeeded")
	} else {
		progress.Transition(ctx, progress.QueryTool, progress.StateCompleted, progress.LevelWarning,
			fmt.Sprintf("Query tool: %d of %d queries failed", failed, len(a.queries)))
	}
	return outputs
}

// runQuery isolates one query so a panic degrades to an inline error.
func (a *Agent) runQuery(ctx context.Context, q CannedQuery) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("Error: %v", r)
		}
	}()
	return a.runner.Run(ctx, q.SQL)
}

func (a *Agent) fail(ctx context.Context, tracker *agents.Tracker, err error) agents.Result {
	a.logger.Warn().Err(err).Msg("data analysis failed")
	progress.Transition(ctx, progress.DataAnalyst, progress.StateError, progress.LevelError,
		"Data analyst: "+err.Error())
	return tracker.Finish(agents.Failed(agents.DataAnalystName, err))
}

func compact(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
