// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bizflow_workflows_started_total",
			Help: "Total number of workflow runs started",
		},
	)

	WorkflowsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizflow_workflows_finished_total",
			Help: "Total number of workflow runs finished, by final status",
		},
		[]string{"status"},
	)

	WorkflowsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bizflow_workflows_active",
			Help: "Workflow runs currently executing",
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizflow_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	CompletionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizflow_completion_calls_total",
			Help: "Completion calls issued by agents, by agent and outcome",
		},
		[]string{"agent", "outcome"},
	)

	QueryExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizflow_query_executions_total",
			Help: "Query tool executions, by outcome",
		},
		[]string{"outcome"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bizflow_query_duration_seconds",
			Help:    "Query tool execution time including CSV loading",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Outcome maps an error to its label value.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
