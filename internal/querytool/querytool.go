// Package querytool runs SQL against the configured CSV sources.
//
// Every call opens a private in-memory SQLite database, loads each CSV file
// as a table, executes the query and throws the database away. Calls share no
// state and are safe to run concurrently.
package querytool

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/a4way/report-agent-workflow/internal/metrics"
)

// ErrorPrefix starts every failure message returned by Run.
const ErrorPrefix = "Error executing query: "

// QueryTool executes SQL over a fixed mapping of table name to CSV file.
type QueryTool struct {
	tables map[string]string
	logger zerolog.Logger
}

// Option configures a QueryTool.
type Option func(*QueryTool)

// WithLogger sets the tool's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(q *QueryTool) { q.logger = l }
}

// New creates a query tool over tables (name -> CSV path). The mapping is copied.
func New(tables map[string]string, opts ...Option) *QueryTool {
	copied := make(map[string]string, len(tables))
	for name, path := range tables {
		copied[name] = path
	}

	q := &QueryTool{
		tables: copied,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Tables returns the configured table names in sorted order.
func (q *QueryTool) Tables() []string {
	names := make([]string, 0, len(q.tables))
	for name := range q.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes query and returns the formatted result. It never fails: errors
// are returned as text starting with ErrorPrefix.
func (q *QueryTool) Run(ctx context.Context, query string) string {
	table, err := q.Query(ctx, query)
	if err != nil {
		return ErrorPrefix + err.Error()
	}
	return Format(table)
}

// Query runs query against a freshly loaded database and returns the raw rows.
func (q *QueryTool) Query(ctx context.Context, query string) (*Table, error) {
	start := time.Now()
	table, err := q.query(ctx, query)

	metrics.QueryExecutions.WithLabelValues(metrics.Outcome(err)).Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		q.logger.Warn().Err(err).Dur("took", time.Since(start)).Msg("query failed")
		return nil, err
	}
	q.logger.Debug().Int("rows", len(table.Rows)).Int("columns", len(table.Columns)).
		Dur("took", time.Since(start)).Msg("query executed")
	return table, nil
}

func (q *QueryTool) query(ctx context.Context, query string) (*Table, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// each pooled connection to :memory: is a separate database; pin one
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()

	for _, name := range q.Tables() {
		loaded, err := loadCSV(ctx, conn, name, q.tables[name])
		if err != nil {
			return nil, fmt.Errorf("failed to load table %s: %w", name, err)
		}
		if !loaded {
			q.logger.Debug().Str("table", name).Str("path", q.tables[name]).Msg("csv source missing, table skipped")
		}
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTable(rows)
}

func scanTable(rows *sql.Rows) (*Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	table := &Table{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
