package querytool

import (
	"context"
	"fmt"
	"strings"

	"github.com/a4way/report-agent-workflow/internal/tools"
)

// ToolName is the registry name of the query tool.
const ToolName = "sql_query"

// Description documents the data sources for prompts and tool listings.
const Description = `Runs SQL queries (SQLite dialect) over the e-commerce CSV files.

Available tables:
- customers: customer_id, signup_date, acquisition_channel, country, region, age_group
- orders: order_id, customer_id, order_date, order_status, payment_method, device, country
- order_items: order_item_id, order_id, product_id, quantity, unit_price, discount_amount, net_price, tax_amount
- products: product_id, category, unit_cost, unit_price
- marketing_spend: date, channel, campaign, spend
- web_analytics_daily: date, channel, sessions, users, transactions, revenue

Joins:
- orders.customer_id -> customers.customer_id
- order_items.order_id -> orders.order_id
- order_items.product_id -> products.product_id

Example: SELECT COUNT(*) AS total_orders FROM orders WHERE order_status = 'paid'`

var _ tools.Tool = (*QueryTool)(nil)

// Name implements tools.Tool.
func (q *QueryTool) Name() string { return ToolName }

// Description implements tools.Tool.
func (q *QueryTool) Description() string { return Description }

// Schema implements tools.Tool.
func (q *QueryTool) Schema() *tools.Schema {
	return &tools.Schema{
		Type: "object",
		Properties: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "SQL query to execute",
			},
		},
		Required: []string{"query"},
	}
}

// Execute implements tools.Tool. A failing query is reported through
// Result.Error, not the returned error.
func (q *QueryTool) Execute(ctx context.Context, input *tools.Input) (*tools.Result, error) {
	raw, ok := input.Data["query"]
	if !ok {
		return nil, fmt.Errorf("query is required")
	}
	query, ok := raw.(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must be a non-empty string")
	}

	table, err := q.Query(ctx, query)
	if err != nil {
		return &tools.Result{
			Success: false,
			Error:   ErrorPrefix + err.Error(),
		}, nil
	}

	return &tools.Result{
		Success: true,
		Data: map[string]any{
			"output":  Format(table),
			"columns": table.Columns,
			"rows":    len(table.Rows),
		},
	}, nil
}
