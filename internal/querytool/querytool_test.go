package querytool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a4way/report-agent-workflow/internal/tools"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func gridCSV(rows, cols int) string {
	var b strings.Builder
	for c := 0; c < cols; c++ {
		if c > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "c%d", c)
	}
	b.WriteString("\n")
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%d", r*cols+c)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func ordersFixture(t *testing.T) *QueryTool {
	t.Helper()
	dir := t.TempDir()
	orders := writeCSV(t, dir, "orders.csv", `order_id,customer_id,order_date,order_status,payment_method,device,country
1,10,2024-01-05,paid,card,mobile,DE
2,11,2024-01-06,paid,paypal,desktop,AT
3,12,2024-01-07,cancelled,card,mobile,DE
`)
	items := writeCSV(t, dir, "order_items.csv", `order_item_id,order_id,product_id,quantity,unit_price,discount_amount,net_price,tax_amount
1,1,100,1,400.00,0,400.00,76.00
2,2,101,1,440.00,0,440.00,84.00
3,3,100,1,200.00,,200.00,38.00
`)
	return New(map[string]string{"orders": orders, "order_items": items})
}

func TestFormatBoundary(t *testing.T) {
	tests := []struct {
		name    string
		rows    int
		cols    int
		summary bool
	}{
		{"exactly 20x10", 20, 10, false},
		{"21 rows", 21, 10, true},
		{"11 columns", 20, 11, true},
		{"single cell", 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			q := New(map[string]string{"grid": writeCSV(t, dir, "grid.csv", gridCSV(tt.rows, tt.cols))})

			out := q.Run(context.Background(), "SELECT * FROM grid")
			if tt.summary {
				assert.True(t, strings.HasPrefix(out,
					fmt.Sprintf("Query executed successfully. %d rows, %d columns.\n", tt.rows, tt.cols)), out)
				assert.Contains(t, out, "First 10 rows:\n")
				assert.Contains(t, out, fmt.Sprintf("... and %d more rows", tt.rows-10))
			} else {
				assert.NotContains(t, out, "Query executed successfully")
				assert.Len(t, strings.Split(out, "\n"), tt.rows+1)
			}
		})
	}
}

func TestSummaryListsColumnsAndPreview(t *testing.T) {
	dir := t.TempDir()
	q := New(map[string]string{"grid": writeCSV(t, dir, "grid.csv", gridCSV(25, 2))})

	out := q.Run(context.Background(), "SELECT * FROM grid")
	assert.Contains(t, out, "Columns: c0, c1\n\n")
	assert.True(t, strings.HasSuffix(out, "\n\n... and 15 more rows"), out)

	preview := strings.SplitN(out, "First 10 rows:\n", 2)[1]
	preview = strings.SplitN(preview, "\n\n", 2)[0]
	assert.Len(t, strings.Split(preview, "\n"), 11)
}

func TestRunEmptyResult(t *testing.T) {
	q := ordersFixture(t)
	out := q.Run(context.Background(), "SELECT * FROM orders WHERE order_status = 'refunded'")
	assert.Equal(t, NoDataMessage, out)
}

func TestRunNonexistentTable(t *testing.T) {
	q := ordersFixture(t)
	out := q.Run(context.Background(), "SELECT * FROM does_not_exist")
	assert.True(t, strings.HasPrefix(out, ErrorPrefix), out)
	assert.Contains(t, strings.ToLower(out), "error")
}

func TestRunSyntaxError(t *testing.T) {
	q := ordersFixture(t)
	out := q.Run(context.Background(), "SELEKT nothing")
	assert.True(t, strings.HasPrefix(out, ErrorPrefix), out)
}

func TestRunRevenueAndAOV(t *testing.T) {
	q := ordersFixture(t)

	out := q.Run(context.Background(), `
		SELECT SUM(oi.net_price + oi.tax_amount) AS total_revenue
		FROM order_items oi JOIN orders o ON oi.order_id = o.order_id
		WHERE o.order_status = 'paid'`)
	assert.Equal(t, "total_revenue\n      1000.00", out)

	out = q.Run(context.Background(), `
		SELECT SUM(oi.net_price + oi.tax_amount) * 1.0 / COUNT(DISTINCT o.order_id) AS aov
		FROM order_items oi JOIN orders o ON oi.order_id = o.order_id
		WHERE o.order_status = 'paid'`)
	assert.Equal(t, "   aov\n500.00", out)
}

func TestMissingSourceIsSkipped(t *testing.T) {
	dir := t.TempDir()
	q := New(map[string]string{
		"present": writeCSV(t, dir, "present.csv", "id\n1\n2\n"),
		"absent":  filepath.Join(dir, "absent.csv"),
	})

	assert.Equal(t, "COUNT(*)\n       2", q.Run(context.Background(), "SELECT COUNT(*) FROM present"))
	assert.True(t, strings.HasPrefix(q.Run(context.Background(), "SELECT * FROM absent"), ErrorPrefix))
}

func TestByteOrderMarkIsStripped(t *testing.T) {
	dir := t.TempDir()
	q := New(map[string]string{"orders": writeCSV(t, dir, "orders.csv", "\uFEFForder_id,status\n7,paid\n")})

	table, err := q.Query(context.Background(), "SELECT order_id FROM orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.EqualValues(t, 7, table.Rows[0][0])
}

func TestTypeInference(t *testing.T) {
	dir := t.TempDir()
	q := New(map[string]string{"mixed": writeCSV(t, dir, "mixed.csv",
		"i,f,s,e\n1,1.5,a,\n2,2,b,\n,3.25,c,\n")})

	table, err := q.Query(context.Background(),
		"SELECT typeof(i), typeof(f), typeof(s), typeof(e) FROM mixed ORDER BY rowid")
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, []any{"integer", "real", "text", "null"}, table.Rows[0])
	assert.Equal(t, []any{"integer", "real", "text", "null"}, table.Rows[1])
	assert.Equal(t, []any{"null", "real", "text", "null"}, table.Rows[2])
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{float64(3), "3.00"},
		{1234.5678, "1234.57"},
		{int64(42), "42"},
		{"text", "text"},
		{[]byte("bytes"), "bytes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestFormatRightAligns(t *testing.T) {
	out := Format(&Table{
		Columns: []string{"channel", "n"},
		Rows:    [][]any{{"seo", int64(5)}, {"paid_social", int64(120)}},
	})
	assert.Equal(t, "    channel   n\n        seo   5\npaid_social 120", out)
}

func TestConcurrentRunsAreIndependent(t *testing.T) {
	q := ordersFixture(t)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = q.Run(context.Background(), "SELECT COUNT(*) AS n FROM orders")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "n\n3", r)
	}
}

func TestToolExecute(t *testing.T) {
	q := ordersFixture(t)

	registry := tools.NewRegistry()
	registry.Register(q)

	res, err := registry.Execute(context.Background(), &tools.Input{
		Name: ToolName,
		Data: map[string]any{"query": "SELECT COUNT(*) AS n FROM orders"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "n\n3", res.Data["output"])
	assert.Equal(t, 1, res.Data["rows"])

	res, err = registry.Execute(context.Background(), &tools.Input{
		Name: ToolName,
		Data: map[string]any{"query": "SELECT * FROM nope"},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, ErrorPrefix)

	_, err = registry.Execute(context.Background(), &tools.Input{Name: ToolName, Data: map[string]any{}})
	assert.Error(t, err)
}
