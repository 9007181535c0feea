package querytool

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Result size limits for the full tabular dump. Anything larger is summarised.
const (
	MaxDumpRows    = 20
	MaxDumpColumns = 10
	PreviewRows    = 10
)

// NoDataMessage is returned for queries that produce no rows.
const NoDataMessage = "No data found."

// Table is a materialised query result.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Format renders a query result as text for use in prompts.
func Format(t *Table) string {
	if t == nil || len(t.Rows) == 0 {
		return NoDataMessage
	}

	if len(t.Rows) <= MaxDumpRows && len(t.Columns) <= MaxDumpColumns {
		return renderTable(t.Columns, t.Rows)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Query executed successfully. %d rows, %d columns.\n", len(t.Rows), len(t.Columns))
	fmt.Fprintf(&b, "Columns: %s\n\n", strings.Join(t.Columns, ", "))
	b.WriteString("First 10 rows:\n")

	preview := t.Rows
	if len(preview) > PreviewRows {
		preview = preview[:PreviewRows]
	}
	b.WriteString(renderTable(t.Columns, preview))

	if len(t.Rows) > PreviewRows {
		fmt.Fprintf(&b, "\n\n... and %d more rows", len(t.Rows)-PreviewRows)
	}
	return b.String()
}

// renderTable right-aligns every column to its widest cell.
func renderTable(columns []string, rows [][]any) string {
	cells := make([][]string, len(rows))
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len([]rune(c))
	}
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i := range columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			cells[r][i] = FormatValue(v)
			if n := len([]rune(cells[r][i])); n > widths[i] {
				widths[i] = n
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, padRow(columns, widths))
	for _, row := range cells {
		lines = append(lines, padRow(row, widths))
	}
	return strings.Join(lines, "\n")
}

func padRow(values []string, widths []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		pad := widths[i] - len([]rune(v))
		if pad < 0 {
			pad = 0
		}
		parts[i] = strings.Repeat(" ", pad) + v
	}
	return strings.Join(parts, " ")
}

// FormatValue renders one result cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(val, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', 2, 32)
	case int64:
		return strconv.FormatInt(val, 10)
	case []byte:
		return string(val)
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}
