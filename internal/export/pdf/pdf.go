// Package pdf renders finished workflow runs as PDF reports.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/a4way/report-agent-workflow/internal/progress"
	"github.com/a4way/report-agent-workflow/internal/workflow"
)

// Title is the heading on the first page.
const Title = "Multi-Agent Analysis Report"

const notAvailable = "N/A"

var agentLabels = map[progress.Agent]string{
	progress.Orchestrator:    "Orchestrator",
	progress.DataAnalyst:     "Data Analyst",
	progress.QueryTool:       "Query Tool",
	progress.ReportGenerator: "Report Generator",
}

// Renderer produces the PDF report of a run.
type Renderer struct {
	outputDir string
	compress  bool
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithOutputDir also writes every exported report into dir.
func WithOutputDir(dir string) Option {
	return func(r *Renderer) { r.outputDir = dir }
}

// WithCompression toggles stream compression. It is on by default.
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

// WithClock overrides time.Now for footers and file names.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithLogger sets the renderer's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// NewRenderer creates a renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		compress: true,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FileName returns the download name for rec: report_<demoId>_<timestamp>.pdf.
func (r *Renderer) FileName(rec workflow.Record) string {
	demo := rec.DemoID
	if demo == "" {
		demo = "unknown"
	}
	return fmt.Sprintf("report_%s_%s.pdf", demo, r.now().Format("20060102_150405"))
}

// Export renders rec and, when an output directory is configured, stores a copy.
func (r *Renderer) Export(rec workflow.Record) (string, []byte, error) {
	data, err := r.Render(rec)
	if err != nil {
		return "", nil, err
	}

	name := r.FileName(rec)
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("failed to create report directory: %w", err)
		}
		path := filepath.Join(r.outputDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", nil, fmt.Errorf("failed to write report: %w", err)
		}
		r.logger.Info().Str("workflow_id", rec.ID).Str("path", path).Msg("pdf report written")
	}
	return name, data, nil
}

// Render builds the PDF document for rec.
func (r *Renderer) Render(rec workflow.Record) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(Title, true)
	pdf.SetCreator("report-agent-workflow", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(bodyFont, "I", 8)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(bodyFont, "B", 22)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(0, 12, tr(Title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section(pdf, tr, "Workflow information")
	infoTable(pdf, tr, [][2]string{
		{"Query:", orNA(rec.Query)},
		{"Demo ID:", orNA(rec.DemoID)},
		{"Started:", formatTime(&rec.StartedAt)},
		{"Completed:", formatTime(rec.CompletedAt)},
		{"Status:", orNA(string(rec.Status))},
	})
	pdf.Ln(6)

	section(pdf, tr, "Agent status")
	statusTable(pdf, tr, rec)
	pdf.Ln(8)

	section(pdf, tr, "Analysis result")
	pdf.SetTextColor(17, 24, 39)
	body := rec.FinalResult
	if body == "" {
		body = "No analysis results available."
	}
	writeMarkdown(pdf, tr, body)
	pdf.Ln(4)

	if rec.AnalysisResult != nil {
		section(pdf, tr, "Additional details")
		pdf.SetFont(bodyFont, "", bodySize)
		pdf.SetTextColor(17, 24, 39)
		pdf.MultiCell(0, bodyLine, tr("Analysis status: "+orNA(rec.AnalysisResult.Status)), "", "L", false)
		if rec.ReportResult != nil && rec.ReportResult.WordCount > 0 {
			pdf.MultiCell(0, bodyLine, tr(fmt.Sprintf("Words in report: %d", rec.ReportResult.WordCount)), "", "L", false)
		}
		if rec.ExecutiveSummary != "" {
			pdf.Ln(2)
			pdf.SetFont(bodyFont, "B", bodySize)
			pdf.MultiCell(0, bodyLine, tr("Executive summary"), "", "L", false)
			pdf.SetFont(bodyFont, "", bodySize)
			pdf.MultiCell(0, bodyLine, tr(rec.ExecutiveSummary), "", "L", false)
		}
		pdf.Ln(4)
	}

	pdf.Ln(8)
	pdf.SetFont(bodyFont, "I", 9)
	pdf.SetTextColor(107, 114, 128)
	footer := fmt.Sprintf("Generated on %s at %s by the multi-agent workflow",
		r.now().Format("02.01.2006"), r.now().Format("15:04"))
	pdf.MultiCell(0, 5, tr(footer), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont(bodyFont, "B", 14)
	pdf.SetTextColor(59, 130, 246)
	pdf.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func infoTable(pdf *fpdf.Fpdf, tr func(string) string, rows [][2]string) {
	const labelW, valueW, lineH = 45.0, 125.0, 6.0

	pdf.SetDrawColor(209, 213, 219)
	pdf.SetFillColor(243, 244, 246)
	for _, row := range rows {
		value := tr(row[1])
		pdf.SetFont(bodyFont, "", 10)
		lines := pdf.SplitText(value, valueW-4)
		if len(lines) == 0 {
			lines = []string{""}
		}
		h := lineH * float64(len(lines))

		x, y := pdf.GetXY()
		pdf.SetFont(bodyFont, "B", 10)
		pdf.SetTextColor(55, 65, 81)
		pdf.CellFormat(labelW, h, tr(row[0]), "1", 0, "L", true, 0, "")

		pdf.SetFont(bodyFont, "", 10)
		pdf.SetTextColor(17, 24, 39)
		pdf.SetXY(x+labelW, y)
		pdf.MultiCell(valueW, lineH, value, "1", "L", false)
		pdf.SetXY(x, y+h)
	}
}

func statusTable(pdf *fpdf.Fpdf, tr func(string) string, rec workflow.Record) {
	const agentW, statusW, rowH = 80.0, 50.0, 7.0

	pdf.SetDrawColor(209, 213, 219)
	pdf.SetFillColor(59, 130, 246)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(bodyFont, "B", 10)
	pdf.CellFormat(agentW, rowH, "Agent", "1", 0, "L", true, 0, "")
	pdf.CellFormat(statusW, rowH, "Status", "1", 1, "C", true, 0, "")

	pdf.SetFont(bodyFont, "", 10)
	pdf.SetTextColor(17, 24, 39)
	for _, a := range progress.Agents {
		status := "unknown"
		if s, ok := rec.AgentStatus[a.StatusKey()]; ok && s != "" {
			status = string(s)
		}
		pdf.CellFormat(agentW, rowH, tr(agentLabels[a]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(statusW, rowH, tr(status), "1", 1, "C", false, 0, "")
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return notAvailable
	}
	return t.Format("2006-01-02 15:04:05")
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
