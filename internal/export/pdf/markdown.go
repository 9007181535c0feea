package pdf

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	bodyFont     = "Helvetica"
	codeFont     = "Courier"
	bodySize     = 10.5
	bodyLine     = 5.5
	listIndent   = 6.0
	headingBelow = 2.0
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// mdWriter renders a markdown document into the flowing body of a page.
type mdWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	src    []byte
	margin float64
}

func writeMarkdown(pdf *fpdf.Fpdf, tr func(string) string, body string) {
	src := []byte(body)
	left, _, _, _ := pdf.GetMargins()
	w := &mdWriter{pdf: pdf, tr: tr, src: src, margin: left}

	doc := markdown.Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, 0)
	}
	pdf.SetLeftMargin(left)
}

func (w *mdWriter) block(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		size := map[int]float64{1: 15, 2: 13, 3: 12}[node.Level]
		if size == 0 {
			size = 11
		}
		w.pdf.Ln(headingBelow)
		w.pdf.SetFont(bodyFont, "B", size)
		w.inlines(node, "B", size)
		w.pdf.Ln(size/2 + headingBelow)

	case *ast.Paragraph, *ast.TextBlock:
		w.pdf.SetFont(bodyFont, "", bodySize)
		w.inlines(node, "", bodySize)
		w.pdf.Ln(bodyLine)
		if _, ok := n.(*ast.Paragraph); ok {
			w.pdf.Ln(bodyLine / 2)
		}

	case *ast.List:
		w.list(node, depth)
		w.pdf.Ln(bodyLine / 2)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(w.src))
		}
		w.pdf.SetFont(codeFont, "", 9)
		w.pdf.MultiCell(0, 4.5, w.tr(strings.TrimRight(b.String(), "\n")), "", "L", false)
		w.pdf.Ln(bodyLine / 2)

	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c, depth+1)
		}

	case *ast.ThematicBreak:
		left, _, right, _ := w.pdf.GetMargins()
		pageW, _ := w.pdf.GetPageSize()
		y := w.pdf.GetY() + 2
		w.pdf.SetDrawColor(209, 213, 219)
		w.pdf.Line(left, y, pageW-right, y)
		w.pdf.Ln(5)

	case *east.Table:
		w.table(node)

	default:
		if n.HasChildren() {
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				w.block(c, depth)
			}
		}
	}
}

func (w *mdWriter) list(list *ast.List, depth int) {
	indent := w.margin + listIndent*float64(depth+1)
	number := list.Start
	if number == 0 {
		number = 1
	}

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		bullet := "-"
		if list.IsOrdered() {
			bullet = fmt.Sprintf("%d.", number)
			number++
		}

		w.pdf.SetLeftMargin(indent - listIndent)
		w.pdf.SetX(indent - listIndent)
		w.pdf.SetFont(bodyFont, "", bodySize)
		w.pdf.CellFormat(listIndent, bodyLine, bullet, "", 0, "L", false, 0, "")
		w.pdf.SetLeftMargin(indent)

		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				w.list(sub, depth+1)
				continue
			}
			w.block(c, depth+1)
		}
	}
	w.pdf.SetLeftMargin(w.margin + listIndent*float64(depth))
	w.pdf.SetX(w.margin + listIndent*float64(depth))
}

// table renders rows as pipe separated text; cell widths are not computed.
func (w *mdWriter) table(t *east.Table) {
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		style := ""
		if _, ok := row.(*east.TableHeader); ok {
			style = "B"
		}
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(w.plain(cell)))
		}
		w.pdf.SetFont(bodyFont, style, 9.5)
		w.pdf.MultiCell(0, 5, w.tr(strings.Join(cells, "  |  ")), "", "L", false)
	}
	w.pdf.Ln(bodyLine / 2)
}

// inlines writes the inline children of n with fpdf's flowing Write so mixed
// styles wrap together.
func (w *mdWriter) inlines(n ast.Node, style string, size float64) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.inline(c, style, size)
	}
}

func (w *mdWriter) inline(n ast.Node, style string, size float64) {
	switch node := n.(type) {
	case *ast.Text:
		w.pdf.SetFont(bodyFont, style, size)
		w.pdf.Write(bodyLine, w.tr(string(node.Segment.Value(w.src))))
		if node.HardLineBreak() {
			w.pdf.Ln(bodyLine)
		} else if node.SoftLineBreak() {
			w.pdf.Write(bodyLine, " ")
		}

	case *ast.String:
		w.pdf.SetFont(bodyFont, style, size)
		w.pdf.Write(bodyLine, w.tr(string(node.Value)))

	case *ast.Emphasis:
		add := "I"
		if node.Level >= 2 {
			add = "B"
		}
		w.inlines(node, mergeStyle(style, add), size)

	case *ast.CodeSpan:
		w.pdf.SetFont(codeFont, "", size-1)
		w.pdf.Write(bodyLine, w.tr(w.plain(node)))

	case *ast.AutoLink:
		w.pdf.SetFont(bodyFont, mergeStyle(style, "U"), size)
		w.pdf.Write(bodyLine, w.tr(string(node.URL(w.src))))

	default:
		w.inlines(n, style, size)
	}
}

// plain returns the text content of n without markup.
func (w *mdWriter) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(w.src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func mergeStyle(style, add string) string {
	if strings.Contains(style, add) {
		return style
	}
	return style + add
}
