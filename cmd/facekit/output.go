package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// printer writes styled CLI output. Styles degrade to plain text when w is
// not a terminal.
type printer struct {
	w io.Writer

	title   lipgloss.Style
	bold    lipgloss.Style
	ok      lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		bold:    r.NewStyle().Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
	}
}

func (p *printer) Title(s string) {
	fmt.Fprintln(p.w, p.title.Render(s))
}

func (p *printer) Println(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// Table prints rows under headers with padded columns.
func (p *printer) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, col := range row {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	line := func(cols []string) string {
		var b strings.Builder
		for i, col := range cols {
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s  ", widths[i], col)
			}
		}
		return strings.TrimRight(b.String(), " ")
	}

	fmt.Fprintln(p.w, p.bold.Render(line(headers)))
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w)
	}
	fmt.Fprintln(p.w, p.muted.Render(line(seps)))
	for _, row := range rows {
		fmt.Fprintln(p.w, line(row))
	}
}
