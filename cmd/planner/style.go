package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"liftplan/internal/search"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(14)

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1)
)

func row(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value))
}

// renderSummary draws the result box printed after a search.
func renderSummary(r *runResult) string {
	var status string
	switch res := r.Result.(type) {
	case search.Success:
		status = okStyle.Render(fmt.Sprintf("solved, plan length %d", res.Plan.Len()))
	case search.Failure:
		status = failStyle.Render("unsolved: " + res.Reason.String())
	}

	rows := []string{
		titleStyle.Render(r.Task.DomainName + " / " + r.Task.ProblemName),
		row("result", status),
		row("engine", r.Engine),
		row("generator", r.Generator),
	}
	if r.Engine != search.BreadthFirst {
		rows = append(rows, row("heuristic", r.Heuristic))
	}
	rows = append(rows,
		row("expanded", r.Stats.Expanded),
		row("evaluated", r.Stats.Evaluated),
		row("generated", r.Stats.Generated),
		row("dead ends", r.Stats.DeadEnds),
		row("time", r.Elapsed.Round(time.Microsecond)),
	)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderTable lays out rows under a bold header with padded columns.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = c + strings.Repeat(" ", widths[i]-len(c))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(line(header)))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(line(r))
		b.WriteByte('\n')
	}
	return b.String()
}
