package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-cypher/pkg/plan"
	"github.com/dd0wney/cluso-cypher/pkg/result"
	"github.com/dd0wney/cluso-cypher/pkg/value"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	planStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

const maxCellWidth = 60

// cell renders one value for a table; strings lose their quotes
func cell(v result.Value) string {
	if v.Kind == result.KindValue && v.Scalar.Kind() == value.KindString {
		s, _ := v.Scalar.AsString()
		return s
	}
	return v.String()
}

// tableModel builds a bubbles table sized to its content
func tableModel(header []string, rows [][]result.Value, focused bool) table.Model {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	trows := make([]table.Row, len(rows))
	for r, row := range rows {
		trow := make(table.Row, len(row))
		for i, v := range row {
			trow[i] = cell(v)
			if w := lipgloss.Width(trow[i]); w > widths[i] {
				widths[i] = min(w, maxCellWidth)
			}
		}
		trows[r] = trow
	}

	columns := make([]table.Column, len(header))
	for i, h := range header {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(trows),
		table.WithFocused(focused),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	if focused {
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Bold(false)
	} else {
		s.Selected = lipgloss.NewStyle()
	}
	t.SetStyles(s)

	// SetHeight counts the styled header, which the border makes two lines
	headerHeight := 1
	if len(columns) > 0 {
		headerHeight = lipgloss.Height(s.Header.Render(columns[0].Title))
	}
	t.SetHeight(max(len(trows), 1) + headerHeight)
	return t
}

// renderText is the printed form of a result: the plan for EXPLAIN and
// PROFILE, a table otherwise
func renderText(header []string, rows [][]result.Value) string {
	if len(header) == 1 && (header[0] == plan.PlanColumn || header[0] == plan.ProfileColumn) && len(rows) == 1 {
		return planStyle.Render(strings.TrimRight(cell(rows[0][0]), "\n"))
	}
	return tableModel(header, rows, false).View()
}
