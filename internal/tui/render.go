package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/gaelchart/internal/controller"
	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
	"github.com/verte-zerg/gaelchart/internal/stats"
)

const fallbackWidth = 80

func (m *Model) renderChart() string {
	view := m.ctrl.CurrentView()
	if view.Empty() {
		return noDataStyle.Render(fmt.Sprintf("No data for %s", view.Year))
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	lines := stats.BarLines(view, width, !m.opts.NoColor)
	if m.layout.YAxisTitle != "" {
		lines = append([]string{headerStyle.Render(m.layout.YAxisTitle)}, lines...)
	}
	lines = append(lines, "", m.renderLegend())
	return strings.Join(lines, "\n")
}

func (m *Model) renderLegend() string {
	labels := m.presenter.Scale().Legend()
	parts := make([]string, 0, len(labels))
	for i, label := range labels {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(presenter.Palette[i])).Render("■")
		parts = append(parts, swatch+" "+label)
	}
	sep := "  "
	if m.layout.Mobile {
		sep = " "
	}
	return strings.Join(parts, sep)
}

func buildDeclineTable(declines []model.Decline, ctrl *controller.Controller, width, height int) table.Model {
	countyWidth := 8
	for _, d := range declines {
		countyWidth = max(countyWidth, runewidth.StringWidth(d.County))
	}
	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "County", Width: countyWidth},
		{Title: "Decline", Width: 8},
		{Title: "First", Width: 7},
		{Title: "Last", Width: 7},
		{Title: "Trend", Width: 10},
	}
	rows := make([]table.Row, 0, len(declines))
	for i, d := range declines {
		trend := ""
		if ctrl != nil {
			trend = stats.Sparkline(stats.CountyTrend(ctrl.Dataset(), d.County))
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			d.County,
			fmt.Sprintf("%.1f%%", d.Decline),
			fmt.Sprintf("%.1f%%", d.First),
			fmt.Sprintf("%.1f%%", d.Last),
			trend,
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	if width > 0 {
		t.SetWidth(width)
	}
	t.SetStyles(declineTableStyles())
	return t
}

func declineTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
