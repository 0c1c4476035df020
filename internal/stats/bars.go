package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
)

const (
	minBarWidth         = 10
	maxLabelWidth       = 24
	valueColumnWidth    = 7
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
	barScaleMax         = 100.0
)

var partialBlocks = []rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉'}

// BarOptions controls terminal bar rendering.
type BarOptions struct {
	// Width is the total line width. Zero uses the terminal width.
	Width int
	// ForceColor colours bars even when w is not a terminal.
	ForceColor bool
	// NoColor disables colour.
	NoColor bool
}

// RenderYearBars prints one horizontal bar per county, coloured by tier.
func RenderYearBars(w io.Writer, view model.YearView, opts BarOptions) error {
	if view.Empty() {
		_, err := fmt.Fprintf(w, "No data for %s\n", view.Year)
		return err
	}
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}
	useColor := !opts.NoColor && shouldUseColor(w, opts.ForceColor)
	if _, err := fmt.Fprintf(w, "Irish speakers by county (%s)\n", view.Year); err != nil {
		return err
	}
	for _, line := range BarLines(view, width, useColor) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// BarLines returns the bar rows for view sized to totalWidth cells.
func BarLines(view model.YearView, totalWidth int, useColor bool) []string {
	labelWidth := 0
	for _, county := range view.Counties {
		labelWidth = max(labelWidth, displayWidth(county))
	}
	labelWidth = min(labelWidth, maxLabelWidth)
	barWidth := BarWidthFor(totalWidth, labelWidth)

	lines := make([]string, 0, len(view.Counties))
	for i, county := range view.Counties {
		var b strings.Builder
		b.WriteString(padCell(truncate(county, labelWidth), labelWidth, false))
		b.WriteString(" │")
		bar := barString(view.Percentages[i], barWidth)
		if useColor {
			b.WriteString(ansiColor(presenter.Color(view.Tiers[i])))
			b.WriteString(bar)
			b.WriteString(colorReset)
		} else {
			b.WriteString(bar)
		}
		b.WriteString(padCell(fmt.Sprintf("%.1f%%", view.Percentages[i]), valueColumnWidth, true))
		lines = append(lines, b.String())
	}
	return lines
}

// BarWidthFor computes the bar area that fits beside labels of labelWidth.
func BarWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minBarWidth
	}
	return max(totalWidth-labelWidth-2-valueColumnWidth, minBarWidth)
}

func barString(pct float64, width int) string {
	pct = math.Max(0, math.Min(pct, barScaleMax))
	eighths := int(math.Round(pct / barScaleMax * float64(width*8)))
	full := eighths / 8
	var b strings.Builder
	b.WriteString(strings.Repeat("█", full))
	if rem := eighths % 8; rem > 0 && full < width {
		b.WriteRune(partialBlocks[rem])
		full++
	}
	b.WriteString(strings.Repeat(" ", width-full))
	return b.String()
}

// ansiColor converts "#rrggbb" into a truecolor foreground sequence.
func ansiColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return ""
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", v>>16&0xff, v>>8&0xff, v&0xff)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
