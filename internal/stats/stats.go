package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/gaelchart/internal/model"
)

const sparkChars = " .:-=+*#%@"

// ComputeDeclines returns first-year minus last-year percentages for every county
// present in both years, largest decline first. Ties keep first-year source order.
// Repeated rows for a county within a year use the first occurrence.
func ComputeDeclines(ds model.Dataset) []model.Decline {
	if len(ds.Years) == 0 {
		return nil
	}
	first, last := ds.FirstYear(), ds.LastYear()
	span := fmt.Sprintf("%s-%s", first, last)

	lastByCounty := map[string]float64{}
	for _, row := range ds.Rows {
		if row.Year != last {
			continue
		}
		if _, seen := lastByCounty[row.County]; !seen {
			lastByCounty[row.County] = row.Percentage
		}
	}

	var declines []model.Decline
	seen := map[string]struct{}{}
	for _, row := range ds.Rows {
		if row.Year != first {
			continue
		}
		if _, dup := seen[row.County]; dup {
			continue
		}
		seen[row.County] = struct{}{}
		lastPct, ok := lastByCounty[row.County]
		if !ok {
			continue
		}
		declines = append(declines, model.Decline{
			County:  row.County,
			Decline: row.Percentage - lastPct,
			First:   row.Percentage,
			Last:    lastPct,
			Span:    span,
		})
	}
	sort.SliceStable(declines, func(i, j int) bool {
		return declines[i].Decline > declines[j].Decline
	})
	return declines
}

// TopDeclines returns at most limit entries of ComputeDeclines. A non-positive
// limit returns all of them.
func TopDeclines(ds model.Dataset, limit int) []model.Decline {
	declines := ComputeDeclines(ds)
	if limit > 0 && len(declines) > limit {
		declines = declines[:limit]
	}
	return declines
}

// CountyTrend returns the county's percentage for each dataset year. Years with no
// row for the county are NaN.
func CountyTrend(ds model.Dataset, county string) []float64 {
	out := make([]float64, len(ds.Years))
	for i := range out {
		out[i] = math.NaN()
	}
	for _, row := range ds.Rows {
		if row.County != county {
			continue
		}
		if idx := ds.YearIndex(row.Year); idx >= 0 && math.IsNaN(out[idx]) {
			out[idx] = row.Percentage
		}
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline. NaN values render as blanks.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.IsInf(minVal, 1) {
		return strings.Repeat(" ", len(values))
	}
	var b strings.Builder
	for _, v := range values {
		switch {
		case math.IsNaN(v):
			b.WriteByte(' ')
		case math.Abs(maxVal-minVal) < 1e-9:
			b.WriteByte(sparkChars[len(sparkChars)/2])
		default:
			pos := (v - minVal) / (maxVal - minVal)
			idx := int(math.Round(pos * float64(len(sparkChars)-1)))
			idx = min(max(idx, 0), len(sparkChars)-1)
			b.WriteByte(sparkChars[idx])
		}
	}
	return b.String()
}

// RenderSummary prints dataset totals.
func RenderSummary(w io.Writer, ds model.Dataset) error {
	if len(ds.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No rows loaded.")
		return err
	}
	counties := map[string]struct{}{}
	for _, row := range ds.Rows {
		counties[row.County] = struct{}{}
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Source: %s", ds.Source),
		fmt.Sprintf("Loaded via: %s", ds.Path),
		fmt.Sprintf("Rows: %d", len(ds.Rows)),
		fmt.Sprintf("Counties: %d", len(counties)),
		fmt.Sprintf("Years: %s", strings.Join(ds.Years, ", ")),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderDeclines prints the ranked decline table. trend, when non-nil, supplies a
// per-county series drawn as a sparkline column.
func RenderDeclines(w io.Writer, declines []model.Decline, trend func(county string) []float64) error {
	if len(declines) == 0 {
		_, err := fmt.Fprintln(w, "No counties present in both the first and last year.")
		return err
	}
	if _, err := fmt.Fprintf(w, "Greatest Irish language decline (%s)\n", declines[0].Span); err != nil {
		return err
	}

	headers := []string{"#", "County", "Decline", "First", "Last"}
	if trend != nil {
		headers = append(headers, "Trend")
	}
	rows := make([][]string, 0, len(declines))
	for i, d := range declines {
		row := []string{
			fmt.Sprintf("%d.", i+1),
			d.County,
			fmt.Sprintf("%.1f%%", d.Decline),
			fmt.Sprintf("%.1f%%", d.First),
			fmt.Sprintf("%.1f%%", d.Last),
		}
		if trend != nil {
			row = append(row, Sparkline(trend(d.County)))
		}
		rows = append(rows, row)
	}
	rightAlign := map[int]bool{0: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}
