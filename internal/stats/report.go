package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/store"
)

// Report contains precomputed data for offline decline rendering.
type Report struct {
	Dataset  model.Dataset
	Load     model.LoadRecord
	Declines []model.Decline
}

// BuildReport loads the last stored dataset and ranks its declines.
func BuildReport(ctx context.Context, st *store.Store, top int) (Report, error) {
	ds, rec, err := st.LatestDataset(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Dataset:  ds,
		Load:     rec,
		Declines: TopDeclines(ds, top),
	}, nil
}

// Trend returns a CountyTrend lookup bound to the report dataset.
func (r Report) Trend() func(string) []float64 {
	return func(county string) []float64 {
		return CountyTrend(r.Dataset, county)
	}
}

// RenderLoads prints load history, newest first.
func RenderLoads(w io.Writer, loads []model.LoadRecord) error {
	if len(loads) == 0 {
		_, err := fmt.Fprintln(w, "No loads recorded.")
		return err
	}
	headers := []string{"ID", "Finished", "Path", "Rows", "Years", "Took", "Result"}
	rows := make([][]string, 0, len(loads))
	for _, l := range loads {
		result := "ok"
		if l.Error != "" {
			result = truncate(l.Error, 60)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", l.ID),
			l.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			string(l.Path),
			fmt.Sprintf("%d", l.Rows),
			fmt.Sprintf("%d", l.Years),
			l.FinishedAt.Sub(l.StartedAt).Round(time.Millisecond).String(),
			result,
		})
	}
	rightAlign := map[int]bool{0: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
