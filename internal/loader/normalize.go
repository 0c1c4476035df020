package loader

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/verte-zerg/gaelchart/internal/logging"
	"github.com/verte-zerg/gaelchart/internal/model"
)

// Header names the loader looks up.
const (
	ColumnYear       = "Year"
	ColumnCounty     = "County"
	ColumnPercentage = "PercentageIrishSpeakers"
)

// Normalize keeps records with a non-empty year, county and a percentage that
// parses into [0, 100]. The second result counts discarded records.
func Normalize(records []Record) ([]model.Row, int) {
	rows := make([]model.Row, 0, len(records))
	dropped := 0
	for i, rec := range records {
		year := strings.TrimSpace(rec[ColumnYear])
		county := strings.TrimSpace(rec[ColumnCounty])
		raw := strings.TrimSpace(rec[ColumnPercentage])
		if year == "" || county == "" || raw == "" {
			dropped++
			continue
		}
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(pct) || pct < 0 || pct > 100 {
			logging.Debugf("dropping record %d (%s/%s): bad percentage %q", i+1, year, county, raw)
			dropped++
			continue
		}
		rows = append(rows, model.Row{Year: year, County: county, Percentage: pct})
	}
	return rows, dropped
}

// DistinctYears returns the sorted set of years present in rows.
func DistinctYears(rows []model.Row) []string {
	seen := make(map[string]struct{}, 8)
	years := make([]string, 0, 8)
	for _, r := range rows {
		if _, ok := seen[r.Year]; ok {
			continue
		}
		seen[r.Year] = struct{}{}
		years = append(years, r.Year)
	}
	sort.Strings(years)
	return years
}

// NewDataset builds a Dataset from normalized rows.
func NewDataset(rows []model.Row, source string, path model.LoadPath) model.Dataset {
	return model.Dataset{
		Rows:   rows,
		Years:  DistinctYears(rows),
		Source: source,
		Path:   path,
	}
}
