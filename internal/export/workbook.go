// Package export writes datasets as spreadsheets and chart images.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/gaelchart/internal/counties"
	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
	"github.com/verte-zerg/gaelchart/internal/stats"
)

// DeclinesSheet is the first sheet of every workbook.
const DeclinesSheet = "Declines"

// WriteWorkbook writes a Declines sheet followed by one sheet per dataset year.
// Percentage cells on year sheets are filled with their tier colour.
func WriteWorkbook(w io.Writer, ds model.Dataset, p *presenter.Presenter) (err error) {
	if p == nil {
		p = presenter.Default()
	}
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", DeclinesSheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := writeDeclines(f, stats.ComputeDeclines(ds), header); err != nil {
		return err
	}

	tierStyles, err := newTierStyles(f)
	if err != nil {
		return err
	}
	for _, frame := range p.BuildAllYearViews(ds) {
		if err := writeYear(f, frame.View, header, tierStyles); err != nil {
			return fmt.Errorf("sheet %s: %w", frame.Year, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeDeclines(f *excelize.File, declines []model.Decline, header int) error {
	headers := []string{"Rank", "County", "Decline (%)", "First (%)", "Last (%)", "Span"}
	if err := writeHeader(f, DeclinesSheet, headers, header); err != nil {
		return err
	}
	for i, d := range declines {
		values := []any{i + 1, d.County, round1(d.Decline), d.First, d.Last, d.Span}
		if err := writeRow(f, DeclinesSheet, i+2, values); err != nil {
			return err
		}
	}
	return f.SetColWidth(DeclinesSheet, "B", "B", 26)
}

func writeYear(f *excelize.File, view model.YearView, header int, tierStyles [7]int) error {
	sheet := sheetName(view.Year)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if view.Empty() {
		return f.SetCellValue(sheet, "A1", fmt.Sprintf("No data available for %s", view.Year))
	}
	if err := writeHeader(f, sheet, []string{"County", "Code", "Percentage", "Tier"}, header); err != nil {
		return err
	}
	for i, county := range view.Counties {
		row := i + 2
		code, _ := counties.Code(county)
		if err := writeRow(f, sheet, row, []any{county, code, view.Percentages[i], int(view.Tiers[i])}); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(3, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, tierStyles[clampTier(view.Tiers[i])-1]); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 26)
}

func newTierStyles(f *excelize.File) ([7]int, error) {
	var ids [7]int
	for i, hex := range presenter.Palette {
		fontColor := "000000"
		if i >= 3 {
			fontColor = "FFFFFF"
		}
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(hex, "#")}},
			Font:      &excelize.Font{Color: fontColor},
			NumFmt:    2,
			Alignment: &excelize.Alignment{Horizontal: "right"},
		})
		if err != nil {
			return ids, err
		}
		ids[i] = id
	}
	return ids, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := writeRow(f, sheet, 1, values); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// sheetName strips characters Excel rejects and caps the name at 31 runes.
func sheetName(year string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, year)
	if name == "" || strings.EqualFold(name, DeclinesSheet) {
		name = "Year " + name
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}

func clampTier(t model.Tier) model.Tier {
	return min(max(t, 1), 7)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
