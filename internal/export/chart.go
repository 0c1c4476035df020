package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
)

const pngDPI = 96

// WriteBarChartPNG renders view as a PNG bar chart of widthPx by heightPx pixels.
func WriteBarChartPNG(w io.Writer, view model.YearView, widthPx, heightPx int) error {
	if widthPx <= 0 || heightPx <= 0 {
		return fmt.Errorf("invalid image size %dx%d", widthPx, heightPx)
	}
	p := plot.New()
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Y.Label.Text = "Percentage of Irish Speakers (%)"
	p.Y.Min = 0
	p.Y.Max = 105
	p.Add(plotter.NewGrid())

	if view.Empty() {
		p.Title.Text = fmt.Sprintf("No data available for %s", view.Year)
	} else {
		p.Title.Text = fmt.Sprintf("Irish Language Speakers by County (%s)", view.Year)
		barWidth := vg.Points(math.Max(4, float64(pixelsToPoints(widthPx))/float64(len(view.Counties)+2)*0.8))
		for i, pct := range view.Percentages {
			bar, err := plotter.NewBarChart(plotter.Values{pct}, barWidth)
			if err != nil {
				return fmt.Errorf("bar %s: %w", view.Counties[i], err)
			}
			bar.XMin = float64(i)
			bar.Color = hexColor(presenter.Color(view.Tiers[i]))
			bar.LineStyle.Width = vg.Points(0.5)
			bar.LineStyle.Color = color.RGBA{A: 77}
			p.Add(bar)
		}
		p.NominalX(view.Counties...)
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	writer, err := p.WriterTo(pixelsToPoints(widthPx), pixelsToPoints(heightPx), "png")
	if err != nil {
		return err
	}
	_, err = writer.WriteTo(w)
	return err
}

func pixelsToPoints(px int) vg.Length {
	return vg.Length(px) * vg.Inch / pngDPI
}

func hexColor(hex string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
