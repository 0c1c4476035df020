// Package presenter turns a Dataset into per-year views, animation frames and
// chart layouts for the rendering sink.
package presenter

import (
	"github.com/verte-zerg/gaelchart/internal/model"
)

// Presenter builds views with a fixed tier scale. It holds no mutable state.
type Presenter struct {
	scale      Scale
	breakpoint int
}

// New returns a Presenter. A non-positive breakpoint selects DefaultBreakpoint.
func New(scale Scale, breakpoint int) *Presenter {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	return &Presenter{scale: scale, breakpoint: breakpoint}
}

// Default returns a Presenter with stock thresholds and breakpoint.
func Default() *Presenter {
	return New(DefaultScale(), DefaultBreakpoint)
}

// Scale returns the tier scale.
func (p *Presenter) Scale() Scale { return p.scale }

// BuildYearView filters ds to year, keeping source order.
func (p *Presenter) BuildYearView(ds model.Dataset, year string) model.YearView {
	view := model.YearView{Year: year}
	for _, row := range ds.Rows {
		if row.Year != year {
			continue
		}
		view.Counties = append(view.Counties, row.County)
		view.Percentages = append(view.Percentages, row.Percentage)
		view.Tiers = append(view.Tiers, p.scale.Tier(row.Percentage))
	}
	return view
}

// BuildAllYearViews returns one frame per dataset year in sorted order, empty views included.
func (p *Presenter) BuildAllYearViews(ds model.Dataset) []model.YearFrame {
	frames := make([]model.YearFrame, 0, len(ds.Years))
	for _, year := range ds.Years {
		frames = append(frames, model.YearFrame{Year: year, View: p.BuildYearView(ds, year)})
	}
	return frames
}

// BuildYearView uses the default presenter.
func BuildYearView(ds model.Dataset, year string) model.YearView {
	return Default().BuildYearView(ds, year)
}

// BuildAllYearViews uses the default presenter.
func BuildAllYearViews(ds model.Dataset) []model.YearFrame {
	return Default().BuildAllYearViews(ds)
}
