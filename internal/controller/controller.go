// Package controller owns the loaded dataset and the current year selection.
package controller

import (
	"errors"
	"fmt"
	"sync"

	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
	"github.com/verte-zerg/gaelchart/internal/stats"
)

// DefaultYear is selected on startup when the dataset contains it.
const DefaultYear = "2022"

// ErrUnknownYear is returned when a selection names a year outside the dataset.
var ErrUnknownYear = errors.New("unknown year")

// Controller routes selector and slider input to the presenter.
type Controller struct {
	mu          sync.RWMutex
	ds          model.Dataset
	presenter   *presenter.Presenter
	currentYear string
}

// New returns a Controller selecting defaultYear, or the latest year when the
// dataset lacks it.
func New(ds model.Dataset, p *presenter.Presenter, defaultYear string) *Controller {
	if p == nil {
		p = presenter.Default()
	}
	year := defaultYear
	if !ds.HasYear(year) {
		year = ds.LastYear()
	}
	return &Controller{ds: ds, presenter: p, currentYear: year}
}

// Dataset returns the loaded dataset.
func (c *Controller) Dataset() model.Dataset {
	return c.ds
}

// Presenter returns the presenter used for views.
func (c *Controller) Presenter() *presenter.Presenter {
	return c.presenter
}

// Years returns the sorted dataset years.
func (c *Controller) Years() []string {
	return append([]string(nil), c.ds.Years...)
}

// CurrentYear returns the selected year.
func (c *Controller) CurrentYear() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentYear
}

// SelectYear changes the selection from the year selector.
func (c *Controller) SelectYear(year string) error {
	if !c.ds.HasYear(year) {
		return fmt.Errorf("%w: %q", ErrUnknownYear, year)
	}
	c.mu.Lock()
	c.currentYear = year
	c.mu.Unlock()
	return nil
}

// SlideTo applies slider feedback by frame index.
func (c *Controller) SlideTo(index int) (string, error) {
	if index < 0 || index >= len(c.ds.Years) {
		return "", fmt.Errorf("%w: slider index %d out of range", ErrUnknownYear, index)
	}
	year := c.ds.Years[index]
	c.mu.Lock()
	c.currentYear = year
	c.mu.Unlock()
	return year, nil
}

// Step moves the selection by delta years, wrapping at either end.
func (c *Controller) Step(delta int) string {
	n := len(c.ds.Years)
	if n == 0 {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.ds.YearIndex(c.currentYear)
	if idx < 0 {
		idx = n - 1
	}
	idx = ((idx+delta)%n + n) % n
	c.currentYear = c.ds.Years[idx]
	return c.currentYear
}

// CurrentView builds the view for the selected year.
func (c *Controller) CurrentView() model.YearView {
	return c.presenter.BuildYearView(c.ds, c.CurrentYear())
}

// View builds the view for year.
func (c *Controller) View(year string) model.YearView {
	return c.presenter.BuildYearView(c.ds, year)
}

// Figure builds the chart figure for the selected year.
func (c *Controller) Figure(viewportWidth int, animated bool) presenter.Figure {
	return c.presenter.BuildFigure(c.ds, c.CurrentYear(), viewportWidth, animated)
}

// Layout computes the responsive layout for the selected year.
func (c *Controller) Layout(viewportWidth int, animated bool) presenter.LayoutSpec {
	return c.presenter.Layout(viewportWidth, c.CurrentYear(), animated)
}

// Declines ranks county declines; a non-positive limit returns all of them.
func (c *Controller) Declines(limit int) []model.Decline {
	return stats.TopDeclines(c.ds, limit)
}
