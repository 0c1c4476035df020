// Package model defines shared data structures.
package model

import "time"

// Row is one (year, county, percentage) observation.
type Row struct {
	Year       string
	County     string
	Percentage float64
}

// LoadPath names the route that produced a dataset.
type LoadPath string

const (
	PathPrimary  LoadPath = "primary"
	PathFallback LoadPath = "fallback"
	PathStore    LoadPath = "store"
)

// Dataset holds normalized rows plus the sorted distinct years.
type Dataset struct {
	Rows   []Row
	Years  []string
	Source string
	Path   LoadPath
}

// HasYear reports whether year is one of the dataset years.
func (d Dataset) HasYear(year string) bool {
	return d.YearIndex(year) >= 0
}

// YearIndex returns the position of year in Years or -1.
func (d Dataset) YearIndex(year string) int {
	for i, y := range d.Years {
		if y == year {
			return i
		}
	}
	return -1
}

// FirstYear returns the earliest year or "" for an empty dataset.
func (d Dataset) FirstYear() string {
	if len(d.Years) == 0 {
		return ""
	}
	return d.Years[0]
}

// LastYear returns the latest year or "" for an empty dataset.
func (d Dataset) LastYear() string {
	if len(d.Years) == 0 {
		return ""
	}
	return d.Years[len(d.Years)-1]
}

// Tier is a colour bucket, 1 (lightest) to 7 (deepest).
type Tier int

// YearView is the per-year projection used to drive one chart frame.
type YearView struct {
	Year        string
	Counties    []string
	Percentages []float64
	Tiers       []Tier
}

// Empty reports whether no county matched the year.
func (v YearView) Empty() bool {
	return len(v.Counties) == 0
}

// YearFrame pairs a year with its view.
type YearFrame struct {
	Year string
	View YearView
}

// Decline describes the change for one county between the first and last year.
type Decline struct {
	County  string
	Decline float64
	First   float64
	Last    float64
	Span    string
}

// Phase is a loader status phase.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseStalled     Phase = "stalled"
	PhaseParsed      Phase = "parsed"
	PhaseFallingBack Phase = "falling-back"
	PhaseLoaded      Phase = "loaded"
	PhaseFailed      Phase = "failed"
)

// Status is a user-visible loader status.
type Status struct {
	Phase   Phase
	Message string
	At      time.Time
}

// Terminal reports whether no further status will follow.
func (s Status) Terminal() bool {
	return s.Phase == PhaseLoaded || s.Phase == PhaseFailed
}

// LoadRecord is one persisted load attempt.
type LoadRecord struct {
	ID         int64
	Source     string
	Path       LoadPath
	Rows       int
	Years      int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
