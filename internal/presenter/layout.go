package presenter

import "fmt"

// DefaultBreakpoint is the viewport width, in logical pixels, at or below which the
// mobile preset applies.
const DefaultBreakpoint = 768

// Margin is a chart margin in pixels.
type Margin struct {
	T int `json:"t"`
	R int `json:"r"`
	B int `json:"b"`
	L int `json:"l"`
}

// LayoutSpec is the responsive part of the chart layout.
type LayoutSpec struct {
	Mobile        bool   `json:"mobile"`
	Title         string `json:"title"`
	TitleSize     int    `json:"titleSize"`
	XAxisTitle    string `json:"xAxisTitle,omitempty"`
	YAxisTitle    string `json:"yAxisTitle,omitempty"`
	TickAngle     int    `json:"tickAngle"`
	TickFontSize  int    `json:"tickFontSize"`
	Margin        Margin `json:"margin"`
	ShowBarLabels bool   `json:"showBarLabels"`
}

// ComputeResponsiveLayout selects the mobile or desktop preset using the default breakpoint.
func ComputeResponsiveLayout(viewportWidth int, year string, animated bool) LayoutSpec {
	return computeLayout(viewportWidth, DefaultBreakpoint, year, animated)
}

// Layout selects the preset for viewportWidth using the presenter's breakpoint.
func (p *Presenter) Layout(viewportWidth int, year string, animated bool) LayoutSpec {
	return computeLayout(viewportWidth, p.breakpoint, year, animated)
}

func computeLayout(width, breakpoint int, year string, animated bool) LayoutSpec {
	if width <= breakpoint {
		title := "Irish Speakers by County"
		if !animated && year != "" {
			title = fmt.Sprintf("Irish Speakers %s", year)
		}
		return LayoutSpec{
			Mobile:       true,
			Title:        title,
			TitleSize:    16,
			TickAngle:    -90,
			TickFontSize: 8,
			Margin:       Margin{T: 60, R: 20, B: 120, L: 40},
		}
	}
	title := "Irish Language Speakers by County Over Time"
	if !animated && year != "" {
		title = fmt.Sprintf("Irish Language Speakers by County (%s)", year)
	}
	return LayoutSpec{
		Title:         title,
		TitleSize:     24,
		XAxisTitle:    "County",
		YAxisTitle:    "Percentage of Irish Speakers (%)",
		TickAngle:     -45,
		TickFontSize:  10,
		Margin:        Margin{T: 80, R: 60, B: 150, L: 80},
		ShowBarLabels: true,
	}
}
