package presenter

import (
	"fmt"

	"github.com/verte-zerg/gaelchart/internal/model"
)

// Animation timings in milliseconds.
const (
	PlayFrameMs   = 800
	StepFrameMs   = 500
	TransitionMs  = 300
	yAxisMaxRange = 105
	themeColor    = "#1e3c72"
	fontFamily    = "Segoe UI, sans-serif"
)

// Figure is a Plotly-compatible chart description: initial traces, layout and
// one named frame per year.
type Figure struct {
	Data    []Trace    `json:"data"`
	Layout  Layout     `json:"layout"`
	Frames  []Frame    `json:"frames,omitempty"`
	Config  PlotConfig `json:"config"`
	Years   []string   `json:"years"`
	Year    string     `json:"year"`
	NoData  bool       `json:"noData"`
	Message string     `json:"message,omitempty"`
}

// Trace is one bar series.
type Trace struct {
	Type          string    `json:"type"`
	X             []string  `json:"x"`
	Y             []float64 `json:"y"`
	Text          []string  `json:"text,omitempty"`
	TextPosition  string    `json:"textposition,omitempty"`
	Marker        Marker    `json:"marker"`
	HoverTemplate string    `json:"hovertemplate"`
}

// Marker carries per-bar colours.
type Marker struct {
	Color []string   `json:"color"`
	Line  MarkerLine `json:"line"`
}

// MarkerLine is the bar outline.
type MarkerLine struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// Frame is a named per-year trace set for animation.
type Frame struct {
	Name string  `json:"name"`
	Data []Trace `json:"data"`
}

// Font is a text style.
type Font struct {
	Size   int    `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
	Family string `json:"family,omitempty"`
}

// Title is the chart title.
type Title struct {
	Text string  `json:"text"`
	Font Font    `json:"font"`
	X    float64 `json:"x"`
}

// AxisTitle is an axis label.
type AxisTitle struct {
	Text string `json:"text"`
}

// Axis configures one axis.
type Axis struct {
	Title     *AxisTitle `json:"title,omitempty"`
	TickAngle int        `json:"tickangle"`
	TickFont  *Font      `json:"tickfont,omitempty"`
	ShowGrid  bool       `json:"showgrid"`
	GridColor string     `json:"gridcolor,omitempty"`
	Range     []float64  `json:"range,omitempty"`
}

// CurrentValue is the slider's current-value label.
type CurrentValue struct {
	Font    Font   `json:"font"`
	Prefix  string `json:"prefix"`
	Visible bool   `json:"visible"`
	XAnchor string `json:"xanchor"`
}

// SliderStep is one slider position bound to a frame name.
type SliderStep struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// Slider is the year slider.
type Slider struct {
	Active       int          `json:"active"`
	CurrentValue CurrentValue `json:"currentvalue"`
	Steps        []SliderStep `json:"steps"`
	X            float64      `json:"x"`
	Len          float64      `json:"len"`
	BGColor      string       `json:"bgcolor"`
	BorderColor  string       `json:"bordercolor"`
	BorderWidth  int          `json:"borderwidth"`
}

// Button is a play/pause control.
type Button struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// UpdateMenu groups buttons.
type UpdateMenu struct {
	Type       string   `json:"type"`
	ShowActive bool     `json:"showactive"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Buttons    []Button `json:"buttons"`
}

// Annotation is free text placed on the paper.
type Annotation struct {
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	XRef      string  `json:"xref"`
	YRef      string  `json:"yref"`
	ShowArrow bool    `json:"showarrow"`
	Font      Font    `json:"font"`
	XAnchor   string  `json:"xanchor"`
}

// Layout is the chart layout.
type Layout struct {
	Title        Title        `json:"title"`
	XAxis        Axis         `json:"xaxis"`
	YAxis        Axis         `json:"yaxis"`
	Margin       Margin       `json:"margin"`
	PlotBGColor  string       `json:"plot_bgcolor"`
	PaperBGColor string       `json:"paper_bgcolor"`
	Font         Font         `json:"font"`
	Sliders      []Slider     `json:"sliders,omitempty"`
	UpdateMenus  []UpdateMenu `json:"updatemenus,omitempty"`
	Annotations  []Annotation `json:"annotations,omitempty"`
}

// PlotConfig is the Plotly config object.
type PlotConfig struct {
	Responsive             bool     `json:"responsive"`
	DisplayModeBar         bool     `json:"displayModeBar"`
	DisplayLogo            bool     `json:"displaylogo"`
	ModeBarButtonsToRemove []string `json:"modeBarButtonsToRemove"`
}

type frameOpts struct {
	Duration int  `json:"duration"`
	Redraw   bool `json:"redraw"`
}

type transitionOpts struct {
	Duration int `json:"duration"`
}

type animationOpts struct {
	Frame       frameOpts      `json:"frame"`
	Transition  transitionOpts `json:"transition"`
	FromCurrent bool           `json:"fromcurrent,omitempty"`
	Mode        string         `json:"mode,omitempty"`
}

// BuildTrace turns a view into a bar trace. labels adds the value above each bar.
func BuildTrace(view model.YearView, labels bool) Trace {
	colors := make([]string, len(view.Tiers))
	for i, tier := range view.Tiers {
		colors[i] = Color(tier)
	}
	tr := Trace{
		Type:          "bar",
		X:             append([]string{}, view.Counties...),
		Y:             append([]float64{}, view.Percentages...),
		Marker:        Marker{Color: colors, Line: MarkerLine{Color: "rgba(0,0,0,0.3)", Width: 1}},
		HoverTemplate: fmt.Sprintf("%%{x}<br>%%{y:.1f}%% can speak Irish<br>Year: %s<extra></extra>", view.Year),
	}
	if labels {
		tr.Text = make([]string, len(view.Percentages))
		for i, p := range view.Percentages {
			tr.Text[i] = fmt.Sprintf("%.1f%%", p)
		}
		tr.TextPosition = "outside"
	}
	return tr
}

// BuildFigure assembles the figure for year at viewportWidth. When animated, every
// dataset year becomes a frame and the slider/play controls are included.
func (p *Presenter) BuildFigure(ds model.Dataset, year string, viewportWidth int, animated bool) Figure {
	spec := p.Layout(viewportWidth, year, animated)
	view := p.BuildYearView(ds, year)

	fig := Figure{
		Data:   []Trace{BuildTrace(view, spec.ShowBarLabels)},
		Layout: baseLayout(spec),
		Config: PlotConfig{
			Responsive:             true,
			DisplayModeBar:         !spec.Mobile,
			ModeBarButtonsToRemove: []string{"pan2d", "lasso2d", "select2d", "zoom2d", "zoomIn2d", "zoomOut2d", "autoScale2d"},
		},
		Years: append([]string{}, ds.Years...),
		Year:  year,
	}

	if view.Empty() {
		fig.NoData = true
		fig.Message = fmt.Sprintf("No data available for %s", year)
		fig.Layout.Annotations = append(fig.Layout.Annotations, Annotation{
			Text: fig.Message, X: 0.5, Y: 0.5, XRef: "paper", YRef: "paper",
			Font: Font{Size: 18, Color: themeColor}, XAnchor: "center",
		})
	}

	if !animated || len(ds.Years) == 0 {
		return fig
	}

	frames := p.BuildAllYearViews(ds)
	fig.Frames = make([]Frame, 0, len(frames))
	steps := make([]SliderStep, 0, len(frames))
	for _, f := range frames {
		fig.Frames = append(fig.Frames, Frame{Name: f.Year, Data: []Trace{BuildTrace(f.View, spec.ShowBarLabels)}})
		steps = append(steps, SliderStep{
			Label:  f.Year,
			Method: "animate",
			Args: []any{[]string{f.Year}, animationOpts{
				Frame:      frameOpts{Duration: StepFrameMs, Redraw: true},
				Transition: transitionOpts{Duration: TransitionMs},
			}},
		})
	}
	active := ds.YearIndex(year)
	if active < 0 {
		active = len(ds.Years) - 1
	}
	fig.Layout.Sliders = []Slider{{
		Active: active,
		CurrentValue: CurrentValue{
			Font: Font{Size: 16, Color: themeColor}, Prefix: "Year: ", Visible: true, XAnchor: "right",
		},
		Steps:       steps,
		X:           0.1,
		Len:         0.8,
		BGColor:     "rgba(255,255,255,0.8)",
		BorderColor: themeColor,
		BorderWidth: 2,
	}}
	fig.Layout.UpdateMenus = []UpdateMenu{{
		Type: "buttons",
		X:    0.1,
		Y:    1.15,
		Buttons: []Button{
			{Label: "Play", Method: "animate", Args: []any{nil, animationOpts{
				Frame:       frameOpts{Duration: PlayFrameMs, Redraw: true},
				Transition:  transitionOpts{Duration: TransitionMs},
				FromCurrent: true,
			}}},
			{Label: "Pause", Method: "animate", Args: []any{[]any{nil}, animationOpts{
				Frame: frameOpts{Duration: 0, Redraw: false},
				Mode:  "immediate",
			}}},
		},
	}}
	if !spec.Mobile {
		fig.Layout.Annotations = append(fig.Layout.Annotations, Annotation{
			Text: fmt.Sprintf("<b>Historical Timeline: %s - %s</b><br>Use the slider below or click Play to see the decline over time",
				ds.FirstYear(), ds.LastYear()),
			X: 0.5, Y: 1.12, XRef: "paper", YRef: "paper",
			Font: Font{Size: 14, Color: themeColor}, XAnchor: "center",
		})
	}
	return fig
}

func baseLayout(spec LayoutSpec) Layout {
	l := Layout{
		Title: Title{Text: spec.Title, Font: Font{Size: spec.TitleSize, Color: themeColor, Family: fontFamily}, X: 0.5},
		XAxis: Axis{
			TickAngle: spec.TickAngle,
			TickFont:  &Font{Size: spec.TickFontSize},
		},
		YAxis: Axis{
			ShowGrid:  true,
			GridColor: "rgba(128,128,128,0.2)",
			Range:     []float64{0, yAxisMaxRange},
		},
		Margin:       spec.Margin,
		PlotBGColor:  "rgba(255,255,255,0.8)",
		PaperBGColor: "rgba(0,0,0,0)",
		Font:         Font{Family: fontFamily},
	}
	if spec.XAxisTitle != "" {
		l.XAxis.Title = &AxisTitle{Text: spec.XAxisTitle}
	}
	if spec.YAxisTitle != "" {
		l.YAxis.Title = &AxisTitle{Text: spec.YAxisTitle}
	}
	return l
}
