// Package tui provides the Bubble Tea chart viewer.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/gaelchart/internal/controller"
	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
)

const (
	tabChart = iota
	tabDeclines
)

const (
	// ResizeDebounce delays layout recomputation until resizing settles.
	ResizeDebounce = 250 * time.Millisecond
	// PlayInterval is the animation frame duration.
	PlayInterval = presenter.PlayFrameMs * time.Millisecond
	// CellPixels approximates logical pixels per terminal column.
	CellPixels = 8

	maxStatusLines = 8
)

// LoadFunc loads the dataset, reporting phases through report.
type LoadFunc func(ctx context.Context, report func(model.Status)) (model.Dataset, error)

// Options configures the viewer.
type Options struct {
	Presenter   *presenter.Presenter
	DefaultYear string
	Load        LoadFunc
	NoColor     bool
}

type statusMsg model.Status

type loadedMsg struct {
	ds model.Dataset
}

type loadFailedMsg struct {
	err error
}

type resizeSettledMsg struct {
	seq int
}

type playTickMsg struct {
	seq int
}

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#a50f15"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	yearStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Underline(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	tableMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#cb181d"))
	noDataStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	sliderOnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cb181d")).Bold(true)
)

// Model implements the Bubble Tea chart viewer.
type Model struct {
	opts      Options
	presenter *presenter.Presenter

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	spinner  spinner.Model
	statuses []model.Status
	loadErr  error
	ctrl     *controller.Controller

	tabs      []string
	activeTab int
	chartView viewport.Model
	declines  table.Model

	width         int
	height        int
	pendingWidth  int
	pendingHeight int
	resizeSeq     int
	layout        presenter.LayoutSpec

	playing bool
	playSeq int
}

// NewModel constructs the viewer. The dataset is loaded when the program starts.
func NewModel(opts Options) *Model {
	if opts.Presenter == nil {
		opts.Presenter = presenter.Default()
	}
	if opts.DefaultYear == "" {
		opts.DefaultYear = controller.DefaultYear
	}
	if os.Getenv("NO_COLOR") != "" {
		opts.NoColor = true
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		opts:      opts,
		presenter: opts.Presenter,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan tea.Msg, 16),
		spinner:   sp,
		tabs:      []string{"Chart", "Declines"},
		chartView: viewport.New(0, 0),
		declines:  buildDeclineTable(nil, nil, 0, 1),
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.opts.Load == nil {
		return nil
	}
	go m.runLoad()
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m *Model) runLoad() {
	report := func(st model.Status) {
		select {
		case m.events <- statusMsg(st):
		case <-m.ctx.Done():
		}
	}
	ds, err := m.opts.Load(m.ctx, report)
	var msg tea.Msg = loadedMsg{ds: ds}
	if err != nil {
		msg = loadFailedMsg{err: err}
	}
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.statuses = append(m.statuses, model.Status(msg))
		if len(m.statuses) > maxStatusLines {
			m.statuses = m.statuses[len(m.statuses)-maxStatusLines:]
		}
		return m, m.waitForEvent()
	case loadedMsg:
		m.setDataset(msg.ds)
		return m, nil
	case loadFailedMsg:
		m.loadErr = msg.err
		return m, nil
	case spinner.TickMsg:
		if m.ctrl != nil || m.loadErr != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		return m, m.queueResize(msg.Width, msg.Height)
	case resizeSettledMsg:
		if msg.seq == m.resizeSeq {
			m.applySize(m.pendingWidth, m.pendingHeight)
		}
		return m, nil
	case playTickMsg:
		if !m.playing || msg.seq != m.playSeq || m.ctrl == nil {
			return m, nil
		}
		m.ctrl.Step(1)
		m.refresh()
		return m, m.nextPlayTick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
		m.cancel()
		return m, tea.Quit
	}
	if m.ctrl == nil {
		return m, nil
	}
	switch msg.Type {
	case tea.KeyLeft:
		m.stopPlaying()
		m.ctrl.Step(-1)
		m.refresh()
		return m, nil
	case tea.KeyRight:
		m.stopPlaying()
		m.ctrl.Step(1)
		m.refresh()
		return m, nil
	case tea.KeyTab:
		m.activeTab = (m.activeTab + 1) % len(m.tabs)
		m.syncTableFocus()
		return m, nil
	case tea.KeyShiftTab:
		m.activeTab = (m.activeTab + len(m.tabs) - 1) % len(m.tabs)
		m.syncTableFocus()
		return m, nil
	case tea.KeySpace:
		if m.playing {
			m.stopPlaying()
			m.refresh()
			return m, nil
		}
		m.playing = true
		m.playSeq++
		m.refresh()
		return m, m.nextPlayTick()
	}
	switch msg.String() {
	case "h":
		return m.handleKey(tea.KeyMsg{Type: tea.KeyLeft})
	case "l":
		return m.handleKey(tea.KeyMsg{Type: tea.KeyRight})
	case "g", "home":
		m.chartView.GotoTop()
		m.declines.GotoTop()
		return m, nil
	case "G", "end":
		m.chartView.GotoBottom()
		m.declines.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	if m.activeTab == tabDeclines {
		m.declines, cmd = m.declines.Update(msg)
		return m, cmd
	}
	m.chartView, cmd = m.chartView.Update(msg)
	return m, cmd
}

// queueResize applies the first size at once and debounces later ones.
func (m *Model) queueResize(width, height int) tea.Cmd {
	m.pendingWidth, m.pendingHeight = width, height
	m.resizeSeq++
	if m.width == 0 || m.height == 0 {
		m.applySize(width, height)
		return nil
	}
	seq := m.resizeSeq
	return tea.Tick(ResizeDebounce, func(time.Time) tea.Msg {
		return resizeSettledMsg{seq: seq}
	})
}

func (m *Model) applySize(width, height int) {
	m.width = width
	m.height = height
	_, bodyHeight, _ := m.layoutHeights()
	m.chartView.Width = width
	m.chartView.Height = bodyHeight
	m.declines = buildDeclineTable(m.declineData(), m.ctrl, width, bodyHeight)
	m.syncTableFocus()
	m.refresh()
}

func (m *Model) setDataset(ds model.Dataset) {
	m.ctrl = controller.New(ds, m.presenter, m.opts.DefaultYear)
	_, bodyHeight, _ := m.layoutHeights()
	m.declines = buildDeclineTable(m.declineData(), m.ctrl, m.width, bodyHeight)
	m.syncTableFocus()
	m.refresh()
}

func (m *Model) declineData() []model.Decline {
	if m.ctrl == nil {
		return nil
	}
	return m.ctrl.Declines(0)
}

func (m *Model) nextPlayTick() tea.Cmd {
	seq := m.playSeq
	return tea.Tick(PlayInterval, func(time.Time) tea.Msg {
		return playTickMsg{seq: seq}
	})
}

func (m *Model) stopPlaying() {
	if m.playing {
		m.playing = false
		m.playSeq++
	}
}

func (m *Model) syncTableFocus() {
	if m.activeTab == tabDeclines {
		m.declines.Focus()
	} else {
		m.declines.Blur()
	}
}

// refresh recomputes the layout for the current year and re-renders the chart.
func (m *Model) refresh() {
	if m.ctrl == nil {
		return
	}
	m.layout = m.ctrl.Layout(m.width*CellPixels, m.playing)
	m.chartView.SetContent(m.renderChart())
}

// CurrentYear returns the selected year, or "" before the dataset is loaded.
func (m *Model) CurrentYear() string {
	if m.ctrl == nil {
		return ""
	}
	return m.ctrl.CurrentYear()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.ctrl == nil {
		return fitLines(m.renderLoading(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 2
	footerHeight = 1
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) renderLoading() string {
	var lines []string
	if m.loadErr != nil {
		lines = append(lines,
			errorStyle.Render("Failed to load data: "+m.loadErr.Error()),
			"",
		)
	} else {
		lines = append(lines, fmt.Sprintf("%s Loading data...", m.spinner.View()), "")
	}
	for _, st := range m.statuses {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("%s  %-12s %s", st.At.Format("15:04:05"), st.Phase, st.Message)))
	}
	lines = append(lines, "", headerStyle.Render("Quit: q"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	title := titleStyle.Render(truncateLine(m.layout.Title, m.width))
	return tabs + "\n" + title + "\n" + m.renderYearSelector()
}

func (m *Model) renderYearSelector() string {
	years := m.ctrl.Years()
	current := m.ctrl.CurrentYear()
	parts := make([]string, 0, len(years))
	for _, y := range years {
		if y == current {
			parts = append(parts, currentStyle.Render(y))
		} else {
			parts = append(parts, yearStyle.Render(y))
		}
	}
	state := "paused"
	if m.playing {
		state = sliderOnStyle.Render("playing")
	}
	return strings.Join(parts, " ") + "  " + headerStyle.Render("["+state+"]")
}

func (m *Model) renderBody() string {
	if m.activeTab == tabDeclines {
		if len(m.declines.Rows()) == 0 {
			return "No counties present in both the first and last year."
		}
		return tableMuted.Render(m.declines.View())
	}
	return m.chartView.View()
}

func (m *Model) renderFooter() string {
	help := "Year: left/right  Play/Pause: space  Tab: tab  Scroll: up/down  Quit: q"
	if m.layout.Mobile {
		help = "←/→ year  space play  tab  q quit"
	}
	return headerStyle.Render(truncateLine(help, m.width))
}
