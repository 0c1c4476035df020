// Package main provides the CLI entrypoint for gaelchart.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/gaelchart/internal/config"
	"github.com/verte-zerg/gaelchart/internal/controller"
	"github.com/verte-zerg/gaelchart/internal/loader"
	"github.com/verte-zerg/gaelchart/internal/logging"
	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
	"github.com/verte-zerg/gaelchart/internal/store"
	"github.com/verte-zerg/gaelchart/internal/tui"
)

const (
	defaultSource      = "historical_irish_data.csv"
	defaultLogLevel    = "info"
	defaultAddr        = "127.0.0.1:8080"
	defaultHTTPTimeout = 2 * time.Minute
)

var (
	dataSource   string
	dataYear     string
	stallTimeout time.Duration
	noFallback   bool
	logLevel     string
	logFile      string
	dbPath       string
	viewNoColor  bool
)

// app is the resolved runtime configuration shared by every command.
type app struct {
	source      string
	year        string
	yearForced  bool
	policy      loader.Policy
	dbPath      string
	presenter   *presenter.Presenter
	addr        string
	logCleanup  func()
	httpTimeout time.Duration
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gaelchart",
		Short:         "Irish speakers by county, year by year",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runViewerCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dataSource, "source", defaultSource, "CSV URL or local path")
	flags.StringVar(&dataYear, "year", controller.DefaultYear, "year to show first")
	flags.DurationVar(&stallTimeout, "stall-timeout", loader.DefaultStallTimeout, "warn when parsing takes longer than this")
	flags.BoolVar(&noFallback, "no-fallback", false, "disable the direct-download fallback")
	flags.StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file")
	flags.StringVar(&dbPath, "db", config.DefaultDBPath(), "load history database path")

	rootCmd.Flags().BoolVar(&viewNoColor, "no-color", false, "disable tier colours in the viewer")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDeclinesCmd())
	rootCmd.AddCommand(newYearsCmd())
	rootCmd.AddCommand(newFigureCmd())
	rootCmd.AddCommand(newBarsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newPNGCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// setupApp merges the config file under the flags and starts logging. quiet discards
// logs when no log file is set.
func setupApp(cmd *cobra.Command, quiet, tuiMode bool) (*app, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "source", &dataSource, fileCfg.Data.Source)
	applyStringConfig(cmd, "year", &dataYear, fileCfg.Data.DefaultYear)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Data.DBPath)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	timeout, err := fileCfg.Data.StallTimeoutValue()
	if err != nil {
		return nil, err
	}
	applyDurationConfig(cmd, "stall-timeout", &stallTimeout, timeout)
	if fileCfg.Data.Fallback != nil && !cmd.Flags().Changed("no-fallback") {
		noFallback = !*fileCfg.Data.Fallback
	}

	if err := validateFlags(); err != nil {
		return nil, err
	}
	p, err := buildPresenter(fileCfg.Chart)
	if err != nil {
		return nil, err
	}
	if err := logging.SetLevel(logLevel); err != nil {
		return nil, err
	}
	cleanup, err := logging.Setup(logFile, quiet, tuiMode)
	if err != nil {
		return nil, err
	}

	addr := defaultAddr
	if fileCfg.Server.Addr != nil {
		addr = *fileCfg.Server.Addr
	}
	return &app{
		source:      dataSource,
		year:        strings.TrimSpace(dataYear),
		yearForced:  cmd.Flags().Changed("year"),
		policy:      loader.Policy{StallTimeout: stallTimeout, Fallback: !noFallback},
		dbPath:      dbPath,
		presenter:   p,
		addr:        addr,
		logCleanup:  cleanup,
		httpTimeout: defaultHTTPTimeout,
	}, nil
}

func (a *app) close() {
	if a.logCleanup != nil {
		a.logCleanup()
	}
}

func validateFlags() error {
	if strings.TrimSpace(dataSource) == "" {
		return fmt.Errorf("--source must not be empty")
	}
	if strings.TrimSpace(dataYear) == "" {
		return fmt.Errorf("--year must not be empty")
	}
	if stallTimeout < 0 {
		return fmt.Errorf("--stall-timeout must be >= 0")
	}
	return nil
}

func buildPresenter(cfg config.ChartConfig) (*presenter.Presenter, error) {
	scale := presenter.DefaultScale()
	if len(cfg.Thresholds) > 0 {
		s, err := presenter.NewScale(cfg.Thresholds)
		if err != nil {
			return nil, fmt.Errorf("invalid chart.thresholds: %w", err)
		}
		scale = s
	}
	breakpoint := presenter.DefaultBreakpoint
	if cfg.Breakpoint != nil {
		breakpoint = *cfg.Breakpoint
	}
	return presenter.New(scale, breakpoint), nil
}

// load runs the loader and records the attempt in the history database. History
// failures are logged, never returned.
func (a *app) load(ctx context.Context, report func(model.Status)) (model.Dataset, error) {
	client := &http.Client{Timeout: a.httpTimeout}
	l := loader.NewHTTP(client, a.policy, loader.ReporterFunc(report))

	started := time.Now()
	ds, err := l.Load(ctx, a.source)
	rec := model.LoadRecord{
		Source:     a.source,
		Path:       ds.Path,
		Rows:       len(ds.Rows),
		Years:      len(ds.Years),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if !errors.Is(err, context.Canceled) {
		a.recordLoad(ctx, rec, &ds)
	}
	return ds, err
}

func (a *app) recordLoad(ctx context.Context, rec model.LoadRecord, ds *model.Dataset) {
	if a.dbPath == "" {
		return
	}
	st, err := store.Open(a.dbPath)
	if err != nil {
		logging.Warnf("load history unavailable: %v", err)
		return
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logging.Warnf("failed to close db: %v", cerr)
		}
	}()
	id, err := st.RecordLoad(context.WithoutCancel(ctx), rec, ds)
	if err != nil {
		logging.Warnf("failed to record load: %v", err)
		return
	}
	logging.Debugf("recorded load %d (%s, %d rows)", id, rec.Path, rec.Rows)
}

// loadWithProgress loads for a one-shot command, echoing statuses to stderr.
func (a *app) loadWithProgress(ctx context.Context) (model.Dataset, error) {
	return a.load(ctx, func(st model.Status) {
		if st.Phase == model.PhaseFailed {
			return
		}
		logErrln(st.Message)
	})
}

// newController returns a controller positioned on the configured year. An explicit
// --year that the dataset lacks stays selected so callers render "No data".
func (a *app) newController(ds model.Dataset) *controller.Controller {
	return controller.New(ds, a.presenter, a.year)
}

func (a *app) selectedView(ctrl *controller.Controller) model.YearView {
	if a.yearForced {
		return ctrl.View(a.year)
	}
	return ctrl.CurrentView()
}

func (a *app) selectedYear(ctrl *controller.Controller) string {
	if a.yearForced {
		return a.year
	}
	return ctrl.CurrentYear()
}

func runViewerCmd(cmd *cobra.Command, _ []string) error {
	a, err := setupApp(cmd, true, true)
	if err != nil {
		return err
	}
	defer a.close()

	m := tui.NewModel(tui.Options{
		Presenter:   a.presenter,
		DefaultYear: a.year,
		Load:        a.load,
		NoColor:     viewNoColor,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeDefaultConfig(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeDefaultConfig creates path with the commented template unless it exists.
func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target, value *time.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	bounds := presenter.DefaultScale().Bounds
	parts := make([]string, len(bounds))
	for i, b := range bounds {
		parts[i] = fmt.Sprintf("%g", b)
	}
	return fmt.Sprintf(`# gaelchart configuration
# Uncomment a value to enable it. CLI flags override config values.

[data]
# source = %q   # CSV URL or local path
# default-year = %q            # Year shown first (latest year if absent)
# stall-timeout = %q             # Warn when parsing takes longer than this
# fallback = true                   # Retry with a direct download when parsing fails
# db = %q

[chart]
# thresholds = [%s]   # Upper bounds of tiers 1-6 (percent)
# breakpoint = %d                  # Widths at or below this use the mobile layout

[server]
# addr = %q

[log]
# level = %q
# file = ""
`,
		defaultSource,
		controller.DefaultYear,
		loader.DefaultStallTimeout.String(),
		config.DefaultDBPath(),
		strings.Join(parts, ", "),
		presenter.DefaultBreakpoint,
		defaultAddr,
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
