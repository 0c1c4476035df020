package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/gaelchart/internal/export"
	"github.com/verte-zerg/gaelchart/internal/server"
	"github.com/verte-zerg/gaelchart/internal/stats"
	"github.com/verte-zerg/gaelchart/internal/store"
)

const (
	defaultTop         = 10
	defaultFigureWidth = 1024
	defaultPNGWidth    = 1200
	defaultPNGHeight   = 700
	defaultHistory     = 20
)

var (
	serveAddr  string
	plotlyURL  string
	declineTop int
	offline    bool
	yearsStats bool

	figureWidth    int
	figureAnimated bool

	barsWidth   int
	barsColor   bool
	barsNoColor bool

	exportOut string

	pngOut    string
	pngWidth  int
	pngHeight int

	historyLimit int
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive chart page",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&plotlyURL, "plotly-url", "", "Plotly bundle URL for the page")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()
	if !cmd.Flags().Changed("addr") {
		serveAddr = a.addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.presenter, server.Options{
		DefaultYear: a.year,
		PlotlyURL:   plotlyURL,
	})
	logErrf("Serving on http://%s\n", serveAddr)
	if err := srv.Run(ctx, serveAddr, a.load); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func newDeclinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "declines",
		Short: "Rank counties by decline between the first and last year",
		Args:  cobra.NoArgs,
		RunE:  runDeclinesCmd,
	}
	cmd.Flags().IntVar(&declineTop, "top", defaultTop, "number of counties to list (0 for all)")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the last stored dataset instead of loading")
	return cmd
}

func runDeclinesCmd(cmd *cobra.Command, _ []string) error {
	if declineTop < 0 {
		return fmt.Errorf("--top must be >= 0")
	}
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()
	out := cmd.OutOrStdout()

	if offline {
		st, err := store.Open(a.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		report, err := stats.BuildReport(cmd.Context(), st, declineTop)
		if err != nil {
			return fmt.Errorf("failed to read stored dataset: %w", err)
		}
		logErrf("Using load %d from %s\n", report.Load.ID, report.Load.FinishedAt.Local().Format("2006-01-02 15:04"))
		return stats.RenderDeclines(out, report.Declines, report.Trend())
	}

	ctx, stop := interruptContext(cmd)
	defer stop()
	ds, err := a.loadWithProgress(ctx)
	if err != nil {
		return err
	}
	ctrl := a.newController(ds)
	report := stats.Report{Dataset: ds, Declines: ctrl.Declines(declineTop)}
	return stats.RenderDeclines(out, report.Declines, report.Trend())
}

func newYearsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "years",
		Short: "List the years in the dataset",
		Args:  cobra.NoArgs,
		RunE:  runYearsCmd,
	}
	cmd.Flags().BoolVar(&yearsStats, "summary", false, "print a dataset summary instead")
	return cmd
}

func runYearsCmd(cmd *cobra.Command, _ []string) error {
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := interruptContext(cmd)
	defer stop()
	ds, err := a.loadWithProgress(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if yearsStats {
		return stats.RenderSummary(out, ds)
	}
	for _, year := range ds.Years {
		if _, err := fmt.Fprintln(out, year); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newFigureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "figure",
		Short: "Print the Plotly figure JSON",
		Args:  cobra.NoArgs,
		RunE:  runFigureCmd,
	}
	cmd.Flags().IntVar(&figureWidth, "width", defaultFigureWidth, "viewport width in pixels")
	cmd.Flags().BoolVar(&figureAnimated, "animated", true, "include frames and the year slider")
	return cmd
}

func runFigureCmd(cmd *cobra.Command, _ []string) error {
	if figureWidth <= 0 {
		return fmt.Errorf("--width must be > 0")
	}
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := interruptContext(cmd)
	defer stop()
	ds, err := a.loadWithProgress(ctx)
	if err != nil {
		return err
	}
	ctrl := a.newController(ds)
	fig := a.presenter.BuildFigure(ds, a.selectedYear(ctrl), figureWidth, figureAnimated)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(fig); err != nil {
		return fmt.Errorf("failed to encode figure: %w", err)
	}
	return nil
}

func newBarsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bars",
		Short: "Draw one year as terminal bars",
		Args:  cobra.NoArgs,
		RunE:  runBarsCmd,
	}
	cmd.Flags().IntVar(&barsWidth, "width", 0, "total width (0 uses the terminal width)")
	cmd.Flags().BoolVar(&barsColor, "color", false, "force tier colours")
	cmd.Flags().BoolVar(&barsNoColor, "no-color", false, "disable tier colours")
	return cmd
}

func runBarsCmd(cmd *cobra.Command, _ []string) error {
	if barsWidth < 0 {
		return fmt.Errorf("--width must be >= 0")
	}
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := interruptContext(cmd)
	defer stop()
	ds, err := a.loadWithProgress(ctx)
	if err != nil {
		return err
	}
	view := a.selectedView(a.newController(ds))
	return stats.RenderYearBars(cmd.OutOrStdout(), view, stats.BarOptions{
		Width:      barsWidth,
		ForceColor: barsColor,
		NoColor:    barsNoColor,
	})
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an xlsx workbook with every year and the decline ranking",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportOut, "out", "", "output .xlsx path")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := interruptContext(cmd)
	defer stop()
	ds, err := a.loadWithProgress(ctx)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(exportOut, func(w io.Writer) error {
		return export.WriteWorkbook(w, ds, a.presenter)
	}); err != nil {
		return fmt.Errorf("failed to export workbook: %w", err)
	}
	logErrf("Wrote %s\n", exportOut)
	return nil
}

func newPNGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "png",
		Short: "Render one year as a PNG bar chart",
		Args:  cobra.NoArgs,
		RunE:  runPNGCmd,
	}
	cmd.Flags().StringVar(&pngOut, "out", "", "output .png path")
	cmd.Flags().IntVar(&pngWidth, "width", defaultPNGWidth, "image width in pixels")
	cmd.Flags().IntVar(&pngHeight, "height", defaultPNGHeight, "image height in pixels")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runPNGCmd(cmd *cobra.Command, _ []string) error {
	if pngWidth <= 0 || pngHeight <= 0 {
		return fmt.Errorf("--width and --height must be > 0")
	}
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := interruptContext(cmd)
	defer stop()
	ds, err := a.loadWithProgress(ctx)
	if err != nil {
		return err
	}
	view := a.selectedView(a.newController(ds))
	if err := writeFileAtomic(pngOut, func(w io.Writer) error {
		return export.WriteBarChartPNG(w, view, pngWidth, pngHeight)
	}); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	logErrf("Wrote %s\n", pngOut)
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded load attempts",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistory, "number of attempts to list")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	a, err := setupApp(cmd, false, false)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := store.Open(a.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	loads, err := st.ListLoads(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list loads: %w", err)
	}
	return stats.RenderLoads(cmd.OutOrStdout(), loads)
}

// interruptContext cancels on interrupt so a stalled download can be abandoned.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

// writeFileAtomic writes through a temp file in the target directory, then renames.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := write(tmpFile); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename output: %w", err)
	}
	return nil
}
