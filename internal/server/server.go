// Package server exposes the chart over HTTP: a page driven by Plotly plus a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/verte-zerg/gaelchart/internal/controller"
	"github.com/verte-zerg/gaelchart/internal/logging"
	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
)

const (
	statusHistory   = 20
	shutdownTimeout = 5 * time.Second
)

// LoadFunc loads the dataset, reporting phases through report.
type LoadFunc func(ctx context.Context, report func(model.Status)) (model.Dataset, error)

// Options configures a Server.
type Options struct {
	DefaultYear string
	PlotlyURL   string
	DebounceMs  int
}

// Server holds load status and, once loaded, the controller.
type Server struct {
	opts      Options
	presenter *presenter.Presenter

	mu      sync.RWMutex
	status  model.Status
	history []model.Status
	ctrl    *controller.Controller
	loadErr error

	router chi.Router
}

// New returns a Server in the starting state.
func New(p *presenter.Presenter, opts Options) *Server {
	if p == nil {
		p = presenter.Default()
	}
	if opts.DefaultYear == "" {
		opts.DefaultYear = controller.DefaultYear
	}
	if opts.PlotlyURL == "" {
		opts.PlotlyURL = defaultPlotlyURL
	}
	if opts.DebounceMs <= 0 {
		opts.DebounceMs = defaultDebounceMs
	}
	s := &Server{
		opts:      opts,
		presenter: p,
		status:    model.Status{Phase: model.PhaseStarting, Message: "Loading data...", At: time.Now()},
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Report records a loader status.
func (s *Server) Report(st model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.history = append(s.history, st)
	if len(s.history) > statusHistory {
		s.history = s.history[len(s.history)-statusHistory:]
	}
}

// SetDataset makes data endpoints available.
func (s *Server) SetDataset(ds model.Dataset) {
	ctrl := controller.New(ds, s.presenter, s.opts.DefaultYear)
	s.mu.Lock()
	s.ctrl = ctrl
	s.loadErr = nil
	s.mu.Unlock()
}

// SetFailed records a fatal load error.
func (s *Server) SetFailed(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

func (s *Server) snapshot() (model.Status, []model.Status, *controller.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := append([]model.Status(nil), s.history...)
	return s.status, history, s.ctrl, s.loadErr
}

// Run serves on addr and loads the dataset in the background. It returns when ctx
// is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context, addr string, load LoadFunc) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()
	go s.runLoad(loadCtx, load)

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) runLoad(ctx context.Context, load LoadFunc) {
	ds, err := load(ctx, s.Report)
	if err != nil {
		logging.Errorf("load failed: %v", err)
		s.SetFailed(err)
		return
	}
	logging.Infof("loaded %d rows across %d years from %s", len(ds.Rows), len(ds.Years), ds.Source)
	s.SetDataset(ds)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(safetyNet)
	r.Use(middleware.Compress(5, "text/html", "application/json"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/", s.handleIndex)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Group(func(r chi.Router) {
			r.Use(s.requireData)
			r.Get("/years", s.handleYears)
			r.Get("/views/{year}", s.handleView)
			r.Get("/figure", s.handleFigure)
			r.Post("/selection", s.handleSelection)
			r.Post("/slider", s.handleSlider)
			r.Get("/declines", s.handleDeclines)
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(s.requireData)
		r.Get("/charts/{year}.png", s.handleChartPNG)
		r.Get("/export.xlsx", s.handleWorkbook)
	})
	return r
}
