package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/verte-zerg/gaelchart/internal/controller"
	"github.com/verte-zerg/gaelchart/internal/logging"
)

type ctxKey struct{}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debugf("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond), middleware.GetReqID(r.Context()))
	})
}

// safetyNet turns a panic into a generic JSON error.
func safetyNet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
			writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}

// requireData answers 503 until the dataset is available.
func (s *Server) requireData(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, _, ctrl, loadErr := s.snapshot()
		dto := newStatusDTO(status)
		if loadErr != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Error:  "Failed to load data: " + loadErr.Error(),
				Status: &dto,
			})
			return
		}
		if ctrl == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Error:  "data is still loading",
				Status: &dto,
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ctrl)))
	})
}

func controllerFrom(r *http.Request) *controller.Controller {
	ctrl, _ := r.Context().Value(ctxKey{}).(*controller.Controller)
	return ctrl
}
