package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verte-zerg/gaelchart/internal/controller"
	"github.com/verte-zerg/gaelchart/internal/counties"
	"github.com/verte-zerg/gaelchart/internal/export"
	"github.com/verte-zerg/gaelchart/internal/logging"
	"github.com/verte-zerg/gaelchart/internal/model"
	"github.com/verte-zerg/gaelchart/internal/presenter"
)

const (
	defaultViewportWidth = 1024
	defaultPNGWidth      = 1200
	defaultPNGHeight     = 700
	maxPNGSide           = 4000
	maxBodyBytes         = 1 << 12
)

type statusDTO struct {
	Phase   model.Phase `json:"phase"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

func newStatusDTO(st model.Status) statusDTO {
	return statusDTO{Phase: st.Phase, Message: st.Message, At: st.At}
}

type statusResponse struct {
	statusDTO
	Ready   bool        `json:"ready"`
	Failed  bool        `json:"failed"`
	Error   string      `json:"error,omitempty"`
	History []statusDTO `json:"history"`
}

type errorResponse struct {
	Error  string     `json:"error"`
	Status *statusDTO `json:"status,omitempty"`
}

type yearsResponse struct {
	Years   []string `json:"years"`
	Current string   `json:"current"`
}

type countyDTO struct {
	County     string     `json:"county"`
	Code       string     `json:"code,omitempty"`
	Percentage float64    `json:"percentage"`
	Tier       model.Tier `json:"tier"`
	Color      string     `json:"color"`
}

type viewResponse struct {
	Year     string      `json:"year"`
	NoData   bool        `json:"noData"`
	Message  string      `json:"message,omitempty"`
	Counties []countyDTO `json:"counties"`
}

type declineDTO struct {
	Rank    int     `json:"rank"`
	County  string  `json:"county"`
	Decline float64 `json:"decline"`
	First   float64 `json:"first"`
	Last    float64 `json:"last"`
	Span    string  `json:"span"`
}

type selectionRequest struct {
	Year string `json:"year"`
}

type sliderRequest struct {
	Index *int `json:"index"`
}

type selectionResponse struct {
	Year string `json:"year"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, history, ctrl, loadErr := s.snapshot()
	resp := statusResponse{
		statusDTO: newStatusDTO(status),
		Ready:     ctrl != nil,
		Failed:    loadErr != nil,
		History:   make([]statusDTO, 0, len(history)),
	}
	if loadErr != nil {
		resp.Error = loadErr.Error()
	}
	for _, st := range history {
		resp.History = append(resp.History, newStatusDTO(st))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	writeJSON(w, http.StatusOK, yearsResponse{Years: ctrl.Years(), Current: ctrl.CurrentYear()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	view := ctrl.View(chi.URLParam(r, "year"))
	resp := viewResponse{Year: view.Year, Counties: make([]countyDTO, 0, len(view.Counties))}
	if view.Empty() {
		resp.NoData = true
		resp.Message = fmt.Sprintf("No data available for %s", view.Year)
	}
	for i, county := range view.Counties {
		code, _ := counties.Code(county)
		resp.Counties = append(resp.Counties, countyDTO{
			County:     county,
			Code:       code,
			Percentage: view.Percentages[i],
			Tier:       view.Tiers[i],
			Color:      presenter.Color(view.Tiers[i]),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	width, err := intParam(r, "width", defaultViewportWidth)
	if err != nil || width <= 0 {
		writeError(w, http.StatusBadRequest, "width must be a positive integer")
		return
	}
	animated := true
	if v := r.URL.Query().Get("animated"); v != "" {
		animated, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "animated must be a boolean")
			return
		}
	}
	writeJSON(w, http.StatusOK, ctrl.Figure(width, animated))
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	var req selectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ctrl.SelectYear(req.Year); err != nil {
		writeSelectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Year: ctrl.CurrentYear()})
}

func (s *Server) handleSlider(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	var req sliderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	year, err := ctrl.SlideTo(*req.Index)
	if err != nil {
		writeSelectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Year: year})
}

func (s *Server) handleDeclines(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	top, err := intParam(r, "top", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, "top must be an integer")
		return
	}
	declines := ctrl.Declines(top)
	out := make([]declineDTO, 0, len(declines))
	for i, d := range declines {
		out = append(out, declineDTO{Rank: i + 1, County: d.County, Decline: d.Decline, First: d.First, Last: d.Last, Span: d.Span})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	width, werr := intParam(r, "width", defaultPNGWidth)
	height, herr := intParam(r, "height", defaultPNGHeight)
	if werr != nil || herr != nil || width <= 0 || height <= 0 || width > maxPNGSide || height > maxPNGSide {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("width and height must be between 1 and %d", maxPNGSide))
		return
	}
	var buf bytes.Buffer
	if err := export.WriteBarChartPNG(&buf, ctrl.View(chi.URLParam(r, "year")), width, height); err != nil {
		logging.Errorf("render png: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to render chart: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, ctrl.Dataset(), ctrl.Presenter()); err != nil {
		logging.Errorf("render workbook: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to build workbook: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="irish-speakers.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeSelectionError(w http.ResponseWriter, err error) {
	if errors.Is(err, controller.ErrUnknownYear) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeJSON encodes before writing so an encoding failure becomes a 500 message.
func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Errorf("encode response: %v", err)
		code = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "Failed to render response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
