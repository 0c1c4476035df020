package server

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/verte-zerg/gaelchart/internal/logging"
	"github.com/verte-zerg/gaelchart/internal/presenter"
)

const (
	defaultPlotlyURL  = "https://cdn.plot.ly/plotly-2.35.2.min.js"
	defaultDebounceMs = 250
)

//go:embed page.html
var pageHTML string

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

type pageData struct {
	Title      string
	PlotlyURL  string
	DebounceMs int
	Legend     []legendEntry
}

type legendEntry struct {
	Label string
	Color string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:      "Irish Language Speakers by County",
		PlotlyURL:  s.opts.PlotlyURL,
		DebounceMs: s.opts.DebounceMs,
	}
	for i, label := range s.presenter.Scale().Legend() {
		data.Legend = append(data.Legend, legendEntry{Label: label, Color: presenter.Palette[i]})
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		logging.Errorf("render page: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to render page: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
