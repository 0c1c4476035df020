package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/verte-zerg/gaelchart/internal/model"
)

func declineDataset() model.Dataset {
	return model.Dataset{
		Rows: []model.Row{
			{Year: "2006", County: "A", Percentage: 50},
			{Year: "2006", County: "B", Percentage: 20},
			{Year: "2006", County: "C", Percentage: 40},
			{Year: "2016", County: "A", Percentage: 41},
			{Year: "2022", County: "B", Percentage: 25},
			{Year: "2022", County: "A", Percentage: 30},
		},
		Years: []string{"2006", "2016", "2022"},
	}
}

func TestComputeDeclines(t *testing.T) {
	got := ComputeDeclines(declineDataset())
	if len(got) != 2 {
		t.Fatalf("expected 2 declines, got %d", len(got))
	}
	if got[0].County != "A" || math.Abs(got[0].Decline-20) > 1e-9 {
		t.Fatalf("unexpected first decline: %+v", got[0])
	}
	if got[1].County != "B" || math.Abs(got[1].Decline+5) > 1e-9 {
		t.Fatalf("unexpected second decline: %+v", got[1])
	}
	if got[0].First != 50 || got[0].Last != 30 || got[0].Span != "2006-2022" {
		t.Fatalf("unexpected decline detail: %+v", got[0])
	}
}

func TestComputeDeclinesStableTies(t *testing.T) {
	ds := model.Dataset{
		Rows: []model.Row{
			{Year: "2011", County: "Sligo", Percentage: 40},
			{Year: "2011", County: "Cavan", Percentage: 30},
			{Year: "2022", County: "Cavan", Percentage: 25},
			{Year: "2022", County: "Sligo", Percentage: 35},
		},
		Years: []string{"2011", "2022"},
	}
	got := ComputeDeclines(ds)
	if len(got) != 2 || got[0].County != "Sligo" || got[1].County != "Cavan" {
		t.Fatalf("expected first-year order on ties, got %+v", got)
	}
}

func TestComputeDeclinesUsesFirstOccurrencePerYear(t *testing.T) {
	ds := model.Dataset{
		Rows: []model.Row{
			{Year: "2011", County: "Clare", Percentage: 40},
			{Year: "2011", County: "Clare", Percentage: 90},
			{Year: "2022", County: "Clare", Percentage: 32},
			{Year: "2022", County: "Clare", Percentage: 10},
		},
		Years: []string{"2011", "2022"},
	}
	got := ComputeDeclines(ds)
	if len(got) != 1 {
		t.Fatalf("expected one entry per county, got %+v", got)
	}
	if got[0].First != 40 || got[0].Last != 32 || math.Abs(got[0].Decline-8) > 1e-9 {
		t.Fatalf("expected first occurrences 40 -> 32, got %+v", got[0])
	}
}

func TestComputeDeclinesEmpty(t *testing.T) {
	if got := ComputeDeclines(model.Dataset{}); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestTopDeclines(t *testing.T) {
	ds := declineDataset()
	if got := TopDeclines(ds, 1); len(got) != 1 || got[0].County != "A" {
		t.Fatalf("unexpected top declines: %+v", got)
	}
	if got := TopDeclines(ds, 0); len(got) != 2 {
		t.Fatalf("expected all declines, got %d", len(got))
	}
}

func TestCountyTrend(t *testing.T) {
	got := CountyTrend(declineDataset(), "B")
	if len(got) != 3 || got[0] != 20 || !math.IsNaN(got[1]) || got[2] != 25 {
		t.Fatalf("unexpected trend: %v", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 50, 100}); got != " +@" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{5, math.NaN(), 5}); got != "+ +" {
		t.Fatalf("unexpected flat sparkline: %q", got)
	}
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
}

func TestRenderDeclines(t *testing.T) {
	ds := declineDataset()
	var buf bytes.Buffer
	err := RenderDeclines(&buf, ComputeDeclines(ds), func(county string) []float64 {
		return CountyTrend(ds, county)
	})
	if err != nil {
		t.Fatalf("render declines: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"(2006-2022)", "1.", "20.0%", "-5.0%", "Trend"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderDeclinesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDeclines(&buf, nil, nil); err != nil {
		t.Fatalf("render declines: %v", err)
	}
	if !strings.Contains(buf.String(), "No counties") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRenderSummary(t *testing.T) {
	ds := declineDataset()
	ds.Source = "irish.csv"
	ds.Path = model.PathPrimary
	var buf bytes.Buffer
	if err := RenderSummary(&buf, ds); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Counties: 3") || !strings.Contains(out, "Years: 2006, 2016, 2022") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}
