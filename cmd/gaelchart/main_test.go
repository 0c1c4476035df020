package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/gaelchart/internal/config"
	"github.com/verte-zerg/gaelchart/internal/presenter"
)

const sampleCSV = `Year,County,PercentageIrishSpeakers
2016,Galway,50
2016,Kerry,40
2022,Galway,45
2022,Kerry,38
`

type testEnv struct {
	csv string
	db  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return testEnv{csv: csvPath, db: filepath.Join(dir, "history.db")}
}

func runCLI(t *testing.T, env testEnv, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	full := append([]string{}, args...)
	full = append(full, "--source", env.csv, "--db", env.db, "--log-level", "error")
	root.SetArgs(full)
	err := root.Execute()
	return out.String(), err
}

func TestYearsCommandListsSortedYears(t *testing.T) {
	env := newTestEnv(t)
	out, err := runCLI(t, env, "years")
	if err != nil {
		t.Fatalf("years: %v", err)
	}
	if out != "2016\n2022\n" {
		t.Fatalf("unexpected years output: %q", out)
	}
}

func TestDeclinesOfflineUsesRecordedLoad(t *testing.T) {
	env := newTestEnv(t)
	if _, err := runCLI(t, env, "years"); err != nil {
		t.Fatalf("years: %v", err)
	}

	out, err := runCLI(t, env, "declines", "--offline")
	if err != nil {
		t.Fatalf("declines --offline: %v", err)
	}
	galway := strings.Index(out, "Galway")
	kerry := strings.Index(out, "Kerry")
	if galway < 0 || kerry < 0 || galway > kerry {
		t.Fatalf("expected Galway ranked above Kerry:\n%s", out)
	}
	if !strings.Contains(out, "2016-2022") || !strings.Contains(out, "5.0%") {
		t.Fatalf("unexpected declines output:\n%s", out)
	}

	history, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(history, "primary") || !strings.Contains(history, "ok") {
		t.Fatalf("unexpected history output:\n%s", history)
	}
}

func TestDeclinesOfflineWithoutHistoryFails(t *testing.T) {
	env := newTestEnv(t)
	if _, err := runCLI(t, env, "declines", "--offline"); err == nil {
		t.Fatalf("expected error without a stored dataset")
	}
}

func TestBarsCommandReportsMissingYear(t *testing.T) {
	env := newTestEnv(t)
	out, err := runCLI(t, env, "bars", "--year", "1999", "--width", "60", "--no-color")
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if out != "No data for 1999\n" {
		t.Fatalf("unexpected bars output: %q", out)
	}
}

func TestFigureCommandFallsBackToLatestYear(t *testing.T) {
	env := newTestEnv(t)
	out, err := runCLI(t, env, "figure", "--width", "500", "--animated=false")
	if err != nil {
		t.Fatalf("figure: %v", err)
	}
	var fig struct {
		Year   string            `json:"year"`
		Frames []json.RawMessage `json:"frames"`
		Layout struct {
			XAxis struct {
				TickAngle int `json:"tickangle"`
			} `json:"xaxis"`
		} `json:"layout"`
	}
	if err := json.Unmarshal([]byte(out), &fig); err != nil {
		t.Fatalf("decode figure: %v\n%s", err, out)
	}
	if fig.Year != "2022" {
		t.Fatalf("expected year 2022, got %q", fig.Year)
	}
	if len(fig.Frames) != 0 {
		t.Fatalf("expected no frames for a static figure, got %d", len(fig.Frames))
	}
	if fig.Layout.XAxis.TickAngle != -90 {
		t.Fatalf("expected mobile tick angle -90, got %d", fig.Layout.XAxis.TickAngle)
	}
}

func TestExportAndPNGWriteFiles(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "out", "speakers.xlsx")
	if _, err := runCLI(t, env, "export", "--out", xlsx); err != nil {
		t.Fatalf("export: %v", err)
	}
	png := filepath.Join(dir, "2016.png")
	if _, err := runCLI(t, env, "png", "--year", "2016", "--out", png, "--width", "400", "--height", "300"); err != nil {
		t.Fatalf("png: %v", err)
	}
	for _, path := range []string{xlsx, png} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", path)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestMissingSourceFailsWithoutFallback(t *testing.T) {
	env := newTestEnv(t)
	env.csv = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := runCLI(t, env, "years", "--no-fallback"); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestConfigFileAppliesUnderFlags(t *testing.T) {
	env := newTestEnv(t)
	cfgPath := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "[data]\ndefault-year = \"2016\"\nstall-timeout = \"3s\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCLI(t, env, "bars", "--width", "60", "--no-color")
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if !strings.Contains(out, "(2016)") {
		t.Fatalf("expected config default year 2016:\n%s", out)
	}
	if stallTimeout != 3*time.Second {
		t.Fatalf("expected stall timeout from config, got %v", stallTimeout)
	}

	out, err = runCLI(t, env, "bars", "--year", "2022", "--width", "60", "--no-color")
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if !strings.Contains(out, "(2022)") {
		t.Fatalf("expected flag to override config year:\n%s", out)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gaelchart", "config.toml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("write default config: %v", err)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Fatalf("load default config: %v", err)
	}

	uncommented := uncommentTemplate(defaultConfigTemplate())
	if err := os.WriteFile(path, []byte(uncommented), 0o644); err != nil {
		t.Fatalf("write uncommented config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load uncommented config: %v\n%s", err, uncommented)
	}
	if cfg.Data.Source == nil || *cfg.Data.Source != defaultSource {
		t.Fatalf("unexpected source: %+v", cfg.Data.Source)
	}
	p, err := buildPresenter(cfg.Chart)
	if err != nil {
		t.Fatalf("build presenter: %v", err)
	}
	if p.Scale() != presenter.DefaultScale() {
		t.Fatalf("expected default scale, got %+v", p.Scale())
	}
}

func TestBuildPresenterRejectsBadThresholds(t *testing.T) {
	_, err := buildPresenter(config.ChartConfig{Thresholds: []float64{10, 20, 30}})
	if err == nil {
		t.Fatalf("expected threshold error")
	}
}

func uncommentTemplate(tmpl string) string {
	lines := strings.Split(tmpl, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, "=") {
			lines[i] = strings.TrimPrefix(line, "# ")
		}
	}
	return strings.Join(lines, "\n")
}
