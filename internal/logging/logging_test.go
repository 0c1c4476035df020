package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogfFormatsPercentArgs(t *testing.T) {
	var buf bytes.Buffer
	saved := baseLogger
	baseLogger = log.New(&buf, "", 0)
	defer func() { baseLogger = saved }()

	if err := SetLevel("info"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Infof("%s", "Galway County 9.8% can speak Irish")

	out := buf.String()
	if !strings.Contains(out, "[INFO] Galway County 9.8% can speak Irish") {
		t.Fatalf("unexpected log output: %q", out)
	}
	if strings.Contains(out, "MISSING") {
		t.Fatalf("log output has fmt artifact: %q", out)
	}

	buf.Reset()
	Warnf("%s dropped to %.1f%%", "Kerry", 38.0)
	if got := buf.String(); got != "[WARN] Kerry dropped to 38.0%\n" {
		t.Fatalf("unexpected escaped percent output: %q", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	saved := baseLogger
	baseLogger = log.New(&buf, "", 0)
	defer func() {
		baseLogger = saved
		_ = SetLevel("info")
	}()

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Fatalf("expected debug/info to be filtered: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") || !strings.Contains(out, "[ERROR] error 4") {
		t.Fatalf("expected warn/error lines: %q", out)
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	before := GetLevel()
	if err := SetLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if GetLevel() != before {
		t.Fatalf("level changed on invalid input")
	}
}

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaelchart.log")
	cleanup, err := Setup(path, false, false)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer SetOutput(bytes.NewBuffer(nil))
	Errorf("boom")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[ERROR] boom") {
		t.Fatalf("expected log line in file, got %q", string(data))
	}
}
