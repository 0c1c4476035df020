// Package logging provides a leveled wrapper over the standard logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Level represents severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

var currentLevel = int32(LevelInfo)

var baseLogger = log.New(os.Stderr, "", log.Ldate|log.Ltime)

// SetLevel parses and sets the global level. Unknown names return an error and keep the current level.
func SetLevel(s string) error {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return fmt.Errorf("unknown log level %q", s)
	}
	atomic.StoreInt32(&currentLevel, int32(l))
	return nil
}

// GetLevel returns the current global level.
func GetLevel() Level { return Level(atomic.LoadInt32(&currentLevel)) }

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	baseLogger.SetOutput(w)
}

func logf(l Level, format string, args ...any) {
	if GetLevel() > l {
		return
	}
	prefix := "INFO"
	switch l {
	case LevelDebug:
		prefix = "DEBUG"
	case LevelWarn:
		prefix = "WARN"
	case LevelError:
		prefix = "ERROR"
	}
	baseLogger.Printf("[%s] %s", prefix, fmt.Sprintf(format, args...))
}

func Debugf(format string, a ...any) { logf(LevelDebug, format, a...) }
func Infof(format string, a ...any)  { logf(LevelInfo, format, a...) }
func Warnf(format string, a ...any)  { logf(LevelWarn, format, a...) }
func Errorf(format string, a ...any) { logf(LevelError, format, a...) }

// Setup routes logs to filename. With an empty filename and quiet set, logs are
// discarded so a full-screen TUI is not overwritten; otherwise they go to stderr.
// With a filename and tui set, Bubble Tea's own logger writes to the same file.
func Setup(filename string, quiet, tui bool) (cleanup func(), err error) {
	if filename == "" {
		if quiet {
			SetOutput(io.Discard)
		} else {
			SetOutput(os.Stderr)
		}
		return func() {}, nil
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	SetOutput(f)
	if !tui {
		return func() { _ = f.Close() }, nil
	}

	tf, err := tea.LogToFile(filename, "tea")
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open tea log file: %w", err)
	}
	return func() {
		_ = tf.Close()
		_ = f.Close()
	}, nil
}
