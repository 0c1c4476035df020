// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Data   DataConfig   `toml:"data"`
	Chart  ChartConfig  `toml:"chart"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// DataConfig maps dataset loading settings.
type DataConfig struct {
	Source       *string `toml:"source"`
	DefaultYear  *string `toml:"default-year"`
	StallTimeout *string `toml:"stall-timeout"`
	Fallback     *bool   `toml:"fallback"`
	DBPath       *string `toml:"db"`
}

// ChartConfig maps presentation settings.
type ChartConfig struct {
	Thresholds []float64 `toml:"thresholds"`
	Breakpoint *int      `toml:"breakpoint"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// StallTimeoutValue parses the stall-timeout string, if set.
func (c DataConfig) StallTimeoutValue() (*time.Duration, error) {
	if c.StallTimeout == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(*c.StallTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid data.stall-timeout: %w", err)
	}
	return &d, nil
}

func (c FileConfig) validate() error {
	if _, err := c.Data.StallTimeoutValue(); err != nil {
		return err
	}
	if n := len(c.Chart.Thresholds); n != 0 && n != 6 {
		return fmt.Errorf("chart.thresholds must list 6 ascending bounds, got %d", n)
	}
	for i := 1; i < len(c.Chart.Thresholds); i++ {
		if c.Chart.Thresholds[i] <= c.Chart.Thresholds[i-1] {
			return fmt.Errorf("chart.thresholds must be strictly ascending")
		}
	}
	if c.Chart.Breakpoint != nil && *c.Chart.Breakpoint <= 0 {
		return fmt.Errorf("chart.breakpoint must be > 0")
	}
	return nil
}
