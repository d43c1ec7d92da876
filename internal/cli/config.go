package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/kelos-dev/floodwatch/internal/autoplay"
	"github.com/kelos-dev/floodwatch/internal/narrative"
)

// Config is the floodwatch configuration file.
type Config struct {
	Water    WaterConfig    `json:"water,omitempty"`
	Monitor  MonitorConfig  `json:"monitor,omitempty"`
	Autoplay AutoplayConfig `json:"autoplay,omitempty"`
	Log      LogConfig      `json:"log,omitempty"`
	Metrics  MetricsConfig  `json:"metrics,omitempty"`

	// Script replaces the narrative copy when set.
	Script *narrative.Script `json:"script,omitempty"`
}

// WaterConfig configures the detection stage.
type WaterConfig struct {
	Mode         string           `json:"mode,omitempty"`
	RiseInterval *metav1.Duration `json:"riseInterval,omitempty"`
}

// MonitorConfig configures the monitoring stage.
type MonitorConfig struct {
	Mode         string           `json:"mode,omitempty"`
	FailAfter    *metav1.Duration `json:"failAfter,omitempty"`
	RecoverAfter *metav1.Duration `json:"recoverAfter,omitempty"`
}

// AutoplayConfig configures the scripted walkthrough driver.
type AutoplayConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Advance string `json:"advance,omitempty"`
	Rain    string `json:"rain,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	BindAddress string `json:"bindAddress,omitempty"`
}

// DefaultConfigPath returns ~/.floodwatch/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".floodwatch", "config.yaml"), nil
}

// LoadConfig reads the config file at path. A missing file yields an empty
// Config unless required is set.
func LoadConfig(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// NarrativeConfig merges the file onto the narrative defaults.
func (c *Config) NarrativeConfig() narrative.Config {
	out := narrative.DefaultConfig()
	if c.Water.Mode != "" {
		out.WaterMode = narrative.WaterMode(c.Water.Mode)
	}
	if c.Water.RiseInterval != nil {
		out.RiseInterval = c.Water.RiseInterval.Duration
	}
	if c.Monitor.Mode != "" {
		out.MonitorMode = narrative.MonitorMode(c.Monitor.Mode)
	}
	if c.Monitor.FailAfter != nil {
		out.MonitorFailAfter = c.Monitor.FailAfter.Duration
	}
	if c.Monitor.RecoverAfter != nil {
		out.MonitorRecoverAfter = c.Monitor.RecoverAfter.Duration
	}
	if c.Script != nil {
		out.Script = *c.Script
	}
	return out
}

// AutoplayEnabled reports whether the file turns autoplay on.
func (c *Config) AutoplayEnabled() bool {
	return ptr.Deref(c.Autoplay.Enabled, false)
}

// AutoplayConfig merges the file onto the autoplay defaults.
func (c *Config) AutoplayConfig() autoplay.Config {
	out := autoplay.DefaultConfig()
	if c.Autoplay.Advance != "" {
		out.Advance = c.Autoplay.Advance
	}
	if c.Autoplay.Rain != "" {
		out.Rain = c.Autoplay.Rain
	}
	return out
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := c.NarrativeConfig().Validate(); err != nil {
		return err
	}
	if err := c.AutoplayConfig().Validate(); err != nil {
		return fmt.Errorf("autoplay: %w", err)
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
