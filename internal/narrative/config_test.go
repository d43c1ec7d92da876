package narrative

import (
	"strings"
	"testing"
	"time"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown water mode",
			mutate:  func(c *Config) { c.WaterMode = "flood" },
			wantErr: "water mode",
		},
		{
			name:    "unknown monitor mode",
			mutate:  func(c *Config) { c.MonitorMode = "" },
			wantErr: "monitor mode",
		},
		{
			name:    "zero rise interval",
			mutate:  func(c *Config) { c.RiseInterval = 0 },
			wantErr: "rise interval",
		},
		{
			name:    "negative fail delay",
			mutate:  func(c *Config) { c.MonitorFailAfter = -time.Second },
			wantErr: "fail delay",
		},
		{
			name:    "zero recover delay",
			mutate:  func(c *Config) { c.MonitorRecoverAfter = 0 },
			wantErr: "recover delay",
		},
		{
			name:    "missing stage log",
			mutate:  func(c *Config) { c.Script.Stages[2].Log = "" },
			wantErr: "stage 3",
		},
		{
			name:    "missing reboot message",
			mutate:  func(c *Config) { c.Script.Reboot = "" },
			wantErr: "reboot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestScriptFor(t *testing.T) {
	s := DefaultScript()
	if _, ok := s.For(v1alpha1.StageIdle); ok {
		t.Error("StageIdle should have no script")
	}
	st, ok := s.For(v1alpha1.StageAnalysis)
	if !ok {
		t.Fatal("expected script for StageAnalysis")
	}
	if !strings.HasPrefix(st.Title, "3.") {
		t.Errorf("Title = %q, want a title starting with 3.", st.Title)
	}
}
