package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsWithoutFile(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetRobotPort(); got != 2300 {
		t.Errorf("GetRobotPort() = %d, want 2300", got)
	}
	if got := cfg.GetDVSPort(); got != 2301 {
		t.Errorf("GetDVSPort() = %d, want 2301", got)
	}
	if got := cfg.GetSendQueueCap(); got != 2 {
		t.Errorf("GetSendQueueCap() = %d, want 2", got)
	}
	if got := cfg.GetRingCapacity(); got != 50 {
		t.Errorf("GetRingCapacity() = %d, want 50", got)
	}
	if got := cfg.GetEpsilon(); got != 1e-7 {
		t.Errorf("GetEpsilon() = %g, want 1e-7", got)
	}
	if got := cfg.GetSendTimeout(); got != 50*time.Millisecond {
		t.Errorf("GetSendTimeout() = %v, want 50ms", got)
	}
}

func TestLoadPartialOverrides(t *testing.T) {
	path := writeConfig(t, "durin.json", `{
		"robot_host": "10.0.0.7",
		"telemetry_queue_cap": 250,
		"send_timeout": "20ms"
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GetRobotHost() != "10.0.0.7" {
		t.Errorf("GetRobotHost() = %q", cfg.GetRobotHost())
	}
	if cfg.GetTelemetryQueueCap() != 250 {
		t.Errorf("GetTelemetryQueueCap() = %d, want 250", cfg.GetTelemetryQueueCap())
	}
	if cfg.GetSendTimeout() != 20*time.Millisecond {
		t.Errorf("GetSendTimeout() = %v, want 20ms", cfg.GetSendTimeout())
	}
	// Untouched fields keep their defaults.
	if cfg.GetRecvQueueCap() != 100 {
		t.Errorf("GetRecvQueueCap() = %d, want 100", cfg.GetRecvQueueCap())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad_port", `{"robot_port": 70000}`},
		{"zero_queue", `{"send_queue_cap": 0}`},
		{"negative_epsilon", `{"frequency_epsilon": -1}`},
		{"bad_timeout", `{"send_timeout": "soon"}`},
		{"bad_json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "durin.json", tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load accepted an invalid config")
			}
		})
	}
}

func TestLoadRequiresJSONExtension(t *testing.T) {
	path := writeConfig(t, "durin.yaml", `{}`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a non-JSON extension")
	}
}
