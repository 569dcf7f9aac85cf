// Package config loads host-side configuration for the robot links and the
// DVS control plane. Fields are pointers so a partial JSON file only
// overrides what it names; the Get* accessors fall back to the reference
// defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Reference defaults for the communication layer.
const (
	DefaultRobotPort     = 2300
	DefaultTelemetryPort = 4300
	DefaultDVSPort       = 2301

	DefaultSendQueueCap      = 2
	DefaultRecvQueueCap      = 100
	DefaultTelemetryQueueCap = 100

	DefaultRingCapacity = 50
	DefaultEpsilon      = 1e-7

	DefaultSendTimeout = 50 * time.Millisecond
)

// Config is the host-side configuration surface.
type Config struct {
	RobotHost     *string `json:"robot_host,omitempty"`
	RobotPort     *int    `json:"robot_port,omitempty"`
	TelemetryPort *int    `json:"telemetry_port,omitempty"`
	DVSPort       *int    `json:"dvs_port,omitempty"`

	SendQueueCap      *int `json:"send_queue_cap,omitempty"`
	RecvQueueCap      *int `json:"recv_queue_cap,omitempty"`
	TelemetryQueueCap *int `json:"telemetry_queue_cap,omitempty"`

	RingCapacity *int     `json:"ring_capacity,omitempty"`
	Epsilon      *float64 `json:"frequency_epsilon,omitempty"`

	// SendTimeout is a duration string like "50ms".
	SendTimeout *string `json:"send_timeout,omitempty"`
}

// Load reads a JSON config file. Fields omitted from the file keep their
// defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values that can be checked without
// touching the network.
func (c *Config) Validate() error {
	for name, p := range map[string]*int{
		"robot_port":     c.RobotPort,
		"telemetry_port": c.TelemetryPort,
		"dvs_port":       c.DVSPort,
	} {
		if p != nil && (*p < 0 || *p > 65535) {
			return fmt.Errorf("%s must be a valid port, got %d", name, *p)
		}
	}
	for name, p := range map[string]*int{
		"send_queue_cap":      c.SendQueueCap,
		"recv_queue_cap":      c.RecvQueueCap,
		"telemetry_queue_cap": c.TelemetryQueueCap,
		"ring_capacity":       c.RingCapacity,
	} {
		if p != nil && *p < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *p)
		}
	}
	if c.Epsilon != nil && *c.Epsilon <= 0 {
		return fmt.Errorf("frequency_epsilon must be positive, got %g", *c.Epsilon)
	}
	if c.SendTimeout != nil && *c.SendTimeout != "" {
		if _, err := time.ParseDuration(*c.SendTimeout); err != nil {
			return fmt.Errorf("invalid send_timeout %q: %w", *c.SendTimeout, err)
		}
	}
	return nil
}

func (c *Config) GetRobotHost() string {
	if c.RobotHost != nil {
		return *c.RobotHost
	}
	return ""
}

func (c *Config) GetRobotPort() int {
	if c.RobotPort != nil {
		return *c.RobotPort
	}
	return DefaultRobotPort
}

func (c *Config) GetTelemetryPort() int {
	if c.TelemetryPort != nil {
		return *c.TelemetryPort
	}
	return DefaultTelemetryPort
}

func (c *Config) GetDVSPort() int {
	if c.DVSPort != nil {
		return *c.DVSPort
	}
	return DefaultDVSPort
}

func (c *Config) GetSendQueueCap() int {
	if c.SendQueueCap != nil {
		return *c.SendQueueCap
	}
	return DefaultSendQueueCap
}

func (c *Config) GetRecvQueueCap() int {
	if c.RecvQueueCap != nil {
		return *c.RecvQueueCap
	}
	return DefaultRecvQueueCap
}

func (c *Config) GetTelemetryQueueCap() int {
	if c.TelemetryQueueCap != nil {
		return *c.TelemetryQueueCap
	}
	return DefaultTelemetryQueueCap
}

func (c *Config) GetRingCapacity() int {
	if c.RingCapacity != nil {
		return *c.RingCapacity
	}
	return DefaultRingCapacity
}

func (c *Config) GetEpsilon() float64 {
	if c.Epsilon != nil {
		return *c.Epsilon
	}
	return DefaultEpsilon
}

func (c *Config) GetSendTimeout() time.Duration {
	if c.SendTimeout != nil && *c.SendTimeout != "" {
		if d, err := time.ParseDuration(*c.SendTimeout); err == nil {
			return d
		}
	}
	return DefaultSendTimeout
}
