package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthConfig controls token validation for the API and the event stream.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	LeewaySeconds int    `yaml:"leeway_seconds"`
}

// Leeway returns the configured clock-skew allowance.
func (c AuthConfig) Leeway() time.Duration {
	return time.Duration(c.LeewaySeconds) * time.Second
}

// StreamConfig controls the event stream endpoint.
type StreamConfig struct {
	ChannelCapacity   int    `yaml:"channel_capacity"`
	HeartbeatInterval string `yaml:"heartbeat_interval"`
}

// ParseHeartbeatInterval parses the keep-alive interval.
func (c StreamConfig) ParseHeartbeatInterval() (time.Duration, error) {
	return time.ParseDuration(c.HeartbeatInterval)
}

// MaintenanceConfig controls the background maintenance schedules.
// Schedules are standard 5-field cron expressions or descriptors like
// @hourly. An empty heartbeat_schedule disables the global heartbeat.
type MaintenanceConfig struct {
	SweepSchedule     string `yaml:"sweep_schedule"`
	HeartbeatSchedule string `yaml:"heartbeat_schedule"`
}

// Config is the top-level daemon configuration parsed from perkstream.yaml.
type Config struct {
	Listen      string            `yaml:"listen"`
	DataDir     string            `yaml:"data_dir"`
	LogLevel    string            `yaml:"log_level"`
	Auth        AuthConfig        `yaml:"auth"`
	Stream      StreamConfig      `yaml:"stream"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

func applyDefaults(c *Config) {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.DataDir = expandPath(c.DataDir)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv("PERKSTREAM_JWT_SECRET")
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "development-secret-change-in-production"
	}
	if c.Auth.LeewaySeconds <= 0 {
		c.Auth.LeewaySeconds = 60
	}
	if c.Stream.ChannelCapacity <= 0 {
		c.Stream.ChannelCapacity = 100
	}
	if c.Stream.HeartbeatInterval == "" {
		c.Stream.HeartbeatInterval = "30s"
	}
	if c.Maintenance.SweepSchedule == "" {
		c.Maintenance.SweepSchedule = "*/10 * * * *"
	}
}

func expandPath(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return value
	}

	v = os.ExpandEnv(v)

	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return v
	}

	if v == "~" {
		return home
	}
	if strings.HasPrefix(v, "~/") {
		return filepath.Join(home, v[2:])
	}
	if strings.HasPrefix(v, "~\\") {
		return filepath.Join(home, v[2:])
	}
	return v
}

// LoadConfig reads a YAML configuration file from path and returns
// a Config with defaults applied for any unset fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}
