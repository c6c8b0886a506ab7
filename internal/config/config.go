// Package config provides configuration management for the Lynk & Co cloud client.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including the auth directory, proxy configuration,
// polling interval, and dark-hours window.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Scan interval bounds, in minutes.
const (
	MinScanInterval     = 60
	MaxScanInterval     = 1440
	DefaultScanInterval = 120
)

// Default dark-hours window (hour of day, 0-23).
const (
	DefaultDarkHoursStart = 1
	DefaultDarkHoursEnd   = 5
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// AuthDir is the directory where credential and entry files are stored.
	AuthDir string `yaml:"auth-dir" json:"auth-dir"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// Debug enables verbose logging when true.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile switches log output from stdout to rotating files under the auth directory.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// Experimental enables experimental features.
	Experimental bool `yaml:"experimental" json:"experimental"`

	// ScanInterval is the vehicle polling interval in minutes. Values outside
	// [MinScanInterval, MaxScanInterval] are clamped on load.
	ScanInterval int `yaml:"scan-interval" json:"scan-interval"`

	// DarkHoursStart is the hour of day (0-23) when polling slows down.
	DarkHoursStart int `yaml:"dark-hours-start" json:"dark-hours-start"`

	// DarkHoursEnd is the hour of day (0-23) when normal polling resumes.
	DarkHoursEnd int `yaml:"dark-hours-end" json:"dark-hours-end"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		AuthDir:        "~/.lynkcloud",
		ScanInterval:   DefaultScanInterval,
		DarkHoursStart: DefaultDarkHoursStart,
		DarkHoursEnd:   DefaultDarkHoursEnd,
	}
}

// LoadConfig reads a YAML configuration file from the given path, applies
// defaults for unset fields, and clamps out-of-range values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.clampOptions()
	return cfg, nil
}

// clampOptions forces option values into their allowed ranges, logging any adjustment.
func (c *Config) clampOptions() {
	if c.ScanInterval == 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if c.ScanInterval < MinScanInterval || c.ScanInterval > MaxScanInterval {
		clamped := min(max(c.ScanInterval, MinScanInterval), MaxScanInterval)
		log.WithFields(log.Fields{
			"min":        MinScanInterval,
			"max":        MaxScanInterval,
			"clamped_to": clamped,
		}).Warnf("scan-interval %d out of range", c.ScanInterval)
		c.ScanInterval = clamped
	}
	c.DarkHoursStart = clampHour("dark-hours-start", c.DarkHoursStart)
	c.DarkHoursEnd = clampHour("dark-hours-end", c.DarkHoursEnd)
}

func clampHour(name string, hour int) int {
	if hour < 0 || hour > 23 {
		clamped := min(max(hour, 0), 23)
		log.WithFields(log.Fields{
			"min":        0,
			"max":        23,
			"clamped_to": clamped,
		}).Warnf("%s %d out of range", name, hour)
		return clamped
	}
	return hour
}

// ResolveAuthDir expands a leading "~" in the configured auth directory and
// returns an absolute path.
func ResolveAuthDir(authDir string) (string, error) {
	dir := strings.TrimSpace(authDir)
	if dir == "" {
		dir = "~/.lynkcloud"
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve auth directory: %w", err)
	}
	return abs, nil
}
