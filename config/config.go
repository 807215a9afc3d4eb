// Package config provides YAML configuration parsing for the bridge.
//
// This package enables running the bridge as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	sensor:
//	  address: 192.168.86.31
//	  auth: ${NEURIO_AUTH:-}
//	  timeout: 10s
//
//	store:
//	  address: tcp://127.0.0.1:7090
//	  prefix: /CONSUMPTION
//
//	poll_interval: 1s
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/varbridge/neuriovars/internal/sensor"
	"github.com/varbridge/neuriovars/internal/varstore"
)

// minPollInterval is the minimum allowed polling interval.
// The sensor produces one sample per second, so polling faster than 1 Hz
// only rereads the same sample.
const minPollInterval = 1 * time.Second

// Config is the root configuration structure for the bridge.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Sensor configures the polled energy sensor.
	Sensor SensorConfig `yaml:"sensor"`

	// Store configures the variable store the readings are published to.
	Store StoreConfig `yaml:"store"`

	// PollInterval is the time between sensor polls.
	// Accepts duration strings like "1s", "500ms", "1m".
	// Defaults to 1s.
	PollInterval Duration `yaml:"poll_interval"`

	// Verbose lowers the log level to Debug.
	Verbose bool `yaml:"verbose"`
}

// SensorConfig defines the sensor endpoint to poll.
type SensorConfig struct {
	// Address is the sensor host, e.g. "192.168.86.31" or
	// "http://neurio.local". Defaults to 192.168.86.31.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Address string `yaml:"address"`

	// Auth is the pre-encoded Basic credential sent verbatim in the
	// Authorization header. Empty sends no Authorization header.
	// Values support environment variable substitution.
	Auth string `yaml:"auth"`

	// Timeout is the per-request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`
}

// StoreConfig defines the variable store connection.
type StoreConfig struct {
	// Address is the store address: "tcp://host:port", "unix:///path",
	// or a bare "host:port" (implies tcp).
	// Defaults to tcp://127.0.0.1:7090.
	// Supports environment variable substitution.
	Address string `yaml:"address"`

	// Prefix is the variable name prefix, e.g. "/CONSUMPTION".
	// Must start with a slash. Defaults to /CONSUMPTION.
	Prefix string `yaml:"prefix"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the sensor address, auth, store
// address, and prefix values. Defaults are applied for the sensor address
// (192.168.86.31), timeout (10s), poll interval (1s), store address
// (tcp://127.0.0.1:7090), and prefix (/CONSUMPTION).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Sensor.Address == "" {
		cfg.Sensor.Address = "192.168.86.31"
	}
	if cfg.Sensor.Timeout == 0 {
		cfg.Sensor.Timeout = Duration(10 * time.Second)
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(1 * time.Second)
	}
	if cfg.Store.Address == "" {
		cfg.Store.Address = "tcp://127.0.0.1:7090"
	}
	if cfg.Store.Prefix == "" {
		cfg.Store.Prefix = "/CONSUMPTION"
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	expanded, err := expandEnvVars(c.Sensor.Address)
	if err != nil {
		return fmt.Errorf("sensor: address: %w", err)
	}
	c.Sensor.Address = expanded
	if c.Sensor.Address == "" {
		return fmt.Errorf("sensor: address is empty after expansion")
	}
	// fail fast before the bridge dials
	if _, err := sensor.SampleURL(c.Sensor.Address); err != nil {
		return fmt.Errorf("sensor: invalid address: %w", err)
	}

	expanded, err = expandEnvVars(c.Sensor.Auth)
	if err != nil {
		return fmt.Errorf("sensor: auth: %w", err)
	}
	c.Sensor.Auth = expanded

	if c.Sensor.Timeout != 0 {
		if c.Sensor.Timeout.Duration() < 0 {
			return fmt.Errorf("sensor: timeout cannot be negative, got %s", c.Sensor.Timeout.Duration())
		}
		if c.Sensor.Timeout.Duration() < time.Second {
			return fmt.Errorf("sensor: timeout must be at least 1s if specified, got %s", c.Sensor.Timeout.Duration())
		}
	}

	expanded, err = expandEnvVars(c.Store.Address)
	if err != nil {
		return fmt.Errorf("store: address: %w", err)
	}
	c.Store.Address = expanded
	if _, _, err := varstore.SplitAddress(c.Store.Address); err != nil {
		return fmt.Errorf("store: invalid address: %w", err)
	}

	expanded, err = expandEnvVars(c.Store.Prefix)
	if err != nil {
		return fmt.Errorf("store: prefix: %w", err)
	}
	c.Store.Prefix = expanded
	if !strings.HasPrefix(c.Store.Prefix, "/") {
		return fmt.Errorf("store: prefix must start with a slash, got %q", c.Store.Prefix)
	}
	if strings.HasSuffix(c.Store.Prefix, "/") {
		return fmt.Errorf("store: prefix must not end with a slash, got %q", c.Store.Prefix)
	}

	return nil
}
