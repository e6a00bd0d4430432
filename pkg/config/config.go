// Package config loads the agent configuration for the bootmon binary from a
// YAML file with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
)

// Config is the full agent configuration.
type Config struct {
	// App identifies the monitored application.
	App AppConfig `yaml:"app"`

	// Server configures the HTTP listener hosting the actuator endpoints.
	Server ServerConfig `yaml:"server"`

	// Registration configures the periodic self-registration. Disabled
	// when RegistryURL is empty.
	Registration RegistrationConfig `yaml:"registration"`

	// Health configures the built-in disk-space indicator.
	Health HealthConfig `yaml:"health"`

	// Trace bounds the HTTP exchange history.
	Trace TraceConfig `yaml:"trace"`

	// Log configures operational logging.
	Log LogConfig `yaml:"log"`
}

// AppConfig is the static application metadata served by the info endpoint.
type AppConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// BasePath is where the actuator endpoints are mounted.
	BasePath string `yaml:"basePath"`

	// PublicURL is the externally reachable base URL reported to the
	// registry. Defaults to "http://localhost<addr>".
	PublicURL string `yaml:"publicUrl"`
}

// RegistrationConfig configures the registry client.
type RegistrationConfig struct {
	// RegistryURL is the registration endpoint of the monitoring registry.
	RegistryURL string `yaml:"registryUrl"`

	// Interval between registration attempts.
	Interval time.Duration `yaml:"interval"`

	// Timeout per registration request.
	Timeout time.Duration `yaml:"timeout"`

	// Metadata is extra key/value metadata sent with each registration.
	Metadata map[string]string `yaml:"metadata"`
}

// HealthConfig configures the disk-space indicator.
type HealthConfig struct {
	// DiskPath is the filesystem path whose free space is checked.
	DiskPath string `yaml:"diskPath"`

	// DiskThresholdBytes is the free-space floor below which health is DOWN.
	DiskThresholdBytes uint64 `yaml:"diskThresholdBytes"`
}

// TraceConfig bounds the trace history.
type TraceConfig struct {
	// Capacity is the maximum number of retained exchanges.
	Capacity int `yaml:"capacity"`
}

// LogConfig configures operational logging.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file and no overrides are
// present.
func Default() Config {
	return Config{
		App:    AppConfig{Name: "bootmon"},
		Server: ServerConfig{Addr: ":8080", BasePath: "/actuator"},
		Registration: RegistrationConfig{
			Interval: 10 * time.Second,
			Timeout:  5 * time.Second,
		},
		Trace: TraceConfig{Capacity: 100},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration from path, falling back to defaults when path
// is empty, then applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values from BOOTMON_* environment variables.
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("BOOTMON_APP_NAME", &cfg.App.Name)
	setString("BOOTMON_APP_VERSION", &cfg.App.Version)
	setString("BOOTMON_ADDR", &cfg.Server.Addr)
	setString("BOOTMON_BASE_PATH", &cfg.Server.BasePath)
	setString("BOOTMON_PUBLIC_URL", &cfg.Server.PublicURL)
	setString("BOOTMON_REGISTRY_URL", &cfg.Registration.RegistryURL)
	setString("BOOTMON_LOG_LEVEL", &cfg.Log.Level)
	setString("BOOTMON_LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("BOOTMON_REGISTRATION_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Registration.Interval = d
		}
	}
	if v := os.Getenv("BOOTMON_TRACE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Trace.Capacity = n
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("config: app.name must not be empty")
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr must not be empty")
	}
	if c.Server.BasePath == "" || c.Server.BasePath[0] != '/' {
		return fmt.Errorf("config: server.basePath %q must start with '/'", c.Server.BasePath)
	}
	if c.Registration.Interval < 0 {
		return errors.New("config: registration.interval must not be negative")
	}
	if c.Trace.Capacity < 0 {
		return errors.New("config: trace.capacity must not be negative")
	}
	return nil
}
