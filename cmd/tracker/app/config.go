package app

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/balloon-tracker/internal/estimate"
	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

const (
	defaultDataDirectory = "Launch Data"
	defaultSchedule      = "@every 10s"
	defaultLogLevel      = "info"
	archiveFileName      = "archive.sqlite"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Sources  []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel      string `yaml:"logLevel" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	LogFile       string `yaml:"logFile"`
	LogMaxSizeMB  int    `yaml:"logMaxSizeMB" validate:"gte=0"`
	LogMaxBackups int    `yaml:"logMaxBackups" validate:"gte=0"`
}

// TrackerConfig represents the fusion engine settings
type TrackerConfig struct {
	DataDirectory string `yaml:"dataDirectory" validate:"required"`
	Policy        string `yaml:"policy"`
	Schedule      string `yaml:"schedule" validate:"required"`
	Archive       bool   `yaml:"archive"`
}

// SourceConfig represents a single telemetry feed
type SourceConfig struct {
	Kind     string        `yaml:"kind" validate:"required"`
	Identity string        `yaml:"identity" validate:"required"`
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseURL" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// MetricsConfig represents the Prometheus endpoint settings. An empty Listen
// address disables the endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Endpoint returns the connection settings of the source.
func (s *SourceConfig) Endpoint() telemetry.Endpoint {
	return telemetry.Endpoint{
		BaseURL: s.BaseURL,
		APIKey:  s.APIKey,
		Timeout: s.Timeout,
	}
}

// LoadConfig reads the YAML configuration at path. Environment variables in
// the file are expanded before parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses, defaults and validates a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaultLogLevel
	}
	if c.Tracker.DataDirectory == "" {
		c.Tracker.DataDirectory = defaultDataDirectory
	}
	if c.Tracker.Policy == "" {
		c.Tracker.Policy = estimate.PolicyAverage.String()
	}
	if c.Tracker.Schedule == "" {
		c.Tracker.Schedule = defaultSchedule
	}
}

// Validate checks field constraints, the policy name and every source kind.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	if _, err := estimate.ParsePolicy(c.Tracker.Policy); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	for i := range c.Sources {
		if _, err := telemetry.ParseSourceKind(c.Sources[i].Kind); err != nil {
			return fmt.Errorf("validating configuration: source %d: %w", i, err)
		}
	}

	return nil
}
