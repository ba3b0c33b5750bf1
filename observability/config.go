package observability

import (
	"time"

	"github.com/kbukum/workerbridge/errors"
)

// Config configures tracing and metrics export.
type Config struct {
	// Enabled turns OTLP export on. When false Init installs nothing.
	Enabled bool `mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `mapstructure:"endpoint"`
	// Insecure allows plain HTTP (for development).
	Insecure bool `mapstructure:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
	// Interval is the metric export interval.
	Interval time.Duration `mapstructure:"interval"`
}

// DefaultConfig returns sensible defaults for development.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
		Interval:       15 * time.Second,
	}
}

// ApplyDefaults fills empty fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig(c.ServiceName)
	if c.ServiceVersion == "" {
		c.ServiceVersion = d.ServiceVersion
	}
	if c.Environment == "" {
		c.Environment = d.Environment
	}
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return errors.InvalidInput("service_name", "required when observability is enabled")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return errors.InvalidInput("sample_rate", "must be between 0 and 1")
	}
	return nil
}
