package server

import (
	"fmt"

	"github.com/kbukum/workerbridge/security"
	"github.com/kbukum/workerbridge/server/middleware"
	"github.com/kbukum/workerbridge/validation"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"` // seconds
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"gte=0"`   // seconds

	// Codec is used when a connection does not ask for one.
	Codec string `yaml:"codec" mapstructure:"codec" validate:"required"`
	// SealKey, when set, encrypts every envelope with the chosen codec.
	SealKey string `yaml:"seal_key" mapstructure:"seal_key"`
	// AllowedOrigins restricts websocket origins. "*" allows any; empty
	// requires the same host.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadBuffer     int      `yaml:"read_buffer" mapstructure:"read_buffer" validate:"gte=0"`
	WriteBuffer    int      `yaml:"write_buffer" mapstructure:"write_buffer" validate:"gte=0"`

	Auth middleware.AuthConfig `yaml:"auth" mapstructure:"auth"`
	// TLS serves wss:// when a certificate is set. A CA file turns on mTLS.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.Codec == "" {
		c.Codec = "json"
	}
	if c.ReadBuffer == 0 {
		c.ReadBuffer = 4096
	}
	if c.WriteBuffer == 0 {
		c.WriteBuffer = 4096
	}
	c.Auth.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.TLS.Validate()
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
