package main

import (
	"github.com/kbukum/workerbridge/config"
	"github.com/kbukum/workerbridge/observability"
	"github.com/kbukum/workerbridge/server"
	"github.com/kbukum/workerbridge/transport/framed"
	"github.com/kbukum/workerbridge/validation"
	"github.com/kbukum/workerbridge/version"
)

const (
	modeServe = "serve"
	modeStdio = "stdio"
)

// AppConfig is the workerbridge binary configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Mode          string               `yaml:"mode" mapstructure:"mode" validate:"oneof=serve stdio"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Stdio         StdioConfig          `yaml:"stdio" mapstructure:"stdio"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// StdioConfig serves a single worker over length-prefixed stdin/stdout.
type StdioConfig struct {
	Worker       string `yaml:"worker" mapstructure:"worker"`
	Codec        string `yaml:"codec" mapstructure:"codec"`
	MaxFrameSize int    `yaml:"max_frame_size" mapstructure:"max_frame_size" validate:"gte=0"`
}

func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "workerbridge"
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Mode == "" {
		c.Mode = modeServe
	}
	c.Server.ApplyDefaults()
	if c.Stdio.Codec == "" {
		c.Stdio.Codec = "cbor"
	}
	if c.Stdio.MaxFrameSize == 0 {
		c.Stdio.MaxFrameSize = framed.DefaultMaxFrameSize
	}
}

func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	return validation.New().
		Check(c.Mode != modeStdio || c.Stdio.Worker != "", "stdio.worker", "is required in stdio mode").
		Err()
}

func (c *AppConfig) GetObservability() *observability.Config {
	return &c.Observability
}
