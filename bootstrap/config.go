package bootstrap

import (
	"github.com/kbukum/workerbridge/config"
	"github.com/kbukum/workerbridge/observability"
)

// Config is satisfied by any struct embedding config.ServiceConfig.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// TelemetryConfig is implemented by configs that carry observability
// settings.
type TelemetryConfig interface {
	GetObservability() *observability.Config
}
