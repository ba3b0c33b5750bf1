// Package logger provides structured logging for workerbridge using
// zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("workerbridge").WithComponent("bridge")
//	log.Info("wiring started", logger.Fields("mode", "unit"))
package logger
