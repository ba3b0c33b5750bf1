// Package config loads service configuration from a YAML file, an optional
// .env file and prefixed environment variables.
//
// Command-line flags named after config keys override the environment.
//
// Environment variables use the service prefix and a double underscore for
// nesting:
//
//	WORKERBRIDGE_SERVER__ADDR=:9000   ->  server.addr
//	WORKERBRIDGE_LOGGING__LEVEL=debug ->  logging.level
//
// After unmarshalling, Load calls ApplyDefaults and Validate when the target
// implements them.
package config
