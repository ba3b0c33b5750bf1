// Package bootstrap runs a binary's lifecycle: validated config, logger,
// telemetry, start hooks, a blocking run or a finite task, then stop hooks
// in reverse order within a graceful timeout.
package bootstrap
