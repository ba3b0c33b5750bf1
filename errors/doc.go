// Package errors provides the structured error type shared by both sides of
// a worker bridge. An AppError carries a machine-readable code and a
// human-readable message; only those survive a trip across the transport,
// the cause chain stays on the side that raised it.
package errors
