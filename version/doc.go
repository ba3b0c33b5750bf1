// Package version reports the workerbridge build.
//
// Version and Commit are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/workerbridge/version.Version=1.2.0" ./cmd/workerbridge
//
// Unstamped builds fall back to the VCS settings embedded by the Go toolchain.
package version
