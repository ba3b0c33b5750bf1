package process

import (
	"time"

	"github.com/kbukum/workerbridge/logger"
)

// Command describes a worker subprocess that speaks length-prefixed frames
// on stdin/stdout.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	Args   []string
	// Dir is the working directory. Empty means the current one.
	Dir string
	// Env is appended to os.Environ.
	Env []string
	// GracePeriod is the wait between SIGTERM and SIGKILL. Defaults to 5s.
	GracePeriod time.Duration
	// Logger receives stderr lines. Nil discards them.
	Logger *logger.Logger
}

const defaultGracePeriod = 5 * time.Second
