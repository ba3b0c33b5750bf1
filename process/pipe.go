// Package process launches worker subprocesses and exposes their stdio as a
// single stream for the framed transport.
package process

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
)

// Pipe is a running subprocess. Reads come from its stdout and writes go to
// its stdin.
type Pipe struct {
	cmd    *exec.Cmd
	stdin  *os.File
	stdout *os.File
	grace  time.Duration

	done     chan struct{}
	waitErr  error
	once     sync.Once
	closeErr error
}

// Start launches cmd. Canceling ctx terminates the process group.
func Start(ctx context.Context, cmd Command) (*Pipe, error) {
	if cmd.Binary == "" {
		return nil, errors.InvalidInput("binary", "is required")
	}
	grace := cmd.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // launching workers is the purpose of this package
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	// Plain os.Pipes keep our ends open past Wait, so frames written just
	// before exit are still readable.
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, errors.Internal(err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		closeAll(stdinR, stdinW)
		return nil, errors.Internal(err)
	}
	stderrR, stderrW := io.Pipe()
	c.Stdin = stdinR
	c.Stdout = stdoutW
	c.Stderr = stderrW

	if err := c.Start(); err != nil {
		closeAll(stdinR, stdinW, stdoutR, stdoutW)
		return nil, errors.ConnectionFailed(cmd.Binary).WithCause(err)
	}
	closeAll(stdinR, stdoutW)

	p := &Pipe{
		cmd:    c,
		stdin:  stdinW,
		stdout: stdoutR,
		grace:  grace,
		done:   make(chan struct{}),
	}
	log := cmd.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("process").WithFields(map[string]interface{}{
		"binary": cmd.Binary,
		"pid":    c.Process.Pid,
	})
	go forwardStderr(stderrR, log)
	go func() {
		p.waitErr = c.Wait()
		_ = stderrW.Close()
		close(p.done)
		log.Debug("Process exited", map[string]interface{}{"exit_code": c.ProcessState.ExitCode()})
	}()
	return p, nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func forwardStderr(r io.Reader, log *logger.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		log.Info(sc.Text())
	}
	_, _ = io.Copy(io.Discard, r)
}

func (p *Pipe) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *Pipe) Write(b []byte) (int, error) { return p.stdin.Write(b) }

// Pid returns the process id.
func (p *Pipe) Pid() int { return p.cmd.Process.Pid }

// Done is closed once the process has exited.
func (p *Pipe) Done() <-chan struct{} { return p.done }

// Wait blocks until exit and returns the exit error, if any.
func (p *Pipe) Wait() error {
	<-p.done
	return p.waitErr
}

// Close closes stdin and waits for the process to exit. A process still
// running after the grace period gets SIGTERM, then SIGKILL after another.
func (p *Pipe) Close() error {
	p.once.Do(func() {
		_ = p.stdin.Close()
		p.terminate()
		p.closeErr = p.stdout.Close()
	})
	return p.closeErr
}

func (p *Pipe) terminate() {
	select {
	case <-p.done:
		return
	case <-time.After(p.grace):
	}
	_ = syscall.Kill(-p.cmd.Process.Pid, syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(p.grace):
		_ = syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL)
		<-p.done
	}
}
