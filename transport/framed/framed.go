// Package framed carries envelopes over any byte stream as length-prefixed
// frames: a 4-byte big-endian payload length followed by the codec output.
package framed

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/transport"
)

// DefaultMaxFrameSize bounds a single frame payload.
const DefaultMaxFrameSize = 16 << 20

const headerSize = 4

// Conn reads and writes whole frames on a byte stream.
type Conn struct {
	rw       io.ReadWriteCloser
	r        *bufio.Reader
	maxFrame uint32
}

// NewConn wraps rw. A maxFrame of zero means DefaultMaxFrameSize; limits
// beyond what the 4-byte header can express are clamped to it.
func NewConn(rw io.ReadWriteCloser, maxFrame int) *Conn {
	limit := uint64(DefaultMaxFrameSize)
	if maxFrame > 0 {
		limit = min(uint64(maxFrame), math.MaxUint32)
	}
	return &Conn{rw: rw, r: bufio.NewReader(rw), maxFrame: uint32(limit)}
}

// ReadMessage implements transport.Conn. An oversized frame leaves the
// stream unusable and is reported as a DECODE_FAILURE.
func (c *Conn) ReadMessage() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > c.maxFrame {
		return nil, errors.DecodeFailure(fmt.Sprintf("frame of %d bytes exceeds limit of %d", n, c.maxFrame))
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.DecodeFailure("truncated frame").WithCause(err)
		}
		return nil, err
	}
	return payload, nil
}

// WriteMessage implements transport.Conn.
func (c *Conn) WriteMessage(data []byte) error {
	if uint64(len(data)) > uint64(c.maxFrame) {
		return errors.DataClone(fmt.Sprintf("frame of %d bytes exceeds limit of %d", len(data), c.maxFrame))
	}
	frame := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[headerSize:], data)
	_, err := c.rw.Write(frame)
	return err
}

// Close implements transport.Conn.
func (c *Conn) Close() error { return c.rw.Close() }

// Option configures a framed port.
type Option func(*options)

type options struct {
	maxFrame int
	log      *logger.Logger
}

// WithMaxFrameSize overrides DefaultMaxFrameSize.
func WithMaxFrameSize(n int) Option {
	return func(o *options) { o.maxFrame = n }
}

// WithLogger sets the port logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewPort builds a port over rw.
func NewPort[Recv, Send any](rw io.ReadWriteCloser, c codec.Codec, opts ...Option) *transport.ConnPort[Recv, Send] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	connOpts := []transport.ConnOption{transport.WithConnName("framed")}
	if o.log != nil {
		connOpts = append(connOpts, transport.WithConnLogger(o.log))
	}
	return transport.NewConnPort[Recv, Send](NewConn(rw, o.maxFrame), c, connOpts...)
}

type stdio struct {
	in  *os.File
	out *os.File
}

// Stdio joins the process stdin and stdout into one stream.
func Stdio() io.ReadWriteCloser {
	return stdio{in: os.Stdin, out: os.Stdout}
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s stdio) Close() error {
	err := s.in.Close()
	if cerr := s.out.Close(); err == nil {
		err = cerr
	}
	return err
}
