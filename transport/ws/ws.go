// Package ws carries envelopes over a websocket, one envelope per message.
package ws

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/resilience"
	"github.com/kbukum/workerbridge/transport"
)

const closeGrace = time.Second

// Conn adapts a websocket connection to transport.Conn.
type Conn struct {
	ws          *websocket.Conn
	messageType int
	closeOnce   sync.Once
}

// NewConn wraps ws. Binary codecs write binary messages, others text.
func NewConn(ws *websocket.Conn, c codec.Codec) *Conn {
	mt := websocket.TextMessage
	if codec.IsBinary(c) {
		mt = websocket.BinaryMessage
	}
	return &Conn{ws: ws, messageType: mt}
}

// ReadMessage implements transport.Conn. A normal close reads as io.EOF.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// WriteMessage implements transport.Conn. Writing after a close frame
// reports net.ErrClosed.
func (c *Conn) WriteMessage(data []byte) error {
	err := c.ws.WriteMessage(c.messageType, data)
	if stderrors.Is(err, websocket.ErrCloseSent) {
		return net.ErrClosed
	}
	return err
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		err = c.ws.Close()
	})
	return err
}

// Option configures websocket ports.
type Option func(*config)

type config struct {
	upgrader       websocket.Upgrader
	dialer         websocket.Dialer
	responseHeader http.Header
	requestHeader  http.Header
	retry          resilience.RetryConfig
	log            *logger.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		dialer:        *websocket.DefaultDialer,
		requestHeader: http.Header{},
		retry:         resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Nop()
	}
	return cfg
}

// WithBufferSizes sets the upgrader read and write buffer sizes.
func WithBufferSizes(read, write int) Option {
	return func(c *config) {
		c.upgrader.ReadBufferSize = read
		c.upgrader.WriteBufferSize = write
	}
}

// WithHandshakeTimeout bounds the opening handshake on both sides.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) {
		c.upgrader.HandshakeTimeout = d
		c.dialer.HandshakeTimeout = d
	}
}

// WithOriginCheck replaces the upgrader origin check.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(c *config) { c.upgrader.CheckOrigin = fn }
}

// WithAllowAnyOrigin accepts every origin.
func WithAllowAnyOrigin() Option {
	return WithOriginCheck(func(*http.Request) bool { return true })
}

// WithBearerToken sends an Authorization header when dialing.
func WithBearerToken(token string) Option {
	return func(c *config) { c.requestHeader.Set("Authorization", "Bearer "+token) }
}

// WithTLS sets the client TLS config used for wss:// URLs.
func WithTLS(cfg *tls.Config) Option {
	return func(c *config) { c.dialer.TLSClientConfig = cfg }
}

// WithRetry sets the dial retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *config) { c.retry = cfg }
}

// WithLogger sets the port logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *config) { c.log = l }
}

// NewPort builds a port over an established connection.
func NewPort[Recv, Send any](conn *websocket.Conn, c codec.Codec, opts ...Option) *transport.ConnPort[Recv, Send] {
	cfg := newConfig(opts)
	return newPort[Recv, Send](conn, c, cfg)
}

func newPort[Recv, Send any](conn *websocket.Conn, c codec.Codec, cfg *config) *transport.ConnPort[Recv, Send] {
	return transport.NewConnPort[Recv, Send](NewConn(conn, c), c,
		transport.WithConnName("ws"),
		transport.WithConnLogger(cfg.log),
	)
}

// Upgrade accepts a websocket request and returns the server end of the channel.
func Upgrade[Recv, Send any](w http.ResponseWriter, r *http.Request, c codec.Codec, opts ...Option) (*transport.ConnPort[Recv, Send], error) {
	cfg := newConfig(opts)
	conn, err := cfg.upgrader.Upgrade(w, r, cfg.responseHeader)
	if err != nil {
		return nil, errors.ConnectionFailed(r.RemoteAddr).WithCause(err)
	}
	return newPort[Recv, Send](conn, c, cfg), nil
}

// Dial connects to url, retrying transient failures, and returns the client
// end of the channel.
func Dial[Recv, Send any](ctx context.Context, url string, c codec.Codec, opts ...Option) (*transport.ConnPort[Recv, Send], error) {
	cfg := newConfig(opts)
	retry := cfg.retry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		cfg.log.Warn("websocket dial failed, retrying", map[string]interface{}{
			"url":             url,
			"attempt":         attempt,
			"backoff":         backoff.String(),
			logger.FieldError: err.Error(),
		})
	}

	conn, err := resilience.Retry(ctx, retry, func() (*websocket.Conn, error) {
		conn, resp, err := cfg.dialer.DialContext(ctx, url, cfg.requestHeader)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return nil, errors.Unauthorized("websocket handshake rejected").WithCause(err)
			}
			return nil, errors.ConnectionFailed(url).WithCause(err)
		}
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return newPort[Recv, Send](conn, c, cfg), nil
}
