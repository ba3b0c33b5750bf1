package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/workerbridge/bridge"
	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/controller"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/observability"
	"github.com/kbukum/workerbridge/pipeline"
	"github.com/kbukum/workerbridge/resilience"
	"github.com/kbukum/workerbridge/security"
	"github.com/kbukum/workerbridge/security/tlstest"
	"github.com/kbukum/workerbridge/server"
	"github.com/kbukum/workerbridge/server/middleware"
	"github.com/kbukum/workerbridge/transport/ws"
	"github.com/kbukum/workerbridge/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func doubler() any {
	return worker.Func[int, int](func(_ context.Context, v int) (pipeline.Iterator[int], error) {
		return pipeline.Of(v * 2), nil
	})
}

func summer() any {
	return worker.StreamFunc[int, int](func(ctx context.Context, in pipeline.Iterator[int]) (pipeline.Iterator[int], error) {
		out := pipeline.NewSubject[int]()
		go func() {
			sum := 0
			err := pipeline.Drain(ctx, in, func(_ context.Context, v int) error {
				sum += v
				return nil
			})
			if err != nil {
				out.Fail(err)
				return
			}
			out.Emit(sum)
			out.Complete()
		}()
		return out, nil
	})
}

func newRegistry(t *testing.T) *server.Registry {
	t.Helper()
	reg := server.NewRegistry()
	require.NoError(t, server.Register[int, int](reg, "double", doubler, bridge.WithUnitCompletion(bridge.CompleteWithInput)))
	require.NoError(t, server.Register[int, int](reg, "sum", summer))
	return reg
}

func newServer(t *testing.T, cfg server.Config, reg *server.Registry) (*server.Server, *httptest.Server) {
	t.Helper()
	cfg.ApplyDefaults()
	srv := server.New(cfg, reg, logger.Nop(), server.WithService("workerbridge-test", "v0"))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Stop(context.Background())
	})
	return srv, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func noRetry() ws.Option {
	return ws.WithRetry(resilience.RetryConfig{MaxAttempts: 1})
}

func run(t *testing.T, ctx context.Context, url string, c codec.Codec, input pipeline.Iterator[int], opts ...ws.Option) ([]int, error) {
	t.Helper()
	port, err := ws.Dial[int, int](ctx, url, c, append(opts, noRetry())...)
	if err != nil {
		return nil, err
	}
	defer port.Close()
	return pipeline.Collect[int](ctx, controller.FromWorker[int, int](ctx, port, input))
}

func TestServer_EndToEnd(t *testing.T) {
	sealedJSON, err := codec.Sealed(codec.JSON(), "shared")
	require.NoError(t, err)

	tests := []struct {
		name  string
		cfg   server.Config
		query string
		codec codec.Codec
	}{
		{"json default", server.Config{}, "", codec.JSON()},
		{"cbor by query", server.Config{}, "?codec=cbor", codec.CBOR()},
		{"sealed", server.Config{SealKey: "shared"}, "?codec=json", sealedJSON},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ts := newServer(t, tc.cfg, newRegistry(t))
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			got, err := run(t, ctx, wsURL(ts, "/workers/double"+tc.query), tc.codec, pipeline.Of(1, 2, 3))
			require.NoError(t, err)
			assert.ElementsMatch(t, []int{2, 4, 6}, got)

			got, err = run(t, ctx, wsURL(ts, "/workers/sum"+tc.query), tc.codec, pipeline.Of(1, 2, 3))
			require.NoError(t, err)
			assert.Equal(t, []int{6}, got)
		})
	}
}

func TestServer_HTTPErrors(t *testing.T) {
	_, ts := newServer(t, server.Config{}, newRegistry(t))

	upgrade := http.Header{
		"Connection":            {"Upgrade"},
		"Upgrade":               {"websocket"},
		"Sec-Websocket-Version": {"13"},
		"Sec-Websocket-Key":     {"dGhlIHNhbXBsZSBub25jZQ=="},
	}

	tests := []struct {
		name     string
		path     string
		header   http.Header
		wantCode int
		wantErr  errors.ErrorCode
	}{
		{"unknown worker", "/workers/nope", upgrade, http.StatusNotFound, errors.ErrCodeNotFound},
		{"bad name", "/workers/Bad_Name", upgrade, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"not an upgrade", "/workers/double", nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown codec", "/workers/double?codec=xml", upgrade, http.StatusNotFound, errors.ErrCodeNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+tc.path, http.NoBody)
			require.NoError(t, err)
			for k, v := range tc.header {
				req.Header[k] = v
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.wantCode, resp.StatusCode)
			var body errors.ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.wantErr, body.Code)
		})
	}
}

func TestServer_ListWorkers(t *testing.T) {
	_, ts := newServer(t, server.Config{}, newRegistry(t))

	resp, err := http.Get(ts.URL + "/workers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []server.WorkerInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []server.WorkerInfo{{Name: "double", Mode: "unit"}, {Name: "sum", Mode: "stream"}}, body.Data)
}

func TestServer_Health(t *testing.T) {
	t.Run("up", func(t *testing.T) {
		_, ts := newServer(t, server.Config{}, newRegistry(t))
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report observability.ServiceHealth
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.Equal(t, observability.HealthStatusUp, report.Status)
		assert.Equal(t, "workerbridge-test", report.Service)
		require.Len(t, report.Components, 1)
		assert.Equal(t, "2", report.Components[0].Details["registered"])
	})

	t.Run("degraded without workers", func(t *testing.T) {
		_, ts := newServer(t, server.Config{}, server.NewRegistry())
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report observability.ServiceHealth
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.Equal(t, observability.HealthStatusDegraded, report.Status)
	})

	t.Run("down after stop", func(t *testing.T) {
		srv, ts := newServer(t, server.Config{}, newRegistry(t))
		require.NoError(t, srv.Stop(context.Background()))
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestServer_Auth(t *testing.T) {
	cfg := server.Config{Auth: middleware.AuthConfig{Enabled: true, Secret: "s3cret"}}
	_, ts := newServer(t, cfg, newRegistry(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := run(t, ctx, wsURL(ts, "/workers/double"), codec.JSON(), pipeline.Of(1))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	got, err := run(t, ctx, wsURL(ts, "/workers/double"), codec.JSON(), pipeline.Of(5), ws.WithBearerToken(token))
	require.NoError(t, err)
	assert.Equal(t, []int{10}, got)

	got, err = run(t, ctx, wsURL(ts, "/workers/double?token="+token), codec.JSON(), pipeline.Of(7))
	require.NoError(t, err)
	assert.Equal(t, []int{14}, got)
}

func TestServer_StopReleasesSessions(t *testing.T) {
	srv, ts := newServer(t, server.Config{}, newRegistry(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	port, err := ws.Dial[int, int](ctx, wsURL(ts, "/workers/sum"), codec.JSON(), noRetry())
	require.NoError(t, err)
	defer port.Close()
	out := controller.FromWorker[int, int](ctx, port, pipeline.Never[int]())
	defer out.Close()

	require.Eventually(t, func() bool { return srv.ActiveSessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Stop(ctx))
	assert.Zero(t, srv.ActiveSessions())

	_, _, err = out.Next(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTransportClosed))
}

func TestRegister(t *testing.T) {
	reg := server.NewRegistry()
	require.NoError(t, server.Register[int, int](reg, "double", doubler))

	err := server.Register[int, int](reg, "double", doubler)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	err = server.Register[int, int](reg, "Not Valid", doubler)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	err = server.Register[int, int](reg, "nil", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))

	err = server.Register[int, int](reg, "shapeless", func() any { return struct{}{} })
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedWorkerShape))

	err = server.Register[string, int](reg, "wrong-types", doubler)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedWorkerShape))

	assert.Equal(t, 1, reg.Len())
}

func TestConfig(t *testing.T) {
	var cfg server.Config
	cfg.ApplyDefaults()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, "token", cfg.Auth.QueryParam)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.NoError(t, cfg.Validate())

	cfg.Port = 70000
	cfg.Auth.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "auth.secret")
}

func TestServer_MutualTLS(t *testing.T) {
	certs := tlstest.Generate(t)
	cfg := server.Config{TLS: security.TLSConfig{
		CAFile:   certs.CAFile,
		CertFile: certs.CertFile,
		KeyFile:  certs.KeyFile,
	}}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	srv := server.New(cfg, newRegistry(t), logger.Nop())
	serverTLS, err := srv.TLSConfig()
	require.NoError(t, err)
	require.NotNil(t, serverTLS)

	ts := httptest.NewUnstartedServer(srv.Handler())
	ts.TLS = serverTLS
	ts.StartTLS()
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Stop(context.Background())
	})
	url := "wss" + strings.TrimPrefix(ts.URL, "https") + "/workers/double"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientTLS, err := (&security.TLSConfig{
		CAFile:   certs.CAFile,
		CertFile: certs.CertFile,
		KeyFile:  certs.KeyFile,
	}).Build()
	require.NoError(t, err)

	got, err := run(t, ctx, url, codec.JSON(), pipeline.Of(4), ws.WithTLS(clientTLS))
	require.NoError(t, err)
	assert.Equal(t, []int{8}, got)

	anonymous, err := (&security.TLSConfig{CAFile: certs.CAFile}).Build()
	require.NoError(t, err)
	_, err = ws.Dial[int, int](ctx, url, codec.JSON(), ws.WithTLS(anonymous), noRetry())
	require.Error(t, err)
}

func TestConfig_TLS(t *testing.T) {
	cfg := server.Config{TLS: security.TLSConfig{CertFile: "cert.pem"}}
	cfg.ApplyDefaults()
	require.Error(t, cfg.Validate())

	srv := server.New(server.Config{}, server.NewRegistry(), logger.Nop())
	tlsCfg, err := srv.TLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)
}
