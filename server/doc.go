// Package server exposes registered workers over websockets.
//
// Each GET /workers/:name request is upgraded and wired to a fresh worker
// instance with bridge.Run. The codec is picked per connection with the
// "codec" query parameter. The server also answers GET /health and
// GET /workers.
//
//	reg := server.NewRegistry()
//	server.Register[int, int](reg, "double", newDoubler)
//	srv := server.New(cfg, reg, log, server.WithMetrics(m))
//	srv.Start(ctx)
package server
