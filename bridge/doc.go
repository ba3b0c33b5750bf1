// Package bridge runs a worker behind a message port.
//
// Run classifies the worker, turns inbound notifications into an input
// sequence, invokes the worker in unit or stream mode and posts every
// resulting value, error or completion back over the port:
//
//	h, err := bridge.Run[int, int](ctx, port, func() any { return &Doubler{} },
//	    bridge.WithLogger(log),
//	)
//	if err != nil {
//	    return err // UNSUPPORTED_WORKER_SHAPE, Init failure, or listen failure
//	}
//	defer h.Release()
//
// Error and Complete are terminal in both directions: once one is posted
// the wiring stops and nothing else is sent. A stream worker whose output
// never completes keeps the wiring open until it is released.
package bridge
