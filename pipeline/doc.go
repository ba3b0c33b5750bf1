// Package pipeline provides the sequence primitives a worker bridge moves
// values through.
//
// A sequence is an Iterator: Next blocks until a value is available, the
// sequence terminates, or the context is done. Termination is explicit:
//
//   - (v, true, nil)      a value
//   - (zero, false, nil)  the sequence completed
//   - (zero, false, err)  the sequence failed
//
// A sequence that never terminates simply keeps blocking; nothing in this
// package forces completion.
//
// # Sources
//
//   - Subject: push-driven sequence fed by Emit, Fail and Complete
//   - NewBehaviorSubject: Subject seeded with one value
//   - Of, Empty, Never, Throw, FromChannel
//
// # Operators
//
//   - Map, Filter, Tap, Take: synchronous, order preserving
//   - MergeMap: concurrent flatten, one goroutine per inner sequence
//
// # Usage
//
//	doubled := pipeline.Map(pipeline.Of(1, 2, 3), func(_ context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	values, err := pipeline.Collect(ctx, doubled)
package pipeline
