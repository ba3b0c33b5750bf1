// Package resilience retries transient failures with exponential backoff.
//
// Errors are classified through the errors package: an AppError is retried
// only when it is marked retryable, context cancellation never is.
//
//	conn, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*websocket.Conn, error) {
//	    return dial(ctx)
//	})
package resilience
