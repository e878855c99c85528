// internal/invoke/invoke.go
package invoke

import (
	"context"
	"time"
)

// Reference identifies the activity to dispatch.
type Reference struct {
	ActivityID string
	Activity   string
	TaskQueue  string
}

// RetryPolicy controls backoff between invocation attempts.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaximumInterval time.Duration
	MaximumAttempts int
}

// DefaultRetryPolicy matches the per-activity defaults used across the
// pipeline services.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 1 * time.Second,
	MaximumInterval: 30 * time.Second,
	MaximumAttempts: 3,
}

// Invoker dispatches a single activity call with positional arguments and
// returns its result.
type Invoker interface {
	Invoke(ctx context.Context, ref Reference, args []interface{}, timeout time.Duration, policy RetryPolicy) (interface{}, error)
}
