// internal/invoke/retry.go
package invoke

import (
	"context"
	"fmt"
	"time"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
)

// Dispatcher performs one attempt of an activity call.
type Dispatcher interface {
	Dispatch(ctx context.Context, ref Reference, args []interface{}) (interface{}, error)
}

// RetryingInvoker wraps a dispatcher with per-attempt timeout and
// exponential backoff. Only errors classified retryable are retried.
type RetryingInvoker struct {
	dispatcher Dispatcher
	logger     logger.Logger
}

func NewRetryingInvoker(d Dispatcher, log logger.Logger) *RetryingInvoker {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &RetryingInvoker{dispatcher: d, logger: log}
}

func (r *RetryingInvoker) Invoke(ctx context.Context, ref Reference, args []interface{}, timeout time.Duration, policy RetryPolicy) (interface{}, error) {
	if policy.MaximumAttempts <= 0 {
		policy = DefaultRetryPolicy
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaximumAttempts; attempt++ {
		result, err := r.attempt(ctx, ref, args, timeout)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.IsRetryable(err) || attempt == policy.MaximumAttempts-1 {
			break
		}

		delay := policy.InitialInterval * time.Duration(1<<attempt)
		if policy.MaximumInterval > 0 && delay > policy.MaximumInterval {
			delay = policy.MaximumInterval
		}

		r.logger.Warn("activity attempt failed, retrying", map[string]interface{}{
			"activity_id": ref.ActivityID,
			"attempt":     attempt + 1,
			"delay":       delay.String(),
			"error":       err.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("invocation of %s cancelled after %d attempts: %w",
				ref.ActivityID, attempt+1, ctx.Err())
		}
	}

	return nil, lastErr
}

func (r *RetryingInvoker) attempt(ctx context.Context, ref Reference, args []interface{}, timeout time.Duration) (interface{}, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := r.dispatcher.Dispatch(ctx, ref, args)
	if err == nil {
		return result, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewTimeoutError(ref.ActivityID, err)
	}
	return nil, err
}
