package llm

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 10 * time.Second
)

// RetryPolicy bounds the attempts made for one call.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	return p
}

func (p RetryPolicy) backoff() wait.Backoff {
	return wait.Backoff{
		Duration: p.InitialBackoff,
		Factor:   2,
		Jitter:   0.1,
		Steps:    p.MaxAttempts,
		Cap:      p.MaxBackoff,
	}
}

// retry runs op until it succeeds, fails permanently, or MaxAttempts
// transient failures happened. A positive timeout bounds each attempt. It
// returns the number of attempts made.
func (c *Client) retry(ctx context.Context, provider ProviderName, timeout time.Duration, op func(context.Context) error) (int, error) {
	backoff := c.retryPolicy.backoff()
	var last error

	for attempt := 1; attempt <= c.retryPolicy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := op(callCtx)
		cancel()

		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if !IsRetryable(err) && errors.Is(err, context.DeadlineExceeded) {
			err = &TransientError{Provider: string(provider), Err: err}
		}
		if !IsRetryable(err) {
			return attempt, err
		}

		last = err
		if attempt == c.retryPolicy.MaxAttempts {
			break
		}
		delay := backoff.Step()
		klog.V(2).InfoS("Retrying provider call", "provider", provider, "attempt", attempt, "delay", delay, "err", err)
		if err := sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}

	return c.retryPolicy.MaxAttempts, &ExhaustedRetriesError{
		Provider: string(provider),
		Attempts: c.retryPolicy.MaxAttempts,
		Last:     last,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
