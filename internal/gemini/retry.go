package gemini

import (
	"context"
	"time"
)

const (
	defaultMaxRetries   = 2
	defaultInitialDelay = 2 * time.Second
)

// withRetry runs call until it succeeds, fails with a non-transient error or
// the retry budget is spent. The delay doubles after every attempt.
func (c *Client) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	delay := c.initialDelay
	for attempt := 0; ; attempt++ {
		err := call(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return cancelled(ctx, err)
		}
		if !IsTransient(err) || attempt >= c.maxRetries {
			return err
		}

		c.logger.Warn("gemini transient error, retrying",
			"op", op,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"delay", delay,
			"err", err,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return cancelled(ctx, err)
		}
		delay *= 2
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
