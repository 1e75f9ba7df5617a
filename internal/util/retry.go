package util

import (
	"context"
	"time"
)

// Feed fetches ride short timeouts, so the backoff never grows past this.
const maxRetryWait = 8 * time.Second

// Retry runs fn until it returns nil or attempts are exhausted, doubling the
// wait between tries. The context is checked before every attempt, so a
// cancelled fetch gives up instead of burning its remaining tries. Returns
// the last error when every attempt fails.
func Retry(ctx context.Context, attempts int, wait time.Duration, fn func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > maxRetryWait {
			wait = maxRetryWait
		}
	}
	return err
}
