package application

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// callWithTimeout runs fn under a deadline of d. A non-positive d runs fn
// with ctx unchanged.
func callWithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("timed out after %s: %w", d, err)
	}
	return err
}
