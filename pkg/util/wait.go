package util

import (
	"context"
	"fmt"
	"time"
)

const (
	// retryPeriod is how often to poll a WaitFunc.
	retryPeriod = 10 * time.Millisecond
)

// WaitFunc is a callback that stops a wait when nil.
type WaitFunc func() error

// WaitFor waits until a condition is nil, the timeout expires or the parent
// context is cancelled.
func WaitFor(ctx context.Context, f WaitFunc, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(retryPeriod)
	defer tick.Stop()

	for err := f(); err != nil; err = f() {
		select {
		case <-tick.C:
		case <-ctx.Done():
			return fmt.Errorf("failed to wait for condition: %w", err)
		}
	}

	return nil
}
