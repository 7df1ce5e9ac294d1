package app

import (
	"context"
	"time"
)

const defaultTickInterval = time.Second

// StartTicker launches a background goroutine that emits 1, 2, 3, ... at a
// fixed cadence. The channel is closed once ctx is done.
func StartTicker(ctx context.Context, interval time.Duration) <-chan int {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	out := make(chan int)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		n := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			n++
			select {
			case <-ctx.Done():
				return
			case out <- n:
			}
		}
	}()
	return out
}
