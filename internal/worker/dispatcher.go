// Package worker runs fire-and-forget tasks off the request path.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher submits a named task for execution. Implementations must never
// propagate task failures back to the submitter.
type Dispatcher interface {
	Submit(name string, fn func(ctx context.Context) error)
}

// Background runs each task on its own goroutine with a fresh deadline,
// recovering panics and logging failures. The request path never joins it;
// Close waits for in-flight tasks during shutdown.
type Background struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewBackground creates a dispatcher giving each task the provided timeout.
func NewBackground(timeout time.Duration) *Background {
	return &Background{timeout: timeout}
}

func (b *Background) Submit(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Background task panicked", "task", name, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			slog.Error("Background task failed", "task", name, "err", err)
		}
	}()
}

// Close blocks until all submitted tasks have finished.
func (b *Background) Close() {
	b.wg.Wait()
}
