package session

import (
	"context"
	"log/slog"
	"time"
)

// cleanerInterval is how often the cleaner sweeps for idle sessions.
const cleanerInterval = 5 * time.Minute

// Cleaner periodically evicts idle sessions from a registry so abandoned
// browser tabs don't pin caches in memory forever.
type Cleaner struct {
	registry *Registry
	maxIdle  time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCleaner creates a cleaner for the registry. maxIdle of 0 makes the
// cleaner a no-op.
func NewCleaner(registry *Registry, maxIdle time.Duration) *Cleaner {
	return &Cleaner{
		registry: registry,
		maxIdle:  maxIdle,
		done:     make(chan struct{}),
	}
}

// Start begins the background eviction loop.
func (c *Cleaner) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(cleanerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.registry.EvictIdle(c.maxIdle); n > 0 {
					slog.Info("idle sessions evicted", "count", n)
				}
			}
		}
	}()
}

// Stop signals the eviction loop to stop and waits for it.
func (c *Cleaner) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	<-c.done
}
