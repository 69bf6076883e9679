package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
)

// Cache serves the board snapshot, reloading it from the loader only when dirty.
//
// Dirtiness is tracked as a generation counter: Invalidate bumps the counter
// without taking the lock, and a reload only clears dirtiness for the
// generation it observed before reading. An invalidation that races with an
// in-flight reload therefore keeps the cache dirty.
type Cache struct {
	mu        sync.Mutex
	loader    domain.DatasetLoader
	clock     clockwork.Clock
	metrics   *metrics.CacheMetrics
	snapshot  *domain.Dataset
	loadedGen uint64
	gen       atomic.Uint64
}

// NewCache creates an empty cache. The cache starts dirty; the first Get loads.
// m may be nil.
func NewCache(loader domain.DatasetLoader, clock clockwork.Clock, m *metrics.CacheMetrics) *Cache {
	return &Cache{
		loader:  loader,
		clock:   clock,
		metrics: m,
	}
}

// Get returns the current snapshot. When the cache is dirty it reloads first;
// a failed reload leaves the cache dirty so the next Get retries.
// Concurrent callers are serialized so one invalidation costs one reload.
func (c *Cache) Get(ctx context.Context) (*domain.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirtyLocked() {
		if c.metrics != nil {
			c.metrics.Hits.Inc()
		}
		return c.snapshot, nil
	}

	observed := c.gen.Load()
	start := c.clock.Now()

	employees, err := c.loader.LoadAll(ctx)
	if c.metrics != nil {
		c.metrics.ReloadTime.Observe(c.clock.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.Reloads.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("reload dataset: %w", err)
	}

	c.snapshot = &domain.Dataset{Employees: employees, LoadedAt: c.clock.Now()}
	c.loadedGen = observed

	if c.metrics != nil {
		c.metrics.Reloads.WithLabelValues("ok").Inc()
		c.metrics.Employees.Set(float64(len(employees)))
	}
	slog.DebugContext(ctx, "Dataset reloaded", "employees", len(employees), "generation", observed)

	return c.snapshot, nil
}

// Invalidate marks the cache dirty. It is idempotent and never waits for a
// reload in flight.
func (c *Cache) Invalidate() {
	c.gen.Add(1)
	if c.metrics != nil {
		c.metrics.Invalidations.Inc()
	}
}

// Dirty reports whether the next Get will reload.
func (c *Cache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirtyLocked()
}

func (c *Cache) dirtyLocked() bool {
	return c.snapshot == nil || c.loadedGen != c.gen.Load()
}
