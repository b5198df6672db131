package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CompactionConfig controls when a Compactor rebuilds its store's
// HNSW index. Mirrors internal/config.CompactionConfig so callers can
// pass the loaded config straight through without an import cycle.
type CompactionConfig struct {
	Enabled         bool
	IdleTimeout     time.Duration
	Cooldown        time.Duration
	OrphanThreshold float64
	MinOrphanCount  int
}

// Compactor runs background HNSW rebuilds for one folder's store once
// it has been idle (no searches) for IdleTimeout and its orphan ratio
// clears OrphanThreshold. A search in progress interrupts a running
// compaction rather than blocking behind it.
//
// Grounded on the teacher's per-project CompactionManager, reduced
// from a map of projects to a single store: folderd already runs one
// Compactor per registered folder rather than one process-wide
// manager keyed by root path.
type Compactor struct {
	store  *SQLiteStore
	config CompactionConfig

	mu          sync.Mutex
	lastSearch  time.Time
	lastCompact time.Time
	idleTimer   *time.Timer
	compacting  bool
	cancel      context.CancelFunc

	ctx      context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewCompactor creates a Compactor for store. Start must be called
// before OnSearchComplete will schedule anything.
func NewCompactor(st *SQLiteStore, cfg CompactionConfig) *Compactor {
	return &Compactor{store: st, config: cfg}
}

// Start arms the compactor against parent. Stop cancels parent-derived
// work and waits for any in-flight rebuild to exit.
func (c *Compactor) Start(parent context.Context) {
	c.ctx, c.stop = context.WithCancel(parent)
}

// Stop interrupts any running compaction and waits for it to return.
func (c *Compactor) Stop() {
	c.stopOnce.Do(func() {
		if c.stop != nil {
			c.stop()
		}
		c.mu.Lock()
		if c.idleTimer != nil {
			c.idleTimer.Stop()
		}
		if c.cancel != nil {
			c.cancel()
		}
		c.mu.Unlock()
		c.wg.Wait()
	})
}

// OnSearchComplete resets the idle timer and interrupts a running
// compaction so a live query is never slowed by a background rebuild.
func (c *Compactor) OnSearchComplete() {
	if !c.config.Enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSearch = time.Now()
	if c.compacting && c.cancel != nil {
		c.cancel()
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	idleTimeout := c.config.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	c.idleTimer = time.AfterFunc(idleTimeout, c.onIdle)
}

func (c *Compactor) onIdle() {
	if c.shouldCompact() {
		c.startCompaction()
	}
}

func (c *Compactor) shouldCompact() bool {
	if !c.config.Enabled || c.ctx == nil {
		return false
	}
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	c.mu.Lock()
	if c.compacting {
		c.mu.Unlock()
		return false
	}
	cooldown := c.config.Cooldown
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	if time.Since(c.lastCompact) < cooldown {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	stats := c.store.VectorStats()
	if stats.Orphans < c.config.MinOrphanCount {
		return false
	}
	if stats.GraphNodes == 0 {
		return false
	}
	ratio := float64(stats.Orphans) / float64(stats.GraphNodes)
	return ratio >= c.config.OrphanThreshold
}

func (c *Compactor) startCompaction() {
	c.mu.Lock()
	if c.compacting {
		c.mu.Unlock()
		return
	}
	c.compacting = true
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			c.compacting = false
			c.cancel = nil
			c.mu.Unlock()
		}()

		before := c.store.VectorStats()
		start := time.Now()
		if err := c.store.Compact(ctx); err != nil {
			slog.Warn("index compaction failed", slog.String("error", err.Error()))
			return
		}

		c.mu.Lock()
		c.lastCompact = time.Now()
		c.mu.Unlock()

		slog.Info("index compaction complete",
			slog.Int("orphans_removed", before.Orphans),
			slog.Duration("duration", time.Since(start)))
	}()
}
