package cache

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Shrinker is implemented by caches that can drop entries on demand.
type Shrinker interface {
	Shrink(fraction float64) int
}

// Shrinkers fans a shrink out to several caches.
type Shrinkers []Shrinker

func (s Shrinkers) Shrink(fraction float64) int {
	removed := 0
	for _, target := range s {
		removed += target.Shrink(fraction)
	}
	return removed
}

// PressureWatcher drops cache entries while the heap stays above a limit.
type PressureWatcher struct {
	target     Shrinker
	limitBytes uint64
	interval   time.Duration
	fraction   float64
	heapBytes  func() uint64
	onShrink   func(removed int)
	logger     *slog.Logger
}

func NewPressureWatcher(target Shrinker, limitBytes uint64, interval time.Duration, logger *slog.Logger) *PressureWatcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PressureWatcher{
		target:     target,
		limitBytes: limitBytes,
		interval:   interval,
		fraction:   0.25,
		heapBytes:  heapAlloc,
		logger:     logger,
	}
}

// OnShrink registers a callback invoked with the number of dropped entries.
func (w *PressureWatcher) OnShrink(fn func(removed int)) {
	w.onShrink = fn
}

// Run blocks until ctx is done. A zero limit disables the watcher.
func (w *PressureWatcher) Run(ctx context.Context) {
	if w.limitBytes == 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *PressureWatcher) check() int {
	heap := w.heapBytes()
	if heap <= w.limitBytes {
		return 0
	}
	removed := w.target.Shrink(w.fraction)
	if w.onShrink != nil {
		w.onShrink(removed)
	}
	w.logger.Warn("cache_soft_eviction",
		"heap_bytes", heap,
		"limit_bytes", w.limitBytes,
		"removed", removed,
	)
	return removed
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}
