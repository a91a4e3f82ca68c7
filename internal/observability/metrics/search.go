package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics counts per-engine result cache events.
type SearchMetrics struct {
	events   *prometheus.CounterVec
	pressure prometheus.Counter
}

func NewSearchMetrics(registerer prometheus.Registerer) *SearchMetrics {
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "cache_events_total",
			Help:      "Search cache events by engine and kind.",
		},
		[]string{"engine", "event"},
	)
	pressure := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "pressure_evictions_total",
			Help:      "Cache entries dropped by the memory-pressure watcher.",
		},
	)
	registerer.MustRegister(events, pressure)
	return &SearchMetrics{events: events, pressure: pressure}
}

// CacheObserver returns an observer bound to one engine label.
func (m *SearchMetrics) CacheObserver(engine string) *EngineCacheObserver {
	return &EngineCacheObserver{
		hit:     m.events.WithLabelValues(engine, "hit"),
		miss:    m.events.WithLabelValues(engine, "miss"),
		shared:  m.events.WithLabelValues(engine, "shared"),
		evicted: m.events.WithLabelValues(engine, "evicted"),
		failed:  m.events.WithLabelValues(engine, "failed"),
	}
}

func (m *SearchMetrics) AddPressureEvictions(n int) {
	if n > 0 {
		m.pressure.Add(float64(n))
	}
}

type EngineCacheObserver struct {
	hit, miss, shared, evicted, failed prometheus.Counter
}

func (o *EngineCacheObserver) Hit()     { o.hit.Inc() }
func (o *EngineCacheObserver) Miss()    { o.miss.Inc() }
func (o *EngineCacheObserver) Shared()  { o.shared.Inc() }
func (o *EngineCacheObserver) Evicted() { o.evicted.Inc() }
func (o *EngineCacheObserver) Failed()  { o.failed.Inc() }
