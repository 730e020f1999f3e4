package tarka

import (
	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics is the cache manager's single source of disk I/O counters:
// cached-bytes-read vs disk-bytes-read. Every CacheManager policy records
// into this same counter set; each manager creates its own instance with
// newCacheMetrics, so two open managers keep separate counts.
type cacheMetrics struct {
	cachedBytesRead prometheus.Counter
	diskBytesRead   prometheus.Counter
	blockFetches    *prometheus.CounterVec // labeled "hit"/"miss"
	queryLatency    prometheus.Histogram
}

// newCacheMetrics builds a fresh, unregistered metric set. Registering it
// with a prometheus.Registerer is left to the embedding application — this
// module never touches a global registry on import.
func newCacheMetrics() *cacheMetrics {
	return &cacheMetrics{
		cachedBytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tarka_cache_bytes_read_total",
			Help: "Bytes served from the resident block cache without touching disk.",
		}),
		diskBytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tarka_disk_bytes_read_total",
			Help: "Bytes read from the index file on a cache miss.",
		}),
		blockFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tarka_block_fetches_total",
			Help: "Block-cache fetches by outcome.",
		}, []string{"outcome"}),
		queryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tarka_query_latency_seconds",
			Help:    "End-to-end query-processor latency in seconds.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// Collectors returns every collector so a caller can register them with its
// own prometheus.Registerer (or prometheus.MustRegister them directly).
func (m *cacheMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.cachedBytesRead, m.diskBytesRead, m.blockFetches, m.queryLatency}
}

func (m *cacheMetrics) recordHit(bytes int) {
	m.cachedBytesRead.Add(float64(bytes))
	m.blockFetches.WithLabelValues("hit").Inc()
}

func (m *cacheMetrics) recordMiss(bytes int) {
	m.diskBytesRead.Add(float64(bytes))
	m.blockFetches.WithLabelValues("miss").Inc()
}
