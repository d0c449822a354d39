package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	episodesCompleted *prometheus.CounterVec
	seasonsFinalized  *prometheus.CounterVec
	creditsIssued     prometheus.Counter
	creditsSpent      prometheus.Counter
	titlesRedeemed    prometheus.Counter
	streakSyncs       *prometheus.CounterVec
	rebuildDuration   prometheus.Histogram

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	episodesCompleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "episodes_completed_total",
		Help: "Episodes completed by students, by ordinal",
	}, []string{"ordinal"})

	seasonsFinalized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seasons_finalized_total",
		Help: "Season finalization attempts by outcome",
	}, []string{"status"})

	creditsIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reward_credits_issued_total",
		Help: "Reward credits credited to wallets",
	})

	creditsSpent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reward_credits_spent_total",
		Help: "Reward credits debited from wallets",
	})

	titlesRedeemed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "titles_redeemed_total",
		Help: "Titles redeemed from the catalog",
	})

	streakSyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streak_syncs_total",
		Help: "Coding streak provider syncs by result",
	}, []string{"result"})

	rebuildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "leaderboard_rebuild_seconds",
		Help:    "Duration of season leaderboard rebuilds",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		episodesCompleted, seasonsFinalized, creditsIssued, creditsSpent, titlesRedeemed, streakSyncs, rebuildDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,

		episodesCompleted: episodesCompleted,
		seasonsFinalized:  seasonsFinalized,
		creditsIssued:     creditsIssued,
		creditsSpent:      creditsSpent,
		titlesRedeemed:    titlesRedeemed,
		streakSyncs:       streakSyncs,
		rebuildDuration:   rebuildDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordEpisodeCompleted counts an episode completion.
func (m *MetricsService) RecordEpisodeCompleted(ordinal int) {
	if m == nil {
		return
	}
	m.episodesCompleted.WithLabelValues(strconv.Itoa(ordinal)).Inc()
}

// RecordFinalize counts a finalize call by its status.
func (m *MetricsService) RecordFinalize(status string) {
	if m == nil {
		return
	}
	m.seasonsFinalized.WithLabelValues(status).Inc()
}

// RecordCredits tracks wallet movements. Positive amounts are earnings.
func (m *MetricsService) RecordCredits(txType models.TransactionType, amount int) {
	if m == nil || amount <= 0 {
		return
	}
	if txType == models.TransactionSpend {
		m.creditsSpent.Add(float64(amount))
		return
	}
	m.creditsIssued.Add(float64(amount))
}

// RecordTitleRedeemed counts a title purchase.
func (m *MetricsService) RecordTitleRedeemed() {
	if m == nil {
		return
	}
	m.titlesRedeemed.Inc()
}

// RecordStreakSync counts a provider sync as ok or failed.
func (m *MetricsService) RecordStreakSync(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.streakSyncs.WithLabelValues(result).Inc()
}

// ObserveRebuild records the duration of a leaderboard rebuild.
func (m *MetricsService) ObserveRebuild(duration time.Duration) {
	if m == nil {
		return
	}
	m.rebuildDuration.Observe(duration.Seconds())
}

// Snapshot returns aggregated request and cache figures for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
