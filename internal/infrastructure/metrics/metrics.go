package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recipe_aggregator"

// Metrics 所有 Prometheus 指標；nil 時所有紀錄方法皆為 no-op
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	AdapterCalls   *prometheus.CounterVec
	AdapterResults *prometheus.CounterVec

	GenerativeCache *prometheus.CounterVec
	GenerativeCalls *prometheus.CounterVec
	QuotaRejections prometheus.Counter
	PersistOutcomes *prometheus.CounterVec
	BreakerStates   *prometheus.GaugeVec
}

// New 建立獨立 registry 的指標集合
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AdapterCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_calls_total",
			Help:      "Source adapter invocations by outcome",
		}, []string{"source", "operation", "outcome"}),
		AdapterResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_results_total",
			Help:      "Recipes returned by each source adapter",
		}, []string{"source"}),
		GenerativeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generative_cache_total",
			Help:      "Generative cache lookups by result",
		}, []string{"result"}),
		GenerativeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generative_calls_total",
			Help:      "Calls reaching the generative service by outcome",
		}, []string{"outcome"}),
		QuotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Generative requests rejected because the daily quota was exhausted",
		}),
		PersistOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_outcomes_total",
			Help:      "Persistence gateway outcomes",
		}, []string{"outcome"}),
		BreakerStates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.AdapterCalls,
		m.AdapterResults,
		m.GenerativeCache,
		m.GenerativeCalls,
		m.QuotaRejections,
		m.PersistOutcomes,
		m.BreakerStates,
	)
	return m
}

// Handler /metrics 端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP 記錄一次 HTTP 請求
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAdapter 記錄一次來源呼叫
func (m *Metrics) ObserveAdapter(source, operation string, results int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AdapterCalls.WithLabelValues(source, operation, outcome).Inc()
	m.AdapterResults.WithLabelValues(source).Add(float64(results))
}

// CacheHit 生成結果快取命中
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.GenerativeCache.WithLabelValues("hit").Inc()
}

// CacheMiss 生成結果快取未命中
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.GenerativeCache.WithLabelValues("miss").Inc()
}

// GenerativeCall 記錄一次真正送出的生成請求
func (m *Metrics) GenerativeCall(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GenerativeCalls.WithLabelValues(outcome).Inc()
}

// QuotaRejected 額度用盡
func (m *Metrics) QuotaRejected() {
	if m == nil {
		return
	}
	m.QuotaRejections.Inc()
}

// Persisted 記錄持久化結果：inserted | existing | failed | skipped
func (m *Metrics) Persisted(outcome string) {
	if m == nil {
		return
	}
	m.PersistOutcomes.WithLabelValues(outcome).Inc()
}

// BreakerState 記錄斷路器狀態
func (m *Metrics) BreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerStates.WithLabelValues(name).Set(float64(state))
}
