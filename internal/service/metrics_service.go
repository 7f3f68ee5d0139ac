package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the optimizer itself.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	optimizerRuns     *prometheus.CounterVec
	optimizerDuration *prometheus.HistogramVec
	bestFitness       *prometheus.GaugeVec
	fitnessCacheHits  prometheus.Counter
	fitnessCacheMiss  prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers collectors on a private registry.
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

	optimizerRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_runs_total",
		Help: "Completed optimization runs",
	}, []string{"algorithm"})

	optimizerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimizer_run_duration_seconds",
		Help:    "Wall-clock duration of optimization runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"algorithm"})

	bestFitness := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optimizer_best_fitness",
		Help: "Best fitness score of the most recent run",
	}, []string{"algorithm"})

	fitnessCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_fitness_cache_hits_total",
		Help: "Fitness evaluations served from the content-hash cache",
	})

	fitnessCacheMiss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_fitness_cache_misses_total",
		Help: "Fitness evaluations computed from scratch",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_hits_total",
		Help: "Stored-result cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_misses_total",
		Help: "Stored-result cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, optimizerRuns, optimizerDuration,
		bestFitness, fitnessCacheHits, fitnessCacheMiss, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		optimizerRuns:     optimizerRuns,
		optimizerDuration: optimizerDuration,
		bestFitness:       bestFitness,
		fitnessCacheHits:  fitnessCacheHits,
		fitnessCacheMiss:  fitnessCacheMiss,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveOptimizationRun records one completed optimizer run, including the
// fitness-cache traffic it generated.
func (m *MetricsService) ObserveOptimizationRun(algorithm string, fitness float64, duration time.Duration, cacheHits, cacheMisses uint64) {
	if m == nil {
		return
	}
	m.optimizerRuns.WithLabelValues(algorithm).Inc()
	m.optimizerDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	m.bestFitness.WithLabelValues(algorithm).Set(fitness)
	m.fitnessCacheHits.Add(float64(cacheHits))
	m.fitnessCacheMiss.Add(float64(cacheMisses))
}

// RecordCacheLookup tracks stored-result cache effectiveness.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
