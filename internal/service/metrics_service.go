package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and enrollment operations.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheWrite      prometheus.Observer
	assignments     *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	grades          *prometheus.CounterVec
	rollbacks       *prometheus.CounterVec
	lockBusy        *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_assignments_total",
		Help: "Students processed by assignment batches",
	}, []string{"scope", "outcome"})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflicts_total",
		Help: "Section writes rejected by the conflict detector",
	}, []string{"axis"})

	grades := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_entries_total",
		Help: "Grade entries processed by outcome",
	}, []string{"outcome"})

	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_rollbacks_total",
		Help: "Batches rolled back after a storage fault",
	}, []string{"operation"})

	lockBusy := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "write_lock_busy_total",
		Help: "Requests rejected because a write lock was held",
	}, []string{"scope"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheWrite, assignments, conflicts, grades, rollbacks, lockBusy, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheWrite:      cacheWrite,
		assignments:     assignments,
		conflicts:       conflicts,
		grades:          grades,
		rollbacks:       rollbacks,
		lockBusy:        lockBusy,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordAssignment counts the outcome of an assignment batch.
func (m *MetricsService) RecordAssignment(scope models.DedupScope, assigned, skipped int) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(scope.String(), "assigned").Add(float64(assigned))
	m.assignments.WithLabelValues(scope.String(), "skipped").Add(float64(skipped))
}

// RecordConflict counts a rejected section write per colliding axis.
func (m *MetricsService) RecordConflict(conflict *models.ScheduleConflictError) {
	if m == nil || conflict == nil {
		return
	}
	if conflict.FacultyConflict != nil {
		m.conflicts.WithLabelValues(string(models.ConflictAxisFaculty)).Inc()
	}
	if conflict.RoomConflict != nil {
		m.conflicts.WithLabelValues(string(models.ConflictAxisRoom)).Inc()
	}
}

// RecordGrades counts updated, skipped and failing grade entries.
func (m *MetricsService) RecordGrades(updated, skipped, failed int) {
	if m == nil {
		return
	}
	m.grades.WithLabelValues("updated").Add(float64(updated))
	m.grades.WithLabelValues("skipped").Add(float64(skipped))
	m.grades.WithLabelValues("failed").Add(float64(failed))
}

// RecordRollback counts a batch aborted by a storage fault.
func (m *MetricsService) RecordRollback(operation string) {
	if m == nil {
		return
	}
	m.rollbacks.WithLabelValues(operation).Inc()
}

// RecordLockBusy counts a request turned away by a held write lock.
func (m *MetricsService) RecordLockBusy(scope string) {
	if m == nil {
		return
	}
	m.lockBusy.WithLabelValues(scope).Inc()
}
