// Package metrics provides Prometheus collectors for Airtable client
// traffic.
//
// # Overview
//
// Collectors are registered on the default registry when the package is
// imported:
//   - RequestsTotal counts transport calls by method and status
//   - RequestDuration observes transport latency in seconds
//   - InFlightRequests tracks requests currently on the wire
//   - LimiterWait observes time spent waiting for client-side limiters
//   - RecordsProcessed counts records read, written or deleted
//
// # Basic Usage
//
//	timer := metrics.NewTimer()
//	resp, err := doer.Do(req)
//	metrics.ObserveRequest(req.Method, statusLabel(resp, err), timer.Stop())
//
//	metrics.RecordsProcessed.WithLabelValues("create", "success").Add(10)
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "airtable"

var (
	// RequestsTotal counts HTTP requests sent to the vendor.
	// Labels: method, status (HTTP status code or "error")
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests sent to Airtable",
		},
		[]string{"method", "status"},
	)

	// RequestDuration observes request latency.
	// Labels: method
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests sent to Airtable",
			Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)

	// InFlightRequests tracks requests currently awaiting a response
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently in flight",
		},
	)

	// LimiterWait observes how long calls waited for admission
	LimiterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "limiter_wait_seconds",
			Help:      "Time spent waiting for client-side rate limiters",
			Buckets:   []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// RecordsProcessed counts records handled by facade operations.
	// Labels: operation (fetch, create, update, delete), outcome (success, failure, skipped)
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Total number of records processed",
		},
		[]string{"operation", "outcome"},
	)
)

// StatusLabel renders an HTTP status code as a metric label, or "error" when
// no response was received.
func StatusLabel(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code)
}

// ObserveRequest records one completed transport call
func ObserveRequest(method string, code int, d time.Duration) {
	RequestsTotal.WithLabelValues(method, StatusLabel(code)).Inc()
	RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// AddRecords adds n records to the operation/outcome counter
func AddRecords(operation, outcome string, n int) {
	if n <= 0 {
		return
	}
	RecordsProcessed.WithLabelValues(operation, outcome).Add(float64(n))
}

// Timer measures elapsed time from creation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
