package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tradeindex"

// Metrics holds the Prometheus collectors of the analytics pipeline.
type Metrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	rows          *prometheus.GaugeVec
	recordsLoaded *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Analytics operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Analytics operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operation_rows",
				Help:      "Rows produced by the last successful operation",
			},
			[]string{"operation"},
		),
		recordsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_loaded_total",
				Help:      "Trade records loaded into the store",
			},
			[]string{"feed"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.rows, m.recordsLoaded, m.httpRequests)
	}
	return m
}

// Observe records one operation run. A nil receiver is a no-op.
func (m *Metrics) Observe(operation string, start time.Time, rows int, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.operations.WithLabelValues(operation, "error").Inc()
		return
	}
	m.operations.WithLabelValues(operation, "ok").Inc()
	m.rows.WithLabelValues(operation).Set(float64(rows))
}

func (m *Metrics) RecordsLoaded(feed string, n int) {
	if m == nil {
		return
	}
	m.recordsLoaded.WithLabelValues(feed).Add(float64(n))
}

func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
