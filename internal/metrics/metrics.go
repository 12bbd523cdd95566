package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	operationTime   *prometheus.HistogramVec
	allocations     *prometheus.CounterVec
	collisions      *prometheus.CounterVec
	staleWrites     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	wsConnections   prometheus.Gauge
	pushDeliveries  *prometheus.CounterVec
	backupRuns      *prometheus.CounterVec
	foodfactsLookup *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Household operations by name and outcome.",
			},
			[]string{"op", "outcome"},
		),
		operationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kitchin",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Duration of household operations.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"op"},
		),
		allocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "idalloc",
				Name:      "allocations_total",
				Help:      "Identifier allocations by scope kind and outcome.",
			},
			[]string{"scope", "outcome"},
		),
		collisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "idalloc",
				Name:      "collisions_total",
				Help:      "Candidate identifiers rejected because they were already taken.",
			},
			[]string{"scope"},
		),
		staleWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "ledger",
				Name:      "stale_writes_total",
				Help:      "Compare-and-swap writes that lost to a concurrent writer.",
			},
			[]string{"op"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method and status.",
			},
			[]string{"method", "status"},
		),
		wsConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "kitchin",
				Subsystem: "websocket",
				Name:      "connections",
				Help:      "Open live-feed connections.",
			},
		),
		pushDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "push",
				Name:      "deliveries_total",
				Help:      "Web push deliveries by notification type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		backupRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "backup",
				Name:      "runs_total",
				Help:      "Database backup runs by outcome.",
			},
			[]string{"outcome"},
		),
		foodfactsLookup: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitchin",
				Subsystem: "foodfacts",
				Name:      "lookups_total",
				Help:      "Barcode lookups by source.",
			},
			[]string{"source"},
		),
	}

	m.registry.MustRegister(
		m.operations,
		m.operationTime,
		m.allocations,
		m.collisions,
		m.staleWrites,
		m.httpRequests,
		m.wsConnections,
		m.pushDeliveries,
		m.backupRuns,
		m.foodfactsLookup,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registered collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveOperation(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.operationTime.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) Allocation(scope, outcome string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(scope, outcome).Inc()
}

func (m *Metrics) Collision(scope string) {
	if m == nil {
		return
	}
	m.collisions.WithLabelValues(scope).Inc()
}

func (m *Metrics) StaleWrite(op string) {
	if m == nil {
		return
	}
	m.staleWrites.WithLabelValues(op).Inc()
}

func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

func (m *Metrics) PushDelivery(notifType, outcome string) {
	if m == nil {
		return
	}
	m.pushDeliveries.WithLabelValues(notifType, outcome).Inc()
}

func (m *Metrics) BackupRun(outcome string) {
	if m == nil {
		return
	}
	m.backupRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FoodFactsLookup(source string) {
	if m == nil {
		return
	}
	m.foodfactsLookup.WithLabelValues(source).Inc()
}
