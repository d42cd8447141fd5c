package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal — вызовы операций сервисов по результату.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questionary_operations_total",
		Help: "Service operations by outcome (ok or rejection reason)",
	}, []string{"service", "operation", "outcome"})

	// OperationDuration — длительность операций сервисов.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "questionary_operation_duration_seconds",
		Help:    "Service operation latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})

	// HTTPRequestsTotal — HTTP запросы по маршруту и статусу.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questionary_http_requests_total",
		Help: "HTTP requests handled by questionary-api",
	}, []string{"method", "status"})

	// EventsPublishedTotal — опубликованные доменные события.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questionary_events_published_total",
		Help: "Domain events handed to a sink",
	}, []string{"type", "result"})

	// EventsConsumedTotal — события, записанные в event_logs.
	EventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questionary_events_consumed_total",
		Help: "Domain events consumed from the broker",
	}, []string{"result"})

	// JanitorDeletedTotal — удалённые пустые черновики анкет.
	JanitorDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "questionary_janitor_deleted_total",
		Help: "Stale empty questionaries removed by the janitor",
	})

	// JanitorRunsTotal — запуски janitor по результату.
	JanitorRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questionary_janitor_runs_total",
		Help: "Janitor sweeps by result",
	}, []string{"result"})
)

// ObserveOperation записывает результат и длительность операции сервиса.
// outcome — "ok" или код причины отказа.
func ObserveOperation(service, operation, outcome string, start time.Time) {
	if outcome == "" {
		outcome = "ok"
	}
	OperationsTotal.WithLabelValues(service, operation, outcome).Inc()
	OperationDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())
}
