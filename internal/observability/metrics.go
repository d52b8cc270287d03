package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpDurationHistogram  *prometheus.HistogramVec
	httpInFlightGauge      prometheus.Gauge
	httpPanicCounter       prometheus.Counter
	ledgerOperationCounter *prometheus.CounterVec
	capNotificationCounter prometheus.Counter
	transferFailureCounter *prometheus.CounterVec
	oracleFailureCounter   prometheus.Counter
	totalNormalizedGauge   prometheus.Gauge
	reconciliationDrift    prometheus.Gauge
	idempotencyCounter     *prometheus.CounterVec
	workerRunCounter       *prometheus.CounterVec
	eventPublishCounter    *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		httpInFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served",
		})

		httpPanicCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panics_recovered_total",
			Help: "Handler panics converted into 500 responses",
		})

		ledgerOperationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by kind and outcome",
		}, []string{"operation", "result"})

		capNotificationCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cap_notifications_total",
			Help: "Native deposits rejected because they would exceed the cap",
		})

		transferFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfer_failures_total",
			Help: "Custody adapter failures by direction",
		}, []string{"direction"})

		oracleFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_oracle_failures_total",
			Help: "Price oracle errors or invalid quotes",
		})

		totalNormalizedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_total_normalized_usd6",
			Help: "Recorded normalized native total after the last committed change",
		})

		reconciliationDrift = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_reconciliation_drift_usd6",
			Help: "Revalued native holdings minus the recorded total",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		eventPublishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_event_publish_total",
			Help: "Post-commit event publication outcomes",
		}, []string{"result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			httpInFlightGauge,
			httpPanicCounter,
			ledgerOperationCounter,
			capNotificationCounter,
			transferFailureCounter,
			oracleFailureCounter,
			totalNormalizedGauge,
			reconciliationDrift,
			idempotencyCounter,
			workerRunCounter,
			eventPublishCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight() func() {
	if httpInFlightGauge == nil {
		return func() {}
	}
	httpInFlightGauge.Inc()
	return httpInFlightGauge.Dec
}

func IncrementPanic() {
	if httpPanicCounter == nil {
		return
	}
	httpPanicCounter.Inc()
}

func IncrementLedgerOperation(operation, result string) {
	if ledgerOperationCounter == nil {
		return
	}
	ledgerOperationCounter.WithLabelValues(operation, result).Inc()
}

func IncrementCapNotification() {
	if capNotificationCounter == nil {
		return
	}
	capNotificationCounter.Inc()
}

func IncrementTransferFailure(direction string) {
	if transferFailureCounter == nil {
		return
	}
	transferFailureCounter.WithLabelValues(direction).Inc()
}

func IncrementOracleFailure() {
	if oracleFailureCounter == nil {
		return
	}
	oracleFailureCounter.Inc()
}

func SetTotalNormalized(v float64) {
	if totalNormalizedGauge == nil {
		return
	}
	totalNormalizedGauge.Set(v)
}

func SetReconciliationDrift(v float64) {
	if reconciliationDrift == nil {
		return
	}
	reconciliationDrift.Set(v)
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}

func IncrementEventPublish(result string) {
	if eventPublishCounter == nil {
		return
	}
	eventPublishCounter.WithLabelValues(result).Inc()
}
