// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Market data metrics
	BarsFetched  *prometheus.CounterVec
	FetchLatency *prometheus.HistogramVec
	FetchErrors  *prometheus.CounterVec

	// Signal metrics
	SignalsGenerated *prometheus.CounterVec
	LegsBuilt        prometheus.Counter
	FinalProfit      *prometheus.GaugeVec

	// Pipeline metrics
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	SweepCombos      prometheus.Counter
	ReportsGenerated prometheus.Counter

	// Notification metrics
	NotificationsSent *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge

	handler http.Handler
}

// NewMetrics registers all metrics on reg. A nil reg uses the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "index_signal_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		BarsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "bars_fetched_total",
			Help:      "Total number of daily bars fetched by source",
		}, []string{"source"}),
		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_latency_seconds",
			Help:      "Market data fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed market data fetches",
		}, []string{"source"}),

		SignalsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "generated_total",
			Help:      "Total number of realized signals by side",
		}, []string{"side"}),
		LegsBuilt: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "legs_built_total",
			Help:      "Total number of ledger legs built",
		}),
		FinalProfit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "final_cumulative_profit",
			Help:      "Final cumulative profit of the last run by symbol",
		}, []string{"symbol"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		SweepCombos: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "sweep_combinations_total",
			Help:      "Total number of parameter combinations evaluated",
		}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Total number of notification attempts by status",
		}, []string{"status"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"store", "operation"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.handler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	} else {
		m.handler = promhttp.Handler()
	}
	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// RecordFetch records a market data fetch.
func (m *Metrics) RecordFetch(source string, bars int, d time.Duration, err error) {
	m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
		return
	}
	m.BarsFetched.WithLabelValues(source).Add(float64(bars))
}

// RecordSignals adds realized buy and sell counts.
func (m *Metrics) RecordSignals(buys, sells int) {
	m.SignalsGenerated.WithLabelValues("buy").Add(float64(buys))
	m.SignalsGenerated.WithLabelValues("sell").Add(float64(sells))
}

// RecordLedger records the legs and final profit of a symbol.
func (m *Metrics) RecordLedger(symbol string, legs int, finalProfit float64) {
	m.LegsBuilt.Add(float64(legs))
	m.FinalProfit.WithLabelValues(symbol).Set(finalProfit)
}

// RecordNotification records a notification attempt.
func (m *Metrics) RecordNotification(err error) {
	m.NotificationsSent.WithLabelValues(status(err)).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(store, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(store, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordRun records a pipeline phase. A successful "run" phase also stamps the health gauge.
func (m *Metrics) RecordRun(phase string, d time.Duration, err error) {
	m.RunsTotal.WithLabelValues(phase, status(err)).Inc()
	m.RunDuration.WithLabelValues(phase).Observe(d.Seconds())
	if err == nil && phase == PhaseRun {
		m.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	}
}

// Pipeline phase labels.
const (
	PhaseRun   = "run"
	PhaseSweep = "sweep"
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
