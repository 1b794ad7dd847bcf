// Package metrics exposes Prometheus instrumentation for analyses, jobs and
// the HTTP API.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cashflow"

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups every collector the service records.
type Metrics struct {
	Analyses         *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	SkippedRecords   *prometheus.CounterVec
	PatternsDetected prometheus.Histogram
	ForecastBalance  *prometheus.GaugeVec
	Jobs             *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	WebhookEvents    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses run, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		AnalysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of an analysis including data loading.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		SkippedRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Transactions dropped because they could not be normalized.",
		}, []string{"source"}),
		PatternsDetected: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recurring_patterns_detected",
			Help:      "Recurring patterns found per detection run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		ForecastBalance: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_ending_balance",
			Help:      "Projected ending balance of the latest forecast per account.",
		}, []string{"account_id"}),
		Jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Analysis job attempts, by type and outcome.",
		}, []string{"type", "outcome"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by provider and result.",
		}, []string{"provider", "result"}),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide collectors registered on the default
// Prometheus registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// ObserveAnalysis records one analysis run.
func (m *Metrics) ObserveAnalysis(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(operation, outcome(err)).Inc()
	m.AnalysisDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveSkipped adds n skipped records for source.
func (m *Metrics) ObserveSkipped(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SkippedRecords.WithLabelValues(source).Add(float64(n))
}

// ObservePatterns records the size of a detection result.
func (m *Metrics) ObservePatterns(n int) {
	if m == nil {
		return
	}
	m.PatternsDetected.Observe(float64(n))
}

// ObserveForecast records a forecast's ending balance.
func (m *Metrics) ObserveForecast(accountID string, ending float64) {
	if m == nil {
		return
	}
	if accountID == "" {
		accountID = "all"
	}
	m.ForecastBalance.WithLabelValues(accountID).Set(ending)
}

// ObserveJob records one job attempt.
func (m *Metrics) ObserveJob(jobType string, err error) {
	if m == nil {
		return
	}
	m.Jobs.WithLabelValues(jobType, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
