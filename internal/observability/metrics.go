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
	// Source metrics
	LoadsTotal        *prometheus.CounterVec
	LoadDuration      *prometheus.HistogramVec
	RecordsLoaded     prometheus.Counter
	TranslationErrors *prometheus.CounterVec

	// Validation metrics
	RecordsAccepted prometheus.Counter
	Rejections      *prometheus.CounterVec

	// Compute metrics
	ComputesTotal   *prometheus.CounterVec
	ComputeDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	CacheEntries   prometheus.Gauge

	// Engine metrics
	RefreshesTotal       *prometheus.CounterVec
	LastRefreshTimestamp prometheus.Gauge
	DatasetAccepted      prometheus.Gauge
	DatasetRejected      prometheus.Gauge
	DatasetOpen          prometheus.Gauge

	// Notification metrics
	WebhooksSent *prometheus.CounterVec

	// API metrics
	WSClients prometheus.Gauge
}

// NewMetrics registers all metrics on the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers all metrics on reg. Tests pass a fresh registry so
// repeated construction cannot collide.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_analytics"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Source metrics
		LoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "loads_total",
			Help:      "Total number of source loads by adapter and status",
		}, []string{"source", "status"}),
		LoadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "load_duration_seconds",
			Help:      "Source load duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		RecordsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "records_loaded_total",
			Help:      "Total number of raw records loaded from sources",
		}),
		TranslationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "translation_errors_total",
			Help:      "Total number of rows that failed translation by field",
		}, []string{"field"}),

		// Validation metrics
		RecordsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "records_accepted_total",
			Help:      "Total number of records accepted by the validator",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "rejections_total",
			Help:      "Total number of records rejected by reason",
		}, []string{"reason"}),

		// Compute metrics
		ComputesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compute",
			Name:      "runs_total",
			Help:      "Total number of metric computations by group key and status",
		}, []string{"group_key", "status"}),
		ComputeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compute",
			Name:      "duration_seconds",
			Help:      "Metric computation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"group_key"}),

		// Cache metrics
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of aggregation cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of aggregation cache misses",
		}),
		CacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of aggregation cache evictions",
		}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of aggregation cache entries",
		}),

		// Engine metrics
		RefreshesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "refreshes_total",
			Help:      "Total number of dataset refreshes by status",
		}, []string{"status"}),
		LastRefreshTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "last_refresh_timestamp",
			Help:      "Unix timestamp of the last successful dataset refresh",
		}),
		DatasetAccepted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "dataset_accepted_records",
			Help:      "Accepted records in the current dataset",
		}),
		DatasetRejected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "dataset_rejected_records",
			Help:      "Rejected records in the current dataset",
		}),
		DatasetOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "dataset_open_positions",
			Help:      "Open positions in the current dataset",
		}),

		// Notification metrics
		WebhooksSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "webhooks_sent_total",
			Help:      "Total number of webhook deliveries by status",
		}, []string{"status"}),

		// API metrics
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients",
			Help:      "Currently connected WebSocket clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLoad records one source load.
func (m *Metrics) ObserveLoad(source string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.LoadsTotal.WithLabelValues(source, status).Inc()
	m.LoadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveCompute records one metric computation.
func (m *Metrics) ObserveCompute(groupKey string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ComputesTotal.WithLabelValues(groupKey, status).Inc()
	m.ComputeDuration.WithLabelValues(groupKey).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(cached bool) {
	if m == nil {
		return
	}
	if cached {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordRefresh records one dataset refresh. Dataset gauges are only moved on
// success; a failed refresh leaves the previous dataset in place.
func (m *Metrics) RecordRefresh(err error, accepted, rejected, open int) {
	if m == nil {
		return
	}
	if err != nil {
		m.RefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	m.RefreshesTotal.WithLabelValues("ok").Inc()
	m.LastRefreshTimestamp.SetToCurrentTime()
	m.DatasetAccepted.Set(float64(accepted))
	m.DatasetRejected.Set(float64(rejected))
	m.DatasetOpen.Set(float64(open))
}
