package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchCount           prometheus.Counter
	FetchFailures        prometheus.Counter
	EmailsReceived       prometheus.Counter
	EmailsSkipped        prometheus.Counter
	EmailsDiscarded      prometheus.Counter
	CandidatesIngested   prometheus.Counter
	DuplicateCandidates  prometheus.Counter
	Decisions            *prometheus.CounterVec
	Undos                prometheus.Counter
	IngestTime           prometheus.Histogram
	UnreviewedCandidates prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_fetch_count",
			Help: "Total number of mailbox fetch operations",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_fetch_failures",
			Help: "Total number of failed mailbox fetch operations",
		}),
		EmailsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_emails_received",
			Help: "Total number of raw email records offered for ingestion",
		}),
		EmailsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_emails_skipped",
			Help: "Total number of malformed email records skipped",
		}),
		EmailsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_emails_discarded",
			Help: "Total number of emails scored below the candidate threshold",
		}),
		CandidatesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_candidates_ingested",
			Help: "Total number of new candidates stored",
		}),
		DuplicateCandidates: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_duplicate_candidates",
			Help: "Total number of candidates ignored because their message id was already stored",
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_mail_review_decisions",
			Help: "Total number of review decisions by verdict",
		}, []string{"verdict"}),
		Undos: factory.NewCounter(prometheus.CounterOpts{
			Name: "flight_mail_review_undos",
			Help: "Total number of undone decisions",
		}),
		IngestTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flight_mail_review_ingest_duration_seconds",
			Help:    "Time spent scoring and storing an ingestion batch",
			Buckets: prometheus.DefBuckets,
		}),
		UnreviewedCandidates: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flight_mail_review_unreviewed_candidates",
			Help: "Number of candidates awaiting review",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveFetch(err error) {
	if m == nil {
		return
	}
	m.FetchCount.Inc()
	if err != nil {
		m.FetchFailures.Inc()
	}
}

// ObserveIngest records the outcome of one ingestion batch
func (m *Metrics) ObserveIngest(received, skipped, discarded, inserted, duplicates int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.EmailsReceived.Add(float64(received))
	m.EmailsSkipped.Add(float64(skipped))
	m.EmailsDiscarded.Add(float64(discarded))
	m.CandidatesIngested.Add(float64(inserted))
	m.DuplicateCandidates.Add(float64(duplicates))
	m.IngestTime.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDecision(verdict bool) {
	if m == nil {
		return
	}
	label := "rejected"
	if verdict {
		label = "confirmed"
	}
	m.Decisions.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveUndo() {
	if m == nil {
		return
	}
	m.Undos.Inc()
}

func (m *Metrics) SetUnreviewed(n int64) {
	if m == nil {
		return
	}
	m.UnreviewedCandidates.Set(float64(n))
}
