package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. Pipeline counters carry a mode label
// so the deliverability and catchall pipelines can be charted separately.
type Metrics struct {
	EmailsCollected   *prometheus.CounterVec
	BatchesSubmitted  *prometheus.CounterVec
	SubmitFailures    *prometheus.CounterVec
	OrphanedBatches   *prometheus.CounterVec
	RateLimitDenials  *prometheus.CounterVec
	PollChecks        *prometheus.CounterVec
	BatchesCompleted  *prometheus.CounterVec
	BatchesFailed     *prometheus.CounterVec
	ResultsIngested   *prometheus.CounterVec
	StuckBatchesFixed *prometheus.CounterVec
	ActiveBatches     *prometheus.GaugeVec
	IngestDuration    prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EmailsCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_emails_collected_total",
			Help: "Total number of backlog emails placed into bouncer batches",
		}, []string{"mode"}),
		BatchesSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_batches_submitted_total",
			Help: "Total number of bouncer batches submitted to the provider",
		}, []string{"mode"}),
		SubmitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_submit_failures_total",
			Help: "Total number of failed batch submissions",
		}, []string{"mode"}),
		OrphanedBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_orphaned_batches_total",
			Help: "Total number of provider batches submitted but never recorded locally",
		}, []string{"mode"}),
		RateLimitDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_rate_limit_denials_total",
			Help: "Total number of provider calls deferred by the rate limiter",
		}, []string{"mode", "operation"}),
		PollChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_poll_checks_total",
			Help: "Total number of batch status checks against the provider",
		}, []string{"mode"}),
		BatchesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_batches_completed_total",
			Help: "Total number of bouncer batches completed and ingested",
		}, []string{"mode"}),
		BatchesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_batches_failed_total",
			Help: "Total number of bouncer batches marked failed",
		}, []string{"mode"}),
		ResultsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_results_ingested_total",
			Help: "Total number of verification outcomes written",
		}, []string{"mode"}),
		StuckBatchesFixed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bulk_mail_verify_stuck_batches_fixed_total",
			Help: "Total number of stuck verification batches finalized by the reconciler",
		}, []string{"mode"}),
		ActiveBatches: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bulk_mail_verify_active_batches",
			Help: "Number of bouncer batches currently pending or processing",
		}, []string{"mode"}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bulk_mail_verify_ingest_duration_seconds",
			Help:    "Time spent ingesting downloaded batch results",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
