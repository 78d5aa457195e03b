package probe

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	// probeRequestsTotal tracks probe invocations by source and outcome
	probeRequestsTotal *prometheus.CounterVec

	// probeErrorsTotal tracks probe failures by source and failure kind
	probeErrorsTotal *prometheus.CounterVec

	// probeDuration tracks latency of individual probe invocations
	probeDuration *prometheus.HistogramVec

	// scanScore tracks the distribution of total scores
	scanScore prometheus.Histogram

	// scanVerdicts tracks verdict outcomes
	scanVerdicts *prometheus.CounterVec

	// evidenceTotal tracks surviving evidence by category
	evidenceTotal *prometheus.CounterVec
)

// InitMetrics registers all Prometheus metrics for the scan engine.
// This should be called once at application startup.
func InitMetrics() {
	metricsOnce.Do(func() {
		probeRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_probe_requests_total",
				Help: "Total number of probe invocations by source and outcome",
			},
			[]string{"source", "status"},
		)

		probeErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_probe_errors_total",
				Help: "Total number of probe failures by source and failure kind",
			},
			[]string{"source", "kind"},
		)

		probeDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospector_probe_duration_seconds",
				Help:    "Duration of probe invocations in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"source"},
		)

		scanScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "prospector_scan_score",
				Help:    "Distribution of total scan scores",
				Buckets: []float64{0, 10, 20, 40, 60, 80, 100, 150, 210},
			},
		)

		scanVerdicts = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_scan_verdicts_total",
				Help: "Total number of scans by verdict",
			},
			[]string{"verdict"},
		)

		evidenceTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_evidence_total",
				Help: "Surviving evidence records by category",
			},
			[]string{"category"},
		)
	})
}

// RecordProbe records one probe invocation.
func RecordProbe(sourceID string, status domain.ProbeStatus, elapsed time.Duration) {
	if probeRequestsTotal != nil {
		probeRequestsTotal.WithLabelValues(sourceID, status.String()).Inc()
	}
	if probeDuration != nil {
		probeDuration.WithLabelValues(sourceID).Observe(elapsed.Seconds())
	}
}

// RecordProbeError records a probe failure by kind.
func RecordProbeError(sourceID, kind string) {
	if probeErrorsTotal != nil {
		probeErrorsTotal.WithLabelValues(sourceID, kind).Inc()
	}
}

// RecordScan records metrics from a completed score report.
func RecordScan(report domain.ScoreReport) {
	if scanScore != nil {
		scanScore.Observe(float64(report.TotalScore))
	}
	if scanVerdicts != nil {
		scanVerdicts.WithLabelValues(string(report.Verdict)).Inc()
	}
	if evidenceTotal != nil {
		for _, list := range report.EvidenceBySource {
			for _, ev := range list {
				evidenceTotal.WithLabelValues(string(ev.Category)).Inc()
			}
		}
	}
}
