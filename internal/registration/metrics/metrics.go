package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration pipeline.
type Metrics struct {
	// Commit attempts by outcome: success, already_registered, transfer_error, commit_error.
	Commits *prometheus.CounterVec

	// Full commit latency including artifact downloads.
	CommitDuration prometheus.Histogram

	// Artifact references staged by document type.
	ArtifactsStaged *prometheus.CounterVec
}

// New creates and registers all registration metrics.
func New() *Metrics {
	return &Metrics{
		Commits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "velorent_registration_commits_total",
			Help: "Registration commit attempts by outcome",
		}, []string{"outcome"}),

		CommitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "velorent_registration_commit_duration_seconds",
			Help:    "Duration of atomic registration commits including artifact transfer",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		ArtifactsStaged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "velorent_registration_artifacts_staged_total",
			Help: "Artifact references written to the staging store by document type",
		}, []string{"document_type"}),
	}
}

// RecordCommit counts one commit attempt and its latency.
func (m *Metrics) RecordCommit(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Commits.WithLabelValues(outcome).Inc()
	m.CommitDuration.Observe(d.Seconds())
}

// RecordArtifactStaged counts one staged artifact reference.
func (m *Metrics) RecordArtifactStaged(docType string) {
	if m == nil {
		return
	}
	m.ArtifactsStaged.WithLabelValues(docType).Inc()
}
