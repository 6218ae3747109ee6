// Package metrics exposes pipeline counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TrendPipeline/internal/domain"
)

const namespace = "trendpipeline"

// Recorder holds the pipeline metrics. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	SyncPasses            prometheus.Counter
	SyncDuration          prometheus.Histogram
	ClustersUpserted      prometheus.Counter
	OpportunitiesUpserted prometheus.Counter
	UpsertFailures        *prometheus.CounterVec
	SnapshotsSaved        *prometheus.CounterVec
	DraftsGenerated       *prometheus.CounterVec
	PublishJobs           *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		SyncPasses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_passes_total",
			Help:      "Opportunity sync passes completed",
		}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of one opportunity sync pass",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ClustersUpserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clusters_upserted_total",
			Help:      "Topic clusters upserted by sync passes",
		}),
		OpportunitiesUpserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_upserted_total",
			Help:      "Opportunities created or refreshed by sync passes",
		}),
		UpsertFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upsert_failures_total",
			Help:      "Isolated per-item write failures",
		}, []string{"stage"}),
		SnapshotsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_saved_total",
			Help:      "Trend snapshot writes by platform and outcome",
		}, []string{"platform", "result"}),
		DraftsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_generated_total",
			Help:      "Generated drafts by resulting status",
		}, []string{"status"}),
		PublishJobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_jobs_total",
			Help:      "Publish job executions by final status",
		}, []string{"status"}),
	}
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveSync records one finished sync pass.
func (r *Recorder) ObserveSync(res domain.SyncResult, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.SyncPasses.Inc()
	r.SyncDuration.Observe(elapsed.Seconds())
	r.ClustersUpserted.Add(float64(res.ClustersUpserted))
	r.OpportunitiesUpserted.Add(float64(res.OpportunitiesUpserted))
	if res.FailedUpserts > 0 {
		r.UpsertFailures.WithLabelValues("opportunity").Add(float64(res.FailedUpserts))
	}
}

// ObserveSnapshots records one platform's snapshot save tally.
func (r *Recorder) ObserveSnapshots(res domain.SnapshotSaveResult) {
	if r == nil {
		return
	}
	r.SnapshotsSaved.WithLabelValues(res.Platform, "ok").Add(float64(res.SuccessCount))
	if res.FailCount > 0 {
		r.SnapshotsSaved.WithLabelValues(res.Platform, "failed").Add(float64(res.FailCount))
		r.UpsertFailures.WithLabelValues("snapshot").Add(float64(res.FailCount))
	}
}

// ObserveDraft records a generated draft.
func (r *Recorder) ObserveDraft(status domain.DraftStatus) {
	if r == nil {
		return
	}
	r.DraftsGenerated.WithLabelValues(string(status)).Inc()
}

// ObservePublishJob records a publish job execution outcome.
func (r *Recorder) ObservePublishJob(status domain.PublishJobStatus) {
	if r == nil {
		return
	}
	r.PublishJobs.WithLabelValues(string(status)).Inc()
}
