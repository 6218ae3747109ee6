package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPipeline/internal/domain"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveSync(domain.SyncResult{ClustersUpserted: 3, OpportunitiesUpserted: 5, FailedUpserts: 1}, 200*time.Millisecond)
	r.ObserveSnapshots(domain.SnapshotSaveResult{Platform: "weibo", SuccessCount: 4, FailCount: 2})
	r.ObserveDraft(domain.DraftStatusReview)
	r.ObservePublishJob(domain.JobSuccess)

	assert.InDelta(t, 1, testutil.ToFloat64(r.SyncPasses), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(r.ClustersUpserted), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(r.OpportunitiesUpserted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.UpsertFailures.WithLabelValues("opportunity")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.UpsertFailures.WithLabelValues("snapshot")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(r.SnapshotsSaved.WithLabelValues("weibo", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.DraftsGenerated.WithLabelValues("REVIEW")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.PublishJobs.WithLabelValues("SUCCESS")), 0)
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveSync(domain.SyncResult{}, time.Second)
		r.ObserveSnapshots(domain.SnapshotSaveResult{})
		r.ObserveDraft(domain.DraftStatusReady)
		r.ObservePublishJob(domain.JobFailed)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveDraft(domain.DraftStatusReady)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `trendpipeline_drafts_generated_total{status="READY"} 1`)
}
