package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

func TestUploadMetrics_Registered(t *testing.T) {
	UploadsCompleted.WithLabelValues("succeeded").Add(0)
	UploadsRejected.WithLabelValues("too_large").Add(0)
	UploadDuration.WithLabelValues("succeeded").Observe(0)
	HealthCheckStatus.WithLabelValues("sqlite").Set(1)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"drivenest_uploads_active",
		"drivenest_uploads_queued",
		"drivenest_uploads_completed_total",
		"drivenest_uploads_rejected_total",
		"drivenest_upload_bytes_total",
		"drivenest_upload_duration_seconds",
		"drivenest_upload_wait_seconds",
		"drivenest_batches_completed_total",
		"drivenest_health_check_status",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestPresenter_GaugesFollowTransitions(t *testing.T) {
	p := NewPresenter()
	queued0 := testutil.ToFloat64(UploadsQueued)
	active0 := testutil.ToFloat64(UploadsActive)
	done0 := testutil.ToFloat64(UploadsCompleted.WithLabelValues("succeeded"))
	bytes0 := testutil.ToFloat64(BytesUploaded)

	now := time.Now()
	u := domain.TaskUpdate{ID: "m1", Status: domain.TaskQueued, CreatedAt: now}
	p.TaskUpdated(u)
	if got := testutil.ToFloat64(UploadsQueued) - queued0; got != 1 {
		t.Errorf("queued delta = %v, want 1", got)
	}

	u.Status = domain.TaskActive
	u.StartedAt = now.Add(time.Second)
	p.TaskUpdated(u)
	u.Progress = 0.5
	p.TaskUpdated(u) // progress tick, no transition
	if got := testutil.ToFloat64(UploadsActive) - active0; got != 1 {
		t.Errorf("active delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(UploadsQueued) - queued0; got != 0 {
		t.Errorf("queued delta after admit = %v, want 0", got)
	}

	u.Status = domain.TaskSucceeded
	u.FinalSize = 2048
	u.FinishedAt = now.Add(3 * time.Second)
	p.TaskUpdated(u)
	if got := testutil.ToFloat64(UploadsActive) - active0; got != 0 {
		t.Errorf("active delta after finish = %v, want 0", got)
	}
	if got := testutil.ToFloat64(UploadsCompleted.WithLabelValues("succeeded")) - done0; got != 1 {
		t.Errorf("completed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(BytesUploaded) - bytes0; got != 2048 {
		t.Errorf("bytes delta = %v, want 2048", got)
	}
}

func TestPresenter_CancelWhileQueued(t *testing.T) {
	p := NewPresenter()
	queued0 := testutil.ToFloat64(UploadsQueued)

	p.TaskUpdated(domain.TaskUpdate{ID: "m2", Status: domain.TaskQueued})
	p.TaskUpdated(domain.TaskUpdate{ID: "m2", Status: domain.TaskCancelled})

	if got := testutil.ToFloat64(UploadsQueued) - queued0; got != 0 {
		t.Errorf("queued delta = %v, want 0", got)
	}
}

func TestPresenter_RejectionsAndBatches(t *testing.T) {
	p := NewPresenter()
	rej0 := testutil.ToFloat64(UploadsRejected.WithLabelValues("empty_name"))
	batch0 := testutil.ToFloat64(BatchesCompleted)

	p.FileRejected(domain.Rejection{Code: "empty_name"})
	p.BatchCompleted(domain.BatchSummary{BatchID: "b"})

	if got := testutil.ToFloat64(UploadsRejected.WithLabelValues("empty_name")) - rej0; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(BatchesCompleted) - batch0; got != 1 {
		t.Errorf("batches delta = %v, want 1", got)
	}
}
