package metrics

import (
	"strings"
	"sync"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// Presenter turns upload events into metric updates. It remembers the last
// state of each live task so gauges move by transition, not by event.
type Presenter struct {
	mu    sync.Mutex
	state map[string]domain.TaskState
}

// NewPresenter creates a metrics presenter.
func NewPresenter() *Presenter {
	return &Presenter{state: make(map[string]domain.TaskState)}
}

func (p *Presenter) TaskUpdated(u domain.TaskUpdate) {
	p.mu.Lock()
	prev, seen := p.state[u.ID]
	if seen && prev == u.Status {
		p.mu.Unlock()
		return
	}
	if u.Status.IsTerminal() {
		delete(p.state, u.ID)
	} else {
		p.state[u.ID] = u.Status
	}
	p.mu.Unlock()

	switch prev {
	case domain.TaskQueued:
		UploadsQueued.Dec()
	case domain.TaskActive:
		UploadsActive.Dec()
	}

	switch u.Status {
	case domain.TaskQueued:
		UploadsQueued.Inc()
	case domain.TaskActive:
		UploadsActive.Inc()
		if !u.StartedAt.IsZero() && !u.CreatedAt.IsZero() {
			UploadWait.Observe(u.StartedAt.Sub(u.CreatedAt).Seconds())
		}
	default:
		status := strings.ToLower(string(u.Status))
		UploadsCompleted.WithLabelValues(status).Inc()
		if !u.StartedAt.IsZero() && !u.FinishedAt.IsZero() {
			UploadDuration.WithLabelValues(status).Observe(u.FinishedAt.Sub(u.StartedAt).Seconds())
		}
		if u.Status == domain.TaskSucceeded {
			BytesUploaded.Add(float64(u.FinalSize))
			StorageUsedBytes.Add(float64(u.FinalSize))
		}
	}
}

func (p *Presenter) BatchCompleted(domain.BatchSummary) {
	BatchesCompleted.Inc()
}

func (p *Presenter) FileRejected(r domain.Rejection) {
	UploadsRejected.WithLabelValues(r.Code).Inc()
}
