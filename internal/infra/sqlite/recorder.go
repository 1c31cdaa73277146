package sqlite

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// Recorder is a presenter that persists upload history. It writes on state
// changes only; progress ticks within a state are skipped. Successful
// uploads are also recorded as stored objects.
type Recorder struct {
	db  *DB
	log *logrus.Entry

	mu   sync.Mutex
	last map[string]domain.TaskState
}

// NewRecorder creates a recorder backed by db.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{
		db:   db,
		log:  logrus.WithField("component", "history"),
		last: make(map[string]domain.TaskState),
	}
}

func (r *Recorder) TaskUpdated(u domain.TaskUpdate) {
	r.mu.Lock()
	prev, seen := r.last[u.ID]
	if seen && prev == u.Status {
		r.mu.Unlock()
		return
	}
	if u.Status.IsTerminal() {
		delete(r.last, u.ID)
	} else {
		r.last[u.ID] = u.Status
	}
	r.mu.Unlock()

	if err := r.db.UpsertUpload(u); err != nil {
		r.log.WithError(err).WithField("task", u.ID).Error("record upload")
	}
	if u.Status == domain.TaskSucceeded {
		if err := r.db.RecordObject(context.Background(), u.Reference, u.FinalSize); err != nil {
			r.log.WithError(err).WithField("ref", u.Reference).Error("record object")
		}
	}
}

func (r *Recorder) BatchCompleted(s domain.BatchSummary) {
	if err := r.db.InsertBatch(s); err != nil {
		r.log.WithError(err).WithField("batch", s.BatchID).Error("record batch")
	}
}

func (r *Recorder) FileRejected(x domain.Rejection) {
	if err := r.db.InsertRejection(x); err != nil {
		r.log.WithError(err).WithField("name", x.DisplayName).Error("record rejection")
	}
}
