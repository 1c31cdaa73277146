package upload

import (
	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// completeLocked runs after t has reached a terminal state and its terminal
// event has been pushed. Caller holds m.mu.
func (m *Manager) completeLocked(t *task, heldSlot bool) {
	if heldSlot {
		if err := m.limiter.Release(t); err != nil {
			m.violation(err)
		}
	}
	m.admitLocked()
	m.closeBatchIfDoneLocked(t.batch)
}

// closeBatchIfDoneLocked emits the batch summary once every task in b is
// terminal. b.done guards against a second summary.
func (m *Manager) closeBatchIfDoneLocked(b *batch) {
	if b.done {
		return
	}
	for _, t := range b.tasks {
		if !t.State.IsTerminal() {
			return
		}
	}

	b.done = true
	b.completedAt = m.now()
	b.recompute()

	s := domain.BatchSummary{
		BatchID:     b.id,
		Rejected:    len(b.rejections),
		CompletedAt: b.completedAt,
	}
	for _, t := range b.tasks {
		switch t.State {
		case domain.TaskSucceeded:
			s.Succeeded++
			s.Bytes += t.FinalSize
		case domain.TaskFailed:
			s.Failed++
		case domain.TaskCancelled:
			s.Cancelled++
		}
	}
	b.summary = s

	m.log.WithFields(logrus.Fields{
		"batch":     b.id,
		"succeeded": s.Succeeded,
		"failed":    s.Failed,
		"cancelled": s.Cancelled,
		"rejected":  s.Rejected,
	}).Info("batch complete")

	m.notify.push(event{kind: eventBatch, summary: s, delivered: b.doneCh})
}
