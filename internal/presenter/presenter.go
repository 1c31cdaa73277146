// Package presenter fans upload events out to the places that show or
// record them: SSE subscribers, a Redis channel, history and metrics.
package presenter

import (
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// Event types carried in an Envelope.
const (
	TypeTask     = "task"
	TypeRejected = "rejected"
	TypeDone     = "done"
)

// Envelope is the wire form of one event, shared by SSE and Redis.
type Envelope struct {
	Type    string `json:"type"`
	BatchID string `json:"batch_id"`
	Data    any    `json:"data"`
}

func taskEnvelope(u domain.TaskUpdate) Envelope {
	return Envelope{Type: TypeTask, BatchID: u.BatchID, Data: u}
}

func rejectedEnvelope(r domain.Rejection) Envelope {
	return Envelope{Type: TypeRejected, BatchID: r.BatchID, Data: r}
}

func doneEnvelope(s domain.BatchSummary) Envelope {
	return Envelope{Type: TypeDone, BatchID: s.BatchID, Data: s}
}

// Multi forwards every event to each presenter in order.
type Multi []domain.Presenter

func (m Multi) TaskUpdated(u domain.TaskUpdate) {
	for _, p := range m {
		p.TaskUpdated(u)
	}
}

func (m Multi) BatchCompleted(s domain.BatchSummary) {
	for _, p := range m {
		p.BatchCompleted(s)
	}
}

func (m Multi) FileRejected(r domain.Rejection) {
	for _, p := range m {
		p.FileRejected(r)
	}
}

// Funcs adapts plain functions to a Presenter. Nil fields are skipped.
type Funcs struct {
	OnTask     func(domain.TaskUpdate)
	OnDone     func(domain.BatchSummary)
	OnRejected func(domain.Rejection)
}

func (f Funcs) TaskUpdated(u domain.TaskUpdate) {
	if f.OnTask != nil {
		f.OnTask(u)
	}
}

func (f Funcs) BatchCompleted(s domain.BatchSummary) {
	if f.OnDone != nil {
		f.OnDone(s)
	}
}

func (f Funcs) FileRejected(r domain.Rejection) {
	if f.OnRejected != nil {
		f.OnRejected(r)
	}
}
