package presenter

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

const subscriberBuffer = 256

// Hub broadcasts events to in-process subscribers such as SSE streams.
// A subscriber that falls a full buffer behind is dropped: its channel is
// closed and it is expected to resync from a snapshot.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
	log  *logrus.Entry
}

// Subscription receives envelopes for one batch, or for all batches when
// its batch ID is empty.
type Subscription struct {
	C <-chan Envelope

	ch      chan Envelope
	batchID string
	hub     *Hub
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscription]struct{}),
		log:  logrus.WithField("component", "hub"),
	}
}

// Subscribe registers a subscriber. batchID "" receives every event.
func (h *Hub) Subscribe(batchID string) *Subscription {
	ch := make(chan Envelope, subscriberBuffer)
	s := &Subscription{C: ch, ch: ch, batchID: batchID, hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

func (h *Hub) removeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	delete(h.subs, s)
	close(s.ch)
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.batchID != "" && s.batchID != env.BatchID {
			continue
		}
		select {
		case s.ch <- env:
		default:
			h.log.WithField("batch", s.batchID).Warn("subscriber too slow, dropping")
			h.removeLocked(s)
		}
	}
}

func (h *Hub) TaskUpdated(u domain.TaskUpdate)      { h.broadcast(taskEnvelope(u)) }
func (h *Hub) BatchCompleted(s domain.BatchSummary) { h.broadcast(doneEnvelope(s)) }
func (h *Hub) FileRejected(r domain.Rejection)      { h.broadcast(rejectedEnvelope(r)) }
