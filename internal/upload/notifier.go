package upload

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

type eventKind int

const (
	eventTask eventKind = iota
	eventRejected
	eventBatch
)

type event struct {
	kind      eventKind
	update    domain.TaskUpdate
	rejection domain.Rejection
	summary   domain.BatchSummary
	delivered chan struct{} // closed once the presenter has seen the event
}

// notifier delivers events to the presenter from a single goroutine, in the
// order they were pushed. Pushes happen under the manager lock; delivery
// never does, so a presenter may call back into the Manager.
type notifier struct {
	presenter domain.Presenter
	log       *logrus.Entry

	mu      sync.Mutex
	pending []event

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newNotifier(p domain.Presenter, log *logrus.Entry) *notifier {
	n := &notifier{
		presenter: p,
		log:       log,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go n.loop()
	return n
}

func (n *notifier) push(ev event) {
	n.mu.Lock()
	n.pending = append(n.pending, ev)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) take() []event {
	n.mu.Lock()
	defer n.mu.Unlock()
	evs := n.pending
	n.pending = nil
	return evs
}

func (n *notifier) loop() {
	defer close(n.stopped)
	for {
		evs := n.take()
		for _, ev := range evs {
			n.deliver(ev)
		}
		if len(evs) > 0 {
			continue
		}
		select {
		case <-n.wake:
		case <-n.stop:
			for _, ev := range n.take() {
				n.deliver(ev)
			}
			return
		}
	}
}

func (n *notifier) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			n.log.WithField("panic", r).Error("presenter panicked")
		}
		if ev.delivered != nil {
			close(ev.delivered)
		}
	}()

	switch ev.kind {
	case eventTask:
		n.presenter.TaskUpdated(ev.update)
	case eventRejected:
		n.presenter.FileRejected(ev.rejection)
	case eventBatch:
		n.presenter.BatchCompleted(ev.summary)
	}
}

// close flushes pending events and stops the delivery goroutine.
func (n *notifier) close() {
	n.once.Do(func() { close(n.stop) })
	<-n.stopped
}
