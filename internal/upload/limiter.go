package upload

import (
	"time"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// limiter bounds the number of ACTIVE tasks. Like the queue it is only
// touched under Manager.mu, so the capacity check, the dequeue and the state
// transition form one step.
type limiter struct {
	capacity int
	queue    *queue
	active   map[string]*task
}

func newLimiter(capacity int, q *queue) *limiter {
	return &limiter{capacity: capacity, queue: q, active: make(map[string]*task, capacity)}
}

// TryAdmit promotes the queue head to ACTIVE when a slot is free. It returns
// (nil, nil) when the limiter is full or the queue is empty.
func (l *limiter) TryAdmit(now time.Time) (*task, error) {
	if len(l.active) >= l.capacity || l.queue.Len() == 0 {
		return nil, nil
	}
	t, _ := l.queue.DequeueNext()
	if err := l.admit(t, now); err != nil {
		return nil, err
	}
	return t, nil
}

func (l *limiter) admit(t *task, now time.Time) error {
	if len(l.active) >= l.capacity {
		return domain.Violation("admit %s with %d/%d slots in use", t.ID, len(l.active), l.capacity)
	}
	if _, dup := l.active[t.ID]; dup {
		return domain.Violation("task %s admitted twice", t.ID)
	}
	if !t.State.CanTransition(domain.TaskActive) {
		return domain.Violation("admit task %s in state %s", t.ID, t.State)
	}
	t.State = domain.TaskActive
	t.StartedAt = now
	l.active[t.ID] = t
	return nil
}

// Release frees the slot held by t.
func (l *limiter) Release(t *task) error {
	if _, ok := l.active[t.ID]; !ok {
		return domain.Violation("release of task %s that holds no slot", t.ID)
	}
	delete(l.active, t.ID)
	return nil
}

// Active returns the number of occupied slots.
func (l *limiter) Active() int { return len(l.active) }
