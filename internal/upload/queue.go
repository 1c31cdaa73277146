package upload

// queue is the FIFO of QUEUED tasks. It is only touched under Manager.mu.
type queue struct {
	items []*task
}

// Enqueue appends to the tail. Duplicates are not detected.
func (q *queue) Enqueue(t *task) {
	q.items = append(q.items, t)
}

// DequeueNext removes and returns the head.
func (q *queue) DequeueNext() (*task, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t, true
}

// Remove drops the task with the given ID, keeping the order of the rest.
func (q *queue) Remove(id string) bool {
	for i, t := range q.items {
		if t.ID == id {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = nil
			q.items = q.items[:len(q.items)-1]
			return true
		}
	}
	return false
}

// Len returns the number of waiting tasks.
func (q *queue) Len() int { return len(q.items) }
