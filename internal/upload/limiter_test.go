package upload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

func queuedTask(id string) *task {
	return &task{UploadTask: domain.UploadTask{ID: id, State: domain.TaskQueued}}
}

func TestQueue_FIFOAndRemove(t *testing.T) {
	q := &queue{}
	for _, id := range []string{"a", "b", "c", "d"} {
		q.Enqueue(queuedTask(id))
	}
	assert.Equal(t, 4, q.Len())

	assert.True(t, q.Remove("b"))
	assert.False(t, q.Remove("b"))
	assert.Equal(t, 3, q.Len())

	var got []string
	for {
		tk, ok := q.DequeueNext()
		if !ok {
			break
		}
		got = append(got, tk.ID)
	}
	assert.Equal(t, []string{"a", "c", "d"}, got)
	assert.Equal(t, 0, q.Len())
}

func TestLimiter_TryAdmit(t *testing.T) {
	q := &queue{}
	l := newLimiter(2, q)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tk, err := l.TryAdmit(now)
	require.NoError(t, err)
	assert.Nil(t, tk, "empty queue admits nothing")

	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(queuedTask(id))
	}

	a, err := l.TryAdmit(now)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "a", a.ID)
	assert.Equal(t, domain.TaskActive, a.State)
	assert.Equal(t, now, a.StartedAt)

	b, _ := l.TryAdmit(now)
	require.NotNil(t, b)
	assert.Equal(t, 2, l.Active())

	full, err := l.TryAdmit(now)
	require.NoError(t, err)
	assert.Nil(t, full, "no admission at capacity")
	assert.Equal(t, 1, q.Len())

	a.State = domain.TaskSucceeded
	require.NoError(t, l.Release(a))
	c, _ := l.TryAdmit(now)
	require.NotNil(t, c)
	assert.Equal(t, "c", c.ID)
}

func TestLimiter_Violations(t *testing.T) {
	q := &queue{}
	l := newLimiter(1, q)
	now := time.Now()

	require.NoError(t, l.admit(queuedTask("a"), now))
	assert.ErrorIs(t, l.admit(queuedTask("b"), now), domain.ErrProtocolViolation)

	assert.ErrorIs(t, l.Release(queuedTask("zzz")), domain.ErrProtocolViolation)

	done := queuedTask("c")
	done.State = domain.TaskSucceeded
	l2 := newLimiter(1, q)
	assert.ErrorIs(t, l2.admit(done, now), domain.ErrProtocolViolation)
}
