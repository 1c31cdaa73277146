package presenter

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

func TestMulti_ForwardsInOrder(t *testing.T) {
	var got []string
	a := Funcs{OnTask: func(u domain.TaskUpdate) { got = append(got, "a:"+u.ID) }}
	b := Funcs{
		OnTask: func(u domain.TaskUpdate) { got = append(got, "b:"+u.ID) },
		OnDone: func(s domain.BatchSummary) { got = append(got, "b:done:"+s.BatchID) },
	}
	m := Multi{a, b}

	m.TaskUpdated(domain.TaskUpdate{ID: "t1"})
	m.BatchCompleted(domain.BatchSummary{BatchID: "b1"})
	m.FileRejected(domain.Rejection{})

	assert.Equal(t, []string{"a:t1", "b:t1", "b:done:b1"}, got)
}

// ─── Hub ────────────────────────────────────────────────────────────────────

func TestHub_FiltersByBatch(t *testing.T) {
	h := NewHub()
	one := h.Subscribe("b1")
	all := h.Subscribe("")
	defer one.Close()
	defer all.Close()

	h.TaskUpdated(domain.TaskUpdate{ID: "t1", BatchID: "b1"})
	h.TaskUpdated(domain.TaskUpdate{ID: "t2", BatchID: "b2"})
	h.BatchCompleted(domain.BatchSummary{BatchID: "b1"})

	require.Len(t, one.C, 2)
	assert.Equal(t, TypeTask, (<-one.C).Type)
	assert.Equal(t, TypeDone, (<-one.C).Type)
	assert.Len(t, all.C, 3)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := NewHub()
	s := h.Subscribe("b1")

	for i := 0; i < subscriberBuffer+1; i++ {
		h.TaskUpdated(domain.TaskUpdate{BatchID: "b1"})
	}
	assert.Equal(t, 0, h.Subscribers())

	n := 0
	for range s.C {
		n++
	}
	assert.Equal(t, subscriberBuffer, n)

	s.Close() // second close is a no-op
}

// ─── Redis ──────────────────────────────────────────────────────────────────

type fakeRedis struct {
	mu        sync.Mutex
	published []string
	stored    map[string]time.Duration
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, channel+" "+string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = map[string]time.Duration{}
	}
	f.stored[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestRedis_PublishesEnvelopes(t *testing.T) {
	fake := &fakeRedis{}
	r := NewRedis(fake, "uploads")

	r.TaskUpdated(domain.TaskUpdate{ID: "t1", BatchID: "b1", Status: domain.TaskActive})
	r.FileRejected(domain.Rejection{BatchID: "b1", DisplayName: "x"})
	r.BatchCompleted(domain.BatchSummary{BatchID: "b1", Succeeded: 1})
	r.Close()

	require.Len(t, fake.published, 3)
	assert.Contains(t, fake.published[0], "uploads ")

	var env struct {
		Type    string `json:"type"`
		BatchID string `json:"batch_id"`
		Data    struct {
			Succeeded int `json:"succeeded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(fake.published[2][len("uploads "):]), &env))
	assert.Equal(t, TypeDone, env.Type)
	assert.Equal(t, "b1", env.BatchID)
	assert.Equal(t, 1, env.Data.Succeeded)

	assert.Equal(t, SummaryTTL, fake.stored[SummaryKeyPrefix+"b1"])
}
