package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// UsageSource reports how many bytes are already stored and records each
// object a write adds.
type UsageSource interface {
	UsedBytes(ctx context.Context) (int64, error)
	RecordObject(ctx context.Context, ref string, size int64) error
}

// Quota rejects writes that would push stored bytes past a limit. Bytes of
// in-flight writes are reserved so concurrent transfers cannot overshoot
// together. A finished write is recorded in the usage source before its
// reservation is dropped.
type Quota struct {
	next  Backend
	limit int64
	usage UsageSource

	mu       sync.Mutex
	reserved int64
	// unrecorded holds bytes that were stored but could not be recorded.
	unrecorded int64
}

// NewQuota wraps next. A limit of 0 or less disables the check.
func NewQuota(next Backend, limit int64, usage UsageSource) *Quota {
	return &Quota{next: next, limit: limit, usage: usage}
}

// Limit returns the configured quota in bytes.
func (q *Quota) Limit() int64 { return q.limit }

// Put reserves req.Size, delegates, and records the stored object before
// the reservation is released.
func (q *Quota) Put(ctx context.Context, req domain.PutRequest, onProgress func(float64)) (domain.PutResult, error) {
	if q.limit <= 0 {
		return q.next.Put(ctx, req, onProgress)
	}
	if err := q.reserve(ctx, req.Size); err != nil {
		return domain.PutResult{}, err
	}

	res, err := q.next.Put(ctx, req, onProgress)
	if err != nil {
		q.settle(req.Size, 0)
		return res, err
	}
	if rerr := q.usage.RecordObject(context.WithoutCancel(ctx), res.Reference, res.FinalSize); rerr != nil {
		q.settle(req.Size, res.FinalSize)
		return res, nil
	}
	q.settle(req.Size, 0)
	return res, nil
}

func (q *Quota) reserve(ctx context.Context, size int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	used, err := q.usage.UsedBytes(ctx)
	if err != nil {
		return fmt.Errorf("read storage usage: %w", err)
	}
	used += q.unrecorded
	if used+q.reserved+size > q.limit {
		return fmt.Errorf("%w: %s used of %s, %s more requested",
			domain.ErrQuotaExceeded,
			domain.HumanSize(used+q.reserved), domain.HumanSize(q.limit), domain.HumanSize(size))
	}
	q.reserved += size
	return nil
}

// settle drops a reservation and keeps any bytes the usage source missed.
func (q *Quota) settle(reserved, unrecorded int64) {
	q.mu.Lock()
	q.reserved -= reserved
	q.unrecorded += unrecorded
	q.mu.Unlock()
}

func (q *Quota) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return q.next.Open(ctx, ref)
}

func (q *Quota) Ping(ctx context.Context) error { return q.next.Ping(ctx) }
