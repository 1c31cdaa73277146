package upload

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

const waitTimeout = 2 * time.Second

// ─── Controlled Storage ─────────────────────────────────────────────────────

// pendingPut is one Put call held open until the test resolves it.
type pendingPut struct {
	req        domain.PutRequest
	body       []byte
	onProgress func(float64)
	result     chan putOutcome
}

type putOutcome struct {
	res domain.PutResult
	err error
}

func (p *pendingPut) progress(f float64) { p.onProgress(f) }

func (p *pendingPut) succeed() {
	p.result <- putOutcome{res: domain.PutResult{Reference: "ref/" + p.req.Key, FinalSize: int64(len(p.body))}}
}

func (p *pendingPut) fail(err error) { p.result <- putOutcome{err: err} }

// controlledStorage blocks every Put until the test calls succeed or fail,
// or until the transfer context ends.
type controlledStorage struct {
	puts chan *pendingPut
}

func newControlledStorage() *controlledStorage {
	return &controlledStorage{puts: make(chan *pendingPut, 64)}
}

func (s *controlledStorage) Put(ctx context.Context, req domain.PutRequest, onProgress func(float64)) (domain.PutResult, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return domain.PutResult{}, err
	}
	p := &pendingPut{req: req, body: body, onProgress: onProgress, result: make(chan putOutcome, 1)}
	s.puts <- p
	select {
	case out := <-p.result:
		return out.res, out.err
	case <-ctx.Done():
		return domain.PutResult{}, ctx.Err()
	}
}

// next waits for the next Put to arrive.
func (s *controlledStorage) next(t *testing.T) *pendingPut {
	t.Helper()
	select {
	case p := <-s.puts:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a transfer to start")
		return nil
	}
}

// collect waits for n transfers and indexes them by file name. Transfers
// admitted together may start in any order.
func (s *controlledStorage) collect(t *testing.T, n int) map[string]*pendingPut {
	t.Helper()
	out := make(map[string]*pendingPut, n)
	for i := 0; i < n; i++ {
		p := s.next(t)
		out[p.req.Name] = p
	}
	return out
}

// none asserts that no Put arrives for a short while.
func (s *controlledStorage) none(t *testing.T) {
	t.Helper()
	select {
	case p := <-s.puts:
		t.Fatalf("unexpected transfer of %q", p.req.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

// ─── Simulated Storage ──────────────────────────────────────────────────────

// simulatedStorage reports progress in fixed steps, then succeeds or fails.
type simulatedStorage struct {
	steps []float64
	err   error
	delay time.Duration
}

func (s *simulatedStorage) Put(ctx context.Context, req domain.PutRequest, onProgress func(float64)) (domain.PutResult, error) {
	n, _ := io.Copy(io.Discard, req.Body)
	for _, f := range s.steps {
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return domain.PutResult{}, ctx.Err()
			}
		}
		onProgress(f)
	}
	if s.err != nil {
		return domain.PutResult{}, s.err
	}
	return domain.PutResult{Reference: "sim/" + req.Key, FinalSize: n}, nil
}

// ─── Recording Presenter ────────────────────────────────────────────────────

type recorder struct {
	mu         sync.Mutex
	updates    []domain.TaskUpdate
	summaries  []domain.BatchSummary
	rejections []domain.Rejection
	log        []string // "task:<id>:<status>", "batch:<id>", "reject:<name>"
}

func (r *recorder) TaskUpdated(u domain.TaskUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	r.log = append(r.log, "task:"+u.ID+":"+string(u.Status))
}

func (r *recorder) BatchCompleted(s domain.BatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	r.log = append(r.log, "batch:"+s.BatchID)
}

func (r *recorder) FileRejected(x domain.Rejection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejections = append(r.rejections, x)
	r.log = append(r.log, "reject:"+x.DisplayName)
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recorder) updatesFor(taskID string) []domain.TaskUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TaskUpdate
	for _, u := range r.updates {
		if u.ID == taskID {
			out = append(out, u)
		}
	}
	return out
}

func (r *recorder) batchProgress(batchID string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []float64
	for _, u := range r.updates {
		if u.BatchID == batchID {
			out = append(out, u.BatchProgress)
		}
	}
	return out
}

func (r *recorder) summariesFor(batchID string) []domain.BatchSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BatchSummary
	for _, s := range r.summaries {
		if s.BatchID == batchID {
			out = append(out, s)
		}
	}
	return out
}

// ─── Helpers ────────────────────────────────────────────────────────────────

type violations struct {
	mu   sync.Mutex
	errs []error
}

func (v *violations) record(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = append(v.errs, err)
}

func (v *violations) all() []error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]error(nil), v.errs...)
}

type harness struct {
	m     *Manager
	store *controlledStorage
	rec   *recorder
	viol  *violations
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{store: newControlledStorage(), rec: &recorder{}, viol: &violations{}}
	m, err := NewManager(cfg, h.store, h.rec, WithViolationHandler(h.viol.record))
	require.NoError(t, err)
	h.m = m
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = m.Close(ctx)
	})
	return h
}

func (h *harness) wait(t *testing.T, batchID string) domain.BatchSummary {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	s, err := h.m.Wait(ctx, batchID)
	require.NoError(t, err)
	return s
}

func files(names ...string) []domain.Payload {
	out := make([]domain.Payload, 0, len(names))
	for _, n := range names {
		body := []byte("content of " + n)
		out = append(out, domain.Payload{Name: n, Size: int64(len(body)), Source: domain.BytesSource(body)})
	}
	return out
}

func smallConfig(c int) Config {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = c
	cfg.MaxFileSize = 1 << 20
	return cfg
}

var errBoom = errors.New("connection reset")
