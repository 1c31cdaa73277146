// Package upload is the upload queue and concurrency manager.
//
// Files submitted together form a batch. Each accepted file becomes a task
// that waits in a FIFO queue until one of a fixed number of transfer slots
// frees up. Progress is reported per task and aggregated per batch, and
// every batch produces exactly one completion summary.
package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/fsutil"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config controls admission and transfer limits.
type Config struct {
	MaxConcurrent   int           // transfer slots (C)
	MaxFileSize     int64         // bytes
	TransferTimeout time.Duration // 0 = no deadline
}

// DefaultConfig returns 3 slots and a 100 MB file limit.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 3,
		MaxFileSize:   100 << 20,
	}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithTypeFilter installs a file type filter on the validator.
func WithTypeFilter(f TypeFilter) Option {
	return func(m *Manager) { m.validator.Filter = f }
}

// WithLogger replaces the default logger.
func WithLogger(l *logrus.Entry) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces time.Now for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithViolationHandler replaces the default handler, which panics.
// The handler runs with the manager lock held and must not call back in.
func WithViolationHandler(h func(error)) Option {
	return func(m *Manager) { m.onViolation = h }
}

// ─── Internal State ─────────────────────────────────────────────────────────

type task struct {
	domain.UploadTask
	batch  *batch
	cancel context.CancelFunc // set while ACTIVE
}

type batch struct {
	id          string
	destination string
	createdAt   time.Time
	completedAt time.Time
	tasks       []*task // submission order
	rejections  []domain.Rejection
	overall     float64
	done        bool
	summary     domain.BatchSummary
	doneCh      chan struct{} // closed after the summary is delivered
}

func (b *batch) snapshot() domain.BatchSnapshot {
	s := domain.BatchSnapshot{
		ID:          b.id,
		Destination: b.destination,
		CreatedAt:   b.createdAt,
		CompletedAt: b.completedAt,
		Overall:     b.overall,
		Done:        b.done,
		Tasks:       make([]domain.UploadTask, 0, len(b.tasks)),
		Rejections:  append([]domain.Rejection(nil), b.rejections...),
	}
	for _, t := range b.tasks {
		s.Tasks = append(s.Tasks, t.UploadTask)
		switch t.State {
		case domain.TaskQueued:
			s.Queued++
		case domain.TaskActive:
			s.Active++
		case domain.TaskSucceeded:
			s.Succeeded++
		case domain.TaskFailed:
			s.Failed++
		case domain.TaskCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Stats is a point-in-time view of the manager.
type Stats struct {
	Capacity    int `json:"capacity"`
	Active      int `json:"active"`
	Queued      int `json:"queued"`
	Batches     int `json:"batches"`
	OpenBatches int `json:"open_batches"`
}

// ─── Manager ────────────────────────────────────────────────────────────────

// Manager owns the queue, the transfer slots and every task's bookkeeping.
// All of it is guarded by mu; transfers run in their own goroutines and
// re-enter through progress and finish.
type Manager struct {
	cfg         Config
	validator   *Validator
	exec        *executor
	notify      *notifier
	log         *logrus.Entry
	now         func() time.Time
	onViolation func(error)

	baseCtx   context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	queue   *queue
	limiter *limiter
	tasks   map[string]*task
	batches map[string]*batch
	order   []*batch
	closed  bool
}

// NewManager creates a manager. A nil presenter discards events.
func NewManager(cfg Config, storage domain.Storage, presenter domain.Presenter, opts ...Option) (*Manager, error) {
	if cfg.MaxConcurrent < 1 {
		return nil, fmt.Errorf("%w (got %d)", domain.ErrInvalidCapacity, cfg.MaxConcurrent)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive (got %d)", cfg.MaxFileSize)
	}
	if storage == nil {
		return nil, errors.New("upload manager requires a storage backend")
	}
	if presenter == nil {
		presenter = domain.NopPresenter{}
	}

	q := &queue{}
	m := &Manager{
		cfg:       cfg,
		validator: NewValidator(cfg.MaxFileSize, nil),
		exec:      &executor{storage: storage, timeout: cfg.TransferTimeout},
		log:       logrus.WithField("component", "upload"),
		now:       time.Now,
		onViolation: func(err error) {
			panic(err)
		},
		queue:   q,
		limiter: newLimiter(cfg.MaxConcurrent, q),
		tasks:   make(map[string]*task),
		batches: make(map[string]*batch),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.validator.Filter == nil {
		m.validator.Filter = AcceptAll
	}
	m.baseCtx, m.cancelAll = context.WithCancel(context.Background())
	m.notify = newNotifier(presenter, m.log)
	return m, nil
}

// Config returns the limits the manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// UploadFiles validates files, queues the accepted ones as a new batch and
// starts as many as there are free slots. Per-file problems never fail the
// call: rejections are reported to the presenter and recorded on the batch.
// ctx only guards submission; transfers outlive it.
func (m *Manager) UploadFiles(ctx context.Context, destination string, files []domain.Payload) (domain.BatchSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.BatchSnapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.BatchSnapshot{}, domain.ErrManagerClosed
	}

	now := m.now()
	b := &batch{
		id:          uuid.NewString(),
		destination: fsutil.CleanRelPath(destination),
		createdAt:   now,
		doneCh:      make(chan struct{}),
	}
	m.batches[b.id] = b
	m.order = append(m.order, b)

	for _, f := range files {
		if err := m.validator.Validate(f); err != nil {
			rej := domain.Rejection{BatchID: b.id, DisplayName: f.Name, Size: f.Size, Code: "invalid", Reason: err.Error()}
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				rej.Code, rej.Reason = ve.Code(), ve.Reason
			}
			b.rejections = append(b.rejections, rej)
			m.log.WithFields(logrus.Fields{"batch": b.id, "name": f.Name}).Warn("rejected: " + rej.Reason)
			m.notify.push(event{kind: eventRejected, rejection: rej})
			continue
		}

		t := &task{
			UploadTask: domain.UploadTask{
				ID:          uuid.NewString(),
				BatchID:     b.id,
				Payload:     f,
				Destination: b.destination,
				State:       domain.TaskQueued,
				CreatedAt:   now,
			},
			batch: b,
		}
		b.tasks = append(b.tasks, t)
		m.tasks[t.ID] = t
		m.queue.Enqueue(t)
		m.emitTaskLocked(t)
		m.admitLocked()
	}

	m.log.WithFields(logrus.Fields{
		"batch":    b.id,
		"accepted": len(b.tasks),
		"rejected": len(b.rejections),
		"dest":     b.destination,
	}).Info("batch submitted")

	// A batch where every file was rejected is complete on arrival.
	m.closeBatchIfDoneLocked(b)
	return b.snapshot(), nil
}

// admitLocked fills free slots from the queue head and starts the transfers.
func (m *Manager) admitLocked() {
	if m.closed {
		return
	}
	for {
		t, err := m.limiter.TryAdmit(m.now())
		if err != nil {
			m.violation(err)
			return
		}
		if t == nil {
			return
		}

		ctx, cancel := context.WithCancel(m.baseCtx)
		t.cancel = cancel
		m.emitTaskLocked(t)
		m.log.WithFields(logrus.Fields{"task": t.ID, "name": t.Payload.Name, "wait": t.Wait()}).Debug("upload started")

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer cancel()
			m.exec.run(ctx, t, m)
		}()
	}
}

func (m *Manager) emitTaskLocked(t *task) {
	overall := t.batch.recompute()
	m.notify.push(event{kind: eventTask, update: domain.UpdateFor(&t.UploadTask, overall)})
}

func (m *Manager) violation(err error) {
	m.log.WithError(err).Error("protocol violation")
	m.onViolation(err)
}

// ─── Transfer Callbacks ─────────────────────────────────────────────────────

// activeCeiling is the highest progress an ACTIVE task may show. Only a
// successful finish sets 1.0, so a write that fails after its last byte
// still ends below 1.
var activeCeiling = math.Nextafter(1, 0)

// progress records a fraction reported by storage. Values are clamped to
// [0,activeCeiling]; anything not above the last value is dropped.
func (m *Manager) progress(t *task, fraction float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.State != domain.TaskActive {
		m.violation(domain.Violation("progress %.3f for task %s in state %s", fraction, t.ID, t.State))
		return
	}
	fraction = min(clampProgress(fraction), activeCeiling)
	if fraction <= t.Progress {
		return
	}
	t.Progress = fraction
	m.emitTaskLocked(t)
}

// finish applies the transfer outcome and hands the task to the dispatcher.
func (m *Manager) finish(t *task, res domain.PutResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.State != domain.TaskActive {
		m.violation(domain.Violation("completion for task %s in state %s", t.ID, t.State))
		return
	}

	t.cancel = nil
	t.FinishedAt = m.now()
	entry := m.log.WithFields(logrus.Fields{"task": t.ID, "name": t.Payload.Name})

	switch {
	case err == nil:
		t.State = domain.TaskSucceeded
		t.Progress = 1
		t.Reference = res.Reference
		t.FinalSize = res.FinalSize
		entry.WithField("duration", t.Duration()).Info("upload succeeded")
	case errors.Is(err, domain.ErrTransferCancelled):
		t.State = domain.TaskCancelled
		t.Error = domain.ErrTransferCancelled.Error()
		entry.Info("upload cancelled")
	default:
		t.State = domain.TaskFailed
		t.Error = failureReason(err)
		entry.WithError(err).Warn("upload failed")
	}

	m.emitTaskLocked(t)
	m.completeLocked(t, true)
}

func failureReason(err error) string {
	var te *domain.TransferError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Batch returns a snapshot of one batch.
func (m *Manager) Batch(id string) (domain.BatchSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[id]
	if !ok {
		return domain.BatchSnapshot{}, fmt.Errorf("batch %s: %w", id, domain.ErrBatchNotFound)
	}
	return b.snapshot(), nil
}

// Batches returns snapshots of every retained batch, oldest first.
func (m *Manager) Batches() []domain.BatchSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.BatchSnapshot, 0, len(m.order))
	for _, b := range m.order {
		out = append(out, b.snapshot())
	}
	return out
}

// Task returns a copy of one task.
func (m *Manager) Task(id string) (domain.UploadTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return domain.UploadTask{}, fmt.Errorf("task %s: %w", id, domain.ErrTaskNotFound)
	}
	return t.UploadTask, nil
}

// Stats returns slot and queue occupancy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Capacity: m.cfg.MaxConcurrent,
		Active:   m.limiter.Active(),
		Queued:   m.queue.Len(),
		Batches:  len(m.order),
	}
	for _, b := range m.order {
		if !b.done {
			s.OpenBatches++
		}
	}
	return s
}

// Wait blocks until the batch summary has been delivered to the presenter.
func (m *Manager) Wait(ctx context.Context, batchID string) (domain.BatchSummary, error) {
	m.mu.Lock()
	b, ok := m.batches[batchID]
	m.mu.Unlock()
	if !ok {
		return domain.BatchSummary{}, fmt.Errorf("batch %s: %w", batchID, domain.ErrBatchNotFound)
	}

	select {
	case <-b.doneCh:
	case <-ctx.Done():
		return domain.BatchSummary{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return b.summary, nil
}

// ─── Cancellation & History ─────────────────────────────────────────────────

// Cancel stops one task. A queued task is cancelled immediately; an active
// one has its transfer context cancelled and turns CANCELLED when storage
// returns. Cancelling a terminal task is a no-op.
func (m *Manager) Cancel(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
	}
	m.cancelLocked(t)
	return nil
}

// CancelBatch cancels every non-terminal task in the batch and returns how
// many were affected.
func (m *Manager) CancelBatch(batchID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[batchID]
	if !ok {
		return 0, fmt.Errorf("batch %s: %w", batchID, domain.ErrBatchNotFound)
	}
	return m.cancelBatchLocked(b), nil
}

// cancelBatchLocked cancels queued tasks before signalling active ones so
// no freed slot is handed to a task of the same batch.
func (m *Manager) cancelBatchLocked(b *batch) int {
	n := 0
	for _, t := range b.tasks {
		if t.State == domain.TaskQueued {
			m.cancelLocked(t)
			n++
		}
	}
	for _, t := range b.tasks {
		if t.State == domain.TaskActive {
			m.cancelLocked(t)
			n++
		}
	}
	return n
}

func (m *Manager) cancelLocked(t *task) {
	switch t.State {
	case domain.TaskQueued:
		m.queue.Remove(t.ID)
		t.State = domain.TaskCancelled
		t.FinishedAt = m.now()
		t.Error = "cancelled before start"
		m.log.WithFields(logrus.Fields{"task": t.ID, "name": t.Payload.Name}).Info("upload cancelled")
		m.emitTaskLocked(t)
		m.completeLocked(t, false)
	case domain.TaskActive:
		if t.cancel != nil {
			t.cancel()
		}
	}
}

// Retry resubmits a failed or cancelled task as a new single-file batch.
// The new task gets a fresh ID; the original stays in history.
func (m *Manager) Retry(ctx context.Context, taskID string) (domain.BatchSnapshot, error) {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return domain.BatchSnapshot{}, fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
	}
	if t.State != domain.TaskFailed && t.State != domain.TaskCancelled {
		state := t.State
		m.mu.Unlock()
		return domain.BatchSnapshot{}, fmt.Errorf("task %s is %s: %w", taskID, state, domain.ErrNotRetryable)
	}
	payload, dest := t.Payload, t.Destination
	m.mu.Unlock()

	return m.UploadFiles(ctx, dest, []domain.Payload{payload})
}

// ClearHistory forgets every completed batch and returns their IDs.
// Batches with unfinished tasks are kept.
func (m *Manager) ClearHistory() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	kept := m.order[:0]
	for _, b := range m.order {
		if !b.done {
			kept = append(kept, b)
			continue
		}
		for _, t := range b.tasks {
			delete(m.tasks, t.ID)
		}
		delete(m.batches, b.id)
		removed = append(removed, b.id)
	}
	for i := len(kept); i < len(m.order); i++ {
		m.order[i] = nil
	}
	m.order = kept
	return removed
}

// Close rejects new submissions, cancels every queued and active task, and
// waits for in-flight transfers and pending events until ctx is done.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, b := range m.order {
		m.cancelBatchLocked(b)
	}
	m.cancelAll()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for transfers: %w", ctx.Err())
	}
	m.notify.close()
	return err
}
