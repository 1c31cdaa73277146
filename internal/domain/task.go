// Package domain holds the upload types shared by every layer.
// A task is one file's upload attempt:
// submit → validate → queue → admit → transfer → succeed | fail | cancel.
package domain

import (
	"bytes"
	"io"
	"os"
	"time"
)

// TaskState tracks the upload task lifecycle.
type TaskState string

const (
	TaskQueued    TaskState = "QUEUED"
	TaskActive    TaskState = "ACTIVE"
	TaskSucceeded TaskState = "SUCCEEDED"
	TaskFailed    TaskState = "FAILED"
	TaskCancelled TaskState = "CANCELLED"
)

// IsTerminal returns true if no further transitions are possible.
func (s TaskState) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCancelled
}

// CanTransition reports whether s → to is a legal edge of the state machine.
//
//	QUEUED → ACTIVE | CANCELLED
//	ACTIVE → SUCCEEDED | FAILED | CANCELLED
func (s TaskState) CanTransition(to TaskState) bool {
	switch s {
	case TaskQueued:
		return to == TaskActive || to == TaskCancelled
	case TaskActive:
		return to == TaskSucceeded || to == TaskFailed || to == TaskCancelled
	default:
		return false
	}
}

// ─── Payload ────────────────────────────────────────────────────────────────

// Source is a re-openable content handle. Each Open returns a fresh reader
// positioned at the start, so a failed task can be resubmitted.
type Source interface {
	Open() (io.ReadCloser, error)
}

// FileSource reads content from a path on the local filesystem.
type FileSource string

// Open opens the file.
func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

// BytesSource serves content from memory.
type BytesSource []byte

// Open returns a seekable reader over the bytes.
func (b BytesSource) Open() (io.ReadCloser, error) {
	return nopSeekCloser{bytes.NewReader(b)}, nil
}

type nopSeekCloser struct{ *bytes.Reader }

func (nopSeekCloser) Close() error { return nil }

// Payload describes the content of one upload. Immutable once a task exists.
type Payload struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	Source      Source `json:"-"`
}

// ─── Upload Task ────────────────────────────────────────────────────────────

// UploadTask is one file's transfer lifecycle.
type UploadTask struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	Payload     Payload   `json:"payload"`
	Destination string    `json:"destination"`
	State       TaskState `json:"state"`
	Progress    float64   `json:"progress"`
	Error       string    `json:"error,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	FinalSize   int64     `json:"final_size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// IsTerminal returns true if the task has reached a final state.
func (t *UploadTask) IsTerminal() bool { return t.State.IsTerminal() }

// Duration returns how long the transfer ran (0 if not started/finished).
func (t *UploadTask) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

// Wait returns how long the task sat in the queue before admission.
func (t *UploadTask) Wait() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	return t.StartedAt.Sub(t.CreatedAt)
}

// ETA estimates the remaining transfer time from progress so far.
// Returns -1 when no estimate is possible yet.
func (t *UploadTask) ETA(now time.Time) time.Duration {
	if t.State != TaskActive || t.Progress <= 0 || t.StartedAt.IsZero() {
		return -1
	}
	if t.Progress >= 1 {
		return 0
	}
	elapsed := now.Sub(t.StartedAt)
	total := time.Duration(float64(elapsed) / t.Progress)
	remaining := total - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ─── Events ─────────────────────────────────────────────────────────────────

// TaskUpdate is the per-task event delivered to presenters on every state
// or progress change.
type TaskUpdate struct {
	ID            string    `json:"id"`
	BatchID       string    `json:"batch_id"`
	DisplayName   string    `json:"display_name"`
	Status        TaskState `json:"status"`
	Progress      float64   `json:"progress"`
	BatchProgress float64   `json:"batch_progress"`
	Size          int64     `json:"size"`
	Destination   string    `json:"destination"`
	Error         string    `json:"error,omitempty"`
	Reference     string    `json:"reference,omitempty"`
	FinalSize     int64     `json:"final_size,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

// UpdateFor builds the presenter event for a task.
func UpdateFor(t *UploadTask, batchProgress float64) TaskUpdate {
	return TaskUpdate{
		ID:            t.ID,
		BatchID:       t.BatchID,
		DisplayName:   t.Payload.Name,
		Status:        t.State,
		Progress:      t.Progress,
		BatchProgress: batchProgress,
		Size:          t.Payload.Size,
		Destination:   t.Destination,
		Error:         t.Error,
		Reference:     t.Reference,
		FinalSize:     t.FinalSize,
		CreatedAt:     t.CreatedAt,
		StartedAt:     t.StartedAt,
		FinishedAt:    t.FinishedAt,
	}
}

// Rejection reports a file refused before it entered the queue.
type Rejection struct {
	BatchID     string `json:"batch_id"`
	DisplayName string `json:"display_name"`
	Size        int64  `json:"size"`
	Code        string `json:"code"` // too_large | empty_name | invalid_size | type_rejected
	Reason      string `json:"reason"`
}

// BatchSummary is emitted exactly once per batch, after its last task
// reaches a terminal state.
type BatchSummary struct {
	BatchID     string    `json:"batch_id"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Cancelled   int       `json:"cancelled"`
	Rejected    int       `json:"rejected"`
	Bytes       int64     `json:"bytes"`
	CompletedAt time.Time `json:"completed_at"`
}

// Total returns the number of tasks that entered the queue.
func (s BatchSummary) Total() int { return s.Succeeded + s.Failed + s.Cancelled }

// BatchSnapshot is a point-in-time copy of a batch for presentation.
type BatchSnapshot struct {
	ID          string       `json:"id"`
	Destination string       `json:"destination"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt time.Time    `json:"completed_at,omitempty"`
	Overall     float64      `json:"overall"`
	Done        bool         `json:"done"`
	Queued      int          `json:"queued"`
	Active      int          `json:"active"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Cancelled   int          `json:"cancelled"`
	Tasks       []UploadTask `json:"tasks"`
	Rejections  []Rejection  `json:"rejections"`
}
