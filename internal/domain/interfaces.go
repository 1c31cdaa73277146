package domain

import (
	"context"
	"io"
)

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the upload subsystem depends on them.

// PutRequest is one object write handed to a storage backend.
type PutRequest struct {
	Key         string // logical destination key (destination + name)
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// PutResult is returned by a successful write.
type PutResult struct {
	Reference string `json:"reference"`
	FinalSize int64  `json:"final_size"`
}

// Storage is the external storage collaborator.
type Storage interface {
	// Put writes the object. onProgress is called zero or more times with
	// non-decreasing fractions in [0,1] before Put returns.
	Put(ctx context.Context, req PutRequest, onProgress func(fraction float64)) (PutResult, error)
}

// Opener is implemented by backends that can read objects back (previews).
type Opener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Presenter is the presentation collaborator. Calls are made from a single
// goroutine in event order; implementations must not block for long.
type Presenter interface {
	TaskUpdated(u TaskUpdate)
	BatchCompleted(s BatchSummary)
	FileRejected(r Rejection)
}

// NopPresenter discards every event.
type NopPresenter struct{}

func (NopPresenter) TaskUpdated(TaskUpdate)      {}
func (NopPresenter) BatchCompleted(BatchSummary) {}
func (NopPresenter) FileRejected(Rejection)      {}
