package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/fsutil"
)

// tracker receives what a running transfer observes. The Manager implements
// it; every call takes the manager lock.
type tracker interface {
	progress(t *task, fraction float64)
	finish(t *task, res domain.PutResult, err error)
}

// executor performs one ACTIVE task against the storage collaborator.
type executor struct {
	storage domain.Storage
	timeout time.Duration // 0 disables the per-transfer deadline
}

// run transfers t and reports the outcome. It blocks until Storage.Put
// returns, so callers start it in its own goroutine.
func (e *executor) run(ctx context.Context, t *task, tr tracker) {
	res, err := e.transfer(ctx, t, func(f float64) { tr.progress(t, f) })
	tr.finish(t, res, err)
}

// transfer reads only the immutable parts of t (ID, payload, destination).
func (e *executor) transfer(ctx context.Context, t *task, onProgress func(float64)) (domain.PutResult, error) {
	p := t.Payload
	fail := func(err error) (domain.PutResult, error) {
		return domain.PutResult{}, &domain.TransferError{TaskID: t.ID, Name: p.Name, Err: err}
	}

	if p.Source == nil {
		return fail(domain.ErrNoSource)
	}

	tctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, err := p.Source.Open()
	if err != nil {
		return fail(fmt.Errorf("open source: %w", err))
	}
	defer body.Close()

	res, err := e.storage.Put(tctx, domain.PutRequest{
		Key:         fsutil.ObjectKey(t.Destination, p.Name),
		Name:        p.Name,
		Size:        p.Size,
		ContentType: p.ContentType,
		Body:        body,
	}, onProgress)
	if err == nil {
		return res, nil
	}

	switch {
	case ctx.Err() != nil:
		// Cancelled by the user or by Close.
		return fail(domain.ErrTransferCancelled)
	case errors.Is(tctx.Err(), context.DeadlineExceeded):
		return fail(fmt.Errorf("%w after %s", domain.ErrTransferTimeout, e.timeout))
	}
	return fail(err)
}

// clampProgress limits a reported fraction to [0,1].
func clampProgress(f float64) float64 {
	switch {
	case f != f: // NaN
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
