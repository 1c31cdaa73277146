package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors have no infrastructure dependency.

var (
	// Validation errors
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrEmptyName    = errors.New("file name is empty")
	ErrInvalidSize  = errors.New("declared file size is invalid")
	ErrTypeRejected = errors.New("file type is not accepted")

	// Transfer errors
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
	ErrTransferCancelled = errors.New("transfer was cancelled")
	ErrTransferTimeout   = errors.New("transfer timed out")
	ErrNoSource          = errors.New("payload has no content source")

	// Manager errors
	ErrTaskNotFound    = errors.New("upload task not found")
	ErrBatchNotFound   = errors.New("upload batch not found")
	ErrNotRetryable    = errors.New("only failed or cancelled tasks can be retried")
	ErrManagerClosed   = errors.New("upload manager is closed")
	ErrInvalidCapacity = errors.New("concurrency limit must be at least 1")

	// ErrProtocolViolation marks invariant breakage inside the upload
	// subsystem (double admission, progress after terminal state). It is a
	// bug, never an environmental failure.
	ErrProtocolViolation = errors.New("upload protocol violation")

	// Storage errors
	ErrObjectNotFound = errors.New("stored object not found")
	ErrPathEscape     = errors.New("destination escapes storage root")
	ErrNotSupported   = errors.New("operation not supported by storage backend")
	ErrStorageDown    = errors.New("storage backend unavailable (circuit open)")
)

// ValidationError is raised before queueing. It never touches the queue.
type ValidationError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reject %q: %s", e.Name, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Code returns a short machine-readable label for the rejection cause.
func (e *ValidationError) Code() string {
	switch {
	case errors.Is(e.Err, ErrFileTooLarge):
		return "too_large"
	case errors.Is(e.Err, ErrEmptyName):
		return "empty_name"
	case errors.Is(e.Err, ErrInvalidSize):
		return "invalid_size"
	case errors.Is(e.Err, ErrTypeRejected):
		return "type_rejected"
	}
	return "invalid"
}

// TransferError is raised by the executor during an active transfer.
// It is terminal for that task only.
type TransferError struct {
	TaskID string
	Name   string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.Name, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Violation wraps ErrProtocolViolation with detail.
func Violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}
