package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// ─── Upload Repository ──────────────────────────────────────────────────────

// UpsertUpload inserts or updates the row for one task.
func (d *DB) UpsertUpload(u domain.TaskUpdate) error {
	_, err := d.db.Exec(
		`INSERT INTO uploads (id, batch_id, name, destination, size, state, progress, error, reference, final_size, created_at, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			progress=excluded.progress,
			error=excluded.error,
			reference=excluded.reference,
			final_size=excluded.final_size,
			started_at=excluded.started_at,
			finished_at=excluded.finished_at`,
		u.ID, u.BatchID, u.DisplayName, u.Destination, u.Size, string(u.Status), u.Progress,
		nullStr(u.Error), nullStr(u.Reference), u.FinalSize,
		createdAt(u).UnixMilli(), nullableUnix(u.StartedAt), nullableUnix(u.FinishedAt),
	)
	return err
}

func createdAt(u domain.TaskUpdate) time.Time {
	if u.CreatedAt.IsZero() {
		return time.Now()
	}
	return u.CreatedAt
}

// GetUpload retrieves a single upload. Returns ErrTaskNotFound when absent.
func (d *DB) GetUpload(id string) (*domain.UploadTask, error) {
	row := d.db.QueryRow(`SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
	t, err := scanUpload(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload %s: %w", id, domain.ErrTaskNotFound)
	}
	return t, err
}

// ListUploads returns uploads newest first. An empty state matches all.
func (d *DB) ListUploads(state domain.TaskState, limit int) ([]domain.UploadTask, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + uploadColumns + ` FROM uploads`
	args := []any{}
	if state != "" {
		query += ` WHERE state = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UploadTask
	for rows.Next() {
		t, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CountByState returns upload counts per state.
func (d *DB) CountByState() (map[domain.TaskState]int, error) {
	rows, err := d.db.Query(`SELECT state, COUNT(*) FROM uploads GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.TaskState]int)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[domain.TaskState(s)] = n
	}
	return out, rows.Err()
}

// ─── Batch & Rejection Repository ───────────────────────────────────────────

// InsertBatch records a batch summary. Re-recording a batch is ignored.
func (d *DB) InsertBatch(s domain.BatchSummary) error {
	_, err := d.db.Exec(
		`INSERT OR IGNORE INTO batches (id, succeeded, failed, cancelled, rejected, bytes, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.BatchID, s.Succeeded, s.Failed, s.Cancelled, s.Rejected, s.Bytes, s.CompletedAt.UnixMilli(),
	)
	return err
}

// ListBatches returns completed batch summaries, newest first.
func (d *DB) ListBatches(limit int) ([]domain.BatchSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.Query(
		`SELECT id, succeeded, failed, cancelled, rejected, bytes, completed_at
		 FROM batches ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BatchSummary
	for rows.Next() {
		var s domain.BatchSummary
		var completed int64
		if err := rows.Scan(&s.BatchID, &s.Succeeded, &s.Failed, &s.Cancelled, &s.Rejected, &s.Bytes, &completed); err != nil {
			return nil, err
		}
		s.CompletedAt = time.UnixMilli(completed)
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertRejection records a file refused by validation.
func (d *DB) InsertRejection(r domain.Rejection) error {
	_, err := d.db.Exec(
		`INSERT INTO rejections (batch_id, name, size, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.BatchID, r.DisplayName, r.Size, r.Reason, time.Now().UnixMilli(),
	)
	return err
}

// ListRejections returns the rejections recorded for a batch.
func (d *DB) ListRejections(batchID string) ([]domain.Rejection, error) {
	rows, err := d.db.Query(
		`SELECT batch_id, name, size, reason FROM rejections WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Rejection
	for rows.Next() {
		var r domain.Rejection
		if err := rows.Scan(&r.BatchID, &r.DisplayName, &r.Size, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClearHistory deletes finished uploads, batch summaries and rejections.
// Successful uploads are kept unless includeStored is set. Usage is
// tracked in objects and is not affected.
func (d *DB) ClearHistory(includeStored bool) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	states := []any{string(domain.TaskFailed), string(domain.TaskCancelled)}
	query := `DELETE FROM uploads WHERE state IN (?, ?`
	if includeStored {
		states = append(states, string(domain.TaskSucceeded))
		query += `, ?`
	}
	res, err := tx.Exec(query+`)`, states...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	if _, err := tx.Exec(`DELETE FROM batches`); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM rejections`); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

const uploadColumns = `id, batch_id, name, destination, size, state, progress, error, reference, final_size, created_at, started_at, finished_at`

func scanUpload(s scanner) (*domain.UploadTask, error) {
	var t domain.UploadTask
	var state string
	var errStr, ref sql.NullString
	var created int64
	var started, finished sql.NullInt64

	err := s.Scan(&t.ID, &t.BatchID, &t.Payload.Name, &t.Destination, &t.Payload.Size,
		&state, &t.Progress, &errStr, &ref, &t.FinalSize, &created, &started, &finished)
	if err != nil {
		return nil, err
	}
	t.State = domain.TaskState(state)
	t.Error = errStr.String
	t.Reference = ref.String
	t.CreatedAt = time.UnixMilli(created)
	t.StartedAt = fromNullableUnix(started)
	t.FinishedAt = fromNullableUnix(finished)
	return &t, nil
}

// ─── Stored Objects ─────────────────────────────────────────────────────────

// RecordObject marks ref as stored with the given size, replacing any
// earlier size recorded for the same reference.
func (d *DB) RecordObject(ctx context.Context, ref string, size int64) error {
	if ref == "" {
		return nil
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO objects (reference, size, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(reference) DO UPDATE SET size=excluded.size, updated_at=excluded.updated_at`,
		ref, size, time.Now().UnixMilli(),
	)
	return err
}

// UsedBytes sums the size of every stored object. Overwritten references
// count once.
func (d *DB) UsedBytes(ctx context.Context) (int64, error) {
	var n int64
	err := d.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM objects`).Scan(&n)
	return n, err
}
