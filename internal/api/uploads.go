package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/presenter"
)

// ─── Submission ─────────────────────────────────────────────────────────────

// handleUpload accepts multipart/form-data with any number of "files"
// (or "files[]") parts and an optional "path" field naming the destination
// folder. Parts are spooled to the staging directory before the batch is
// submitted, so the response is the freshly queued batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart/form-data: "+err.Error())
		return
	}

	dir, err := s.staging.newDir()
	if err != nil {
		s.log.WithError(err).Error("staging unavailable")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	limit := s.deps.Uploads.Config().MaxFileSize
	var dest string
	var files []domain.Payload
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			dir.discard()
			writeError(w, http.StatusBadRequest, "read multipart: "+err.Error())
			return
		}

		switch part.FormName() {
		case "path":
			b, err := io.ReadAll(io.LimitReader(part, 4096))
			if err != nil {
				dir.discard()
				writeError(w, http.StatusBadRequest, "read path field: "+err.Error())
				return
			}
			dest = string(b)
		case "files", "files[]":
			path, size, err := dir.spool(part, limit)
			if err != nil {
				dir.discard()
				s.log.WithError(err).Error("spool failed")
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			p := domain.Payload{
				Name:        part.FileName(),
				Size:        size,
				ContentType: part.Header.Get("Content-Type"),
			}
			if path != "" {
				p.Source = domain.FileSource(path)
			}
			files = append(files, p)
		}
		part.Close()
	}

	if len(files) == 0 {
		dir.discard()
		writeError(w, http.StatusBadRequest, "no files in request")
		return
	}

	snap, err := s.deps.Uploads.UploadFiles(r.Context(), dest, files)
	if err != nil {
		dir.discard()
		writeDomainError(w, err)
		return
	}
	s.attachStaged(snap.ID, dir)
	writeJSON(w, http.StatusAccepted, snap)
}

// attachStaged ties d to batchID. Transfers are already running, so the
// batch may have finished and been cleared before this call; its files are
// then removed at once.
func (s *Server) attachStaged(batchID string, d *stagedDir) {
	s.staging.attach(batchID, d)
	s.releaseIfCleared(batchID)
}

func (s *Server) releaseIfCleared(batchID string) {
	if _, err := s.deps.Uploads.Batch(batchID); errors.Is(err, domain.ErrBatchNotFound) {
		s.staging.release([]string{batchID})
	}
}

// ─── Queries ────────────────────────────────────────────────────────────────

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"batches": s.deps.Uploads.Batches(),
	})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Uploads.Batch(chi.URLParam(r, "batchID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleBatchEvents streams one batch as Server-Sent Events: a "snapshot"
// first, then "task" and "rejected" events, and a final "done" carrying the
// summary. A client that falls behind is disconnected and should reconnect.
func (s *Server) handleBatchEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the snapshot so no event falls between the two.
	sub := s.deps.Hub.Subscribe(id)
	defer sub.Close()

	snap, err := s.deps.Uploads.Batch(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send("snapshot", snap); err != nil {
		return
	}
	if snap.Done {
		summary, err := s.deps.Uploads.Wait(r.Context(), id)
		if err == nil {
			send(presenter.TypeDone, summary)
		}
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			if err := send(env.Type, env.Data); err != nil {
				return
			}
			if env.Type == presenter.TypeDone {
				return
			}
		}
	}
}

// ─── Cancellation & Retry ───────────────────────────────────────────────────

func (s *Server) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Uploads.CancelBatch(chi.URLParam(r, "batchID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"cancelled": n})
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if err := s.deps.Uploads.Cancel(id); err != nil {
		writeDomainError(w, err)
		return
	}
	t, err := s.deps.Uploads.Task(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, t)
}

func (s *Server) handleRetryTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	orig, err := s.deps.Uploads.Task(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if orig.Payload.Source == nil {
		writeError(w, http.StatusConflict, "upload content is no longer available")
		return
	}

	snap, err := s.deps.Uploads.Retry(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.staging.share(snap.ID, orig.BatchID)
	s.releaseIfCleared(snap.ID)
	writeJSON(w, http.StatusAccepted, snap)
}

// ─── History ────────────────────────────────────────────────────────────────

// handleClearHistory forgets completed batches and deletes their staged
// files. With ?persisted=true the stored history of failed and cancelled
// uploads is cleared as well.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	removed := s.deps.Uploads.ClearHistory()
	dirs := s.staging.release(removed)

	resp := map[string]any{
		"batches":     len(removed),
		"staged_dirs": dirs,
	}
	if r.URL.Query().Get("persisted") == "true" {
		if s.deps.History == nil {
			writeError(w, http.StatusNotImplemented, errNoHistory.Error())
			return
		}
		n, err := s.deps.History.ClearHistory(false)
		if err != nil {
			s.log.WithError(err).Error("clear persisted history")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["uploads"] = n
	}
	s.log.WithFields(logrus.Fields{"batches": len(removed), "dirs": dirs}).Info("history cleared")
	writeJSON(w, http.StatusOK, resp)
}
