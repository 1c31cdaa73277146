package api

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// stager spools uploaded parts to disk so each task's source can be
// reopened for retries. One directory serves the batch that created it and
// every retry batch derived from it; it is removed once none of them is
// retained by the manager.
type stager struct {
	root string

	mu    sync.Mutex
	dirs  map[string]*stagedDir // batch ID -> dir
	count map[*stagedDir]int
}

type stagedDir struct {
	path string
	n    int
}

func newStager(root string) *stager {
	return &stager{
		root:  root,
		dirs:  make(map[string]*stagedDir),
		count: make(map[*stagedDir]int),
	}
}

// newDir creates a fresh spool directory for one request.
func (s *stager) newDir() (*stagedDir, error) {
	if s.root == "" {
		return nil, fmt.Errorf("staging directory not configured")
	}
	path := filepath.Join(s.root, uuid.NewString())
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &stagedDir{path: path}, nil
}

// spool copies at most limit+1 bytes of r into the next file of d and
// drains the rest. It returns the file path and the full part size. A part
// over limit is not kept on disk.
func (d *stagedDir) spool(r io.Reader, limit int64) (string, int64, error) {
	path := filepath.Join(d.path, strconv.Itoa(d.n))
	d.n++

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("spool part: %w", err)
	}
	if limit > 0 && written > limit {
		rest, err := io.Copy(io.Discard, r)
		os.Remove(path)
		if err != nil {
			return "", 0, fmt.Errorf("drain part: %w", err)
		}
		return "", written + rest, nil
	}
	return path, written, nil
}

// discard removes a directory that never got attached to a batch.
func (d *stagedDir) discard() { os.RemoveAll(d.path) }

// attach records that batchID reads from d.
func (s *stager) attach(batchID string, d *stagedDir) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[batchID] = d
	s.count[d]++
}

// share makes batchID read from the same directory as fromBatch.
func (s *stager) share(batchID, fromBatch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dirs[fromBatch]
	if !ok {
		return
	}
	s.dirs[batchID] = d
	s.count[d]++
}

// release drops the given batches and deletes directories nothing uses.
// It returns how many directories were removed.
func (s *stager) release(batchIDs []string) int {
	s.mu.Lock()
	var drop []*stagedDir
	for _, id := range batchIDs {
		d, ok := s.dirs[id]
		if !ok {
			continue
		}
		delete(s.dirs, id)
		s.count[d]--
		if s.count[d] <= 0 {
			delete(s.count, d)
			drop = append(drop, d)
		}
	}
	s.mu.Unlock()

	for _, d := range drop {
		d.discard()
	}
	return len(drop)
}
