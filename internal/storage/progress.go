package storage

import (
	"io"
	"sync"
)

// minStep is the smallest fraction change worth reporting.
const minStep = 0.01

// progressTracker turns byte counts into fractions of an expected total.
// After stop returns no further reports are made, so a transport goroutine
// that keeps reading the body after Put has returned stays silent.
type progressTracker struct {
	mu      sync.Mutex
	total   int64
	done    int64
	last    float64
	report  func(float64)
	stopped bool
}

func newProgressTracker(total int64, report func(float64)) *progressTracker {
	if report == nil {
		report = func(float64) {}
	}
	return &progressTracker{total: total, report: report}
}

func (p *progressTracker) add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	p.emitLocked()
}

// rewind is called when the body is seeked, e.g. on an SDK retry.
func (p *progressTracker) rewind(offset int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = offset
}

func (p *progressTracker) emitLocked() {
	if p.stopped || p.total <= 0 {
		return
	}
	f := float64(p.done) / float64(p.total)
	if f > 1 {
		f = 1
	}
	if f-p.last < minStep && f < 1 {
		return
	}
	if f <= p.last {
		return
	}
	p.last = f
	p.report(f)
}

func (p *progressTracker) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *progressTracker) bytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Read lets the tracker act as minio's Progress reader, which is told how
// many bytes were uploaded through len(b).
func (p *progressTracker) Read(b []byte) (int, error) {
	p.add(int64(len(b)))
	return len(b), nil
}

// progressReader counts bytes as they are read from the body.
type progressReader struct {
	r io.Reader
	t *progressTracker
}

func (r *progressReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	if n > 0 {
		r.t.add(int64(n))
	}
	return n, err
}

// seekingProgressReader keeps the body seekable so SDKs can rewind it.
type seekingProgressReader struct {
	progressReader
	s io.Seeker
}

func (r *seekingProgressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.s.Seek(offset, whence)
	if err == nil {
		r.t.rewind(pos)
	}
	return pos, err
}

// countingBody wraps body so reads feed t. The result implements io.Seeker
// only when body does.
func countingBody(body io.Reader, t *progressTracker) io.Reader {
	pr := progressReader{r: body, t: t}
	if s, ok := body.(io.Seeker); ok {
		return &seekingProgressReader{progressReader: pr, s: s}
	}
	return &pr
}
