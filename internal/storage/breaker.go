package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// BreakerState is the circuit breaker state.
//
//	CLOSED    normal; failures past the threshold → OPEN
//	OPEN      every Put fails fast; after ResetTimeout → HALF_OPEN
//	HALF_OPEN probing; enough successes → CLOSED, any failure → OPEN
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns a human-readable breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig configures the storage circuit breaker.
type BreakerConfig struct {
	FailureThreshold int    `toml:"failure_threshold"` // 0 disables the breaker
	ResetTimeout     string `toml:"reset_timeout"`     // e.g. "30s"
	HalfOpenProbes   int    `toml:"half_open_probes"`
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     "30s",
		HalfOpenProbes:   2,
	}
}

// Breaker stops sending uploads to a backend that keeps failing, so queued
// tasks fail fast instead of each waiting out a dead endpoint. Quota,
// cancellation and timeout errors are not held against the backend.
type Breaker struct {
	next      Backend
	threshold int
	reset     time.Duration
	probes    int
	now       func() time.Time
	log       *logrus.Entry

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	trippedAt time.Time
	trips     int
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Backend, cfg BreakerConfig) (*Breaker, error) {
	reset := 30 * time.Second
	if cfg.ResetTimeout != "" {
		d, err := time.ParseDuration(cfg.ResetTimeout)
		if err != nil {
			return nil, fmt.Errorf("breaker reset_timeout: %w", err)
		}
		reset = d
	}
	b := &Breaker{
		next:      next,
		threshold: max(cfg.FailureThreshold, 1),
		reset:     reset,
		probes:    max(cfg.HalfOpenProbes, 1),
		now:       time.Now,
		log:       logrus.WithField("component", "storage"),
	}
	return b, nil
}

// Put delegates unless the circuit is open.
func (b *Breaker) Put(ctx context.Context, req domain.PutRequest, onProgress func(float64)) (domain.PutResult, error) {
	if err := b.allow(); err != nil {
		return domain.PutResult{}, err
	}
	res, err := b.next.Put(ctx, req, onProgress)
	b.record(err)
	return res, err
}

func (b *Breaker) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return b.next.Open(ctx, ref)
}

// Ping reports the backend as down while the circuit is open.
func (b *Breaker) Ping(ctx context.Context) error {
	if b.State() == BreakerOpen {
		return domain.ErrStorageDown
	}
	return b.next.Ping(ctx)
}

// State returns the current state, moving OPEN to HALF_OPEN once the reset
// timeout has passed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	return b.state
}

// Trips returns how many times the breaker has opened.
func (b *Breaker) Trips() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

func (b *Breaker) refreshLocked() {
	if b.state == BreakerOpen && b.now().Sub(b.trippedAt) >= b.reset {
		b.state = BreakerHalfOpen
		b.successes = 0
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked()
	if b.state == BreakerOpen {
		return fmt.Errorf("%w: retry after %s", domain.ErrStorageDown,
			b.trippedAt.Add(b.reset).Sub(b.now()).Round(time.Second))
	}
	return nil
}

func (b *Breaker) record(err error) {
	if err != nil && !countsAgainstBackend(err) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case BreakerHalfOpen:
			b.successes++
			if b.successes >= b.probes {
				b.state = BreakerClosed
				b.failures = 0
				b.log.Info("storage circuit closed")
			}
		case BreakerClosed:
			b.failures = 0
		}
		return
	}

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.tripLocked(err)
		}
	case BreakerHalfOpen:
		b.tripLocked(err)
	}
}

func (b *Breaker) tripLocked(cause error) {
	b.state = BreakerOpen
	b.trippedAt = b.now()
	b.trips++
	b.log.WithError(cause).WithField("reset", b.reset).Warn("storage circuit opened")
}

func countsAgainstBackend(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, domain.ErrPathEscape),
		errors.Is(err, domain.ErrNoSource):
		return false
	}
	return true
}
