// Package health provides periodic health checks with auto-recovery.
// Checks cover the history database, the staging directory and the storage backend.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/infra/metrics"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/infra/sqlite"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	timeout  time.Duration
	log      *logrus.Entry
}

// NewChecker creates a health checker for the daemon's collaborators.
// store may be nil when the backend cannot report reachability.
func NewChecker(db *sqlite.DB, stagingDir string, store domain.Pinger) *Checker {
	checks := []Check{
		{
			Name: "sqlite",
			CheckFn: func(ctx context.Context) error {
				return db.PingContext(ctx)
			},
		},
		{
			Name: "staging_dir",
			CheckFn: func(ctx context.Context) error {
				return checkStagingDir(stagingDir)
			},
			RecoverFn: func(ctx context.Context) error {
				return os.MkdirAll(stagingDir, 0700)
			},
		},
	}
	if store != nil {
		checks = append(checks, Check{
			Name:    "storage",
			CheckFn: store.Ping,
		})
	}
	return &Checker{
		interval: 60 * time.Second,
		timeout:  10 * time.Second,
		checks:   checks,
		log:      logrus.WithField("component", "health"),
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

// RunOnce runs every check immediately and returns the results.
func (c *Checker) RunOnce(ctx context.Context) []Status {
	c.runAll(ctx)
	return c.Statuses()
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := c.runCheck(ctx, check.CheckFn); err != nil {
			s.Error = err.Error()
			if check.RecoverFn != nil {
				metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
				if rerr := check.RecoverFn(ctx); rerr == nil && c.runCheck(ctx, check.CheckFn) == nil {
					s.Healthy, s.Error = true, ""
				}
			}
		} else {
			s.Healthy = true
		}
		if s.Healthy {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		} else {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
			if c.log != nil {
				c.log.WithField("check", check.Name).Warnf("unhealthy: %s", s.Error)
			}
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

func (c *Checker) runCheck(ctx context.Context, fn func(context.Context) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

// checkStagingDir verifies the staging directory exists and accepts writes.
func checkStagingDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check staging dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("staging path %s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("staging dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
