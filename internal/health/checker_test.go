package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func statusOf(t *testing.T, c *Checker, name string) Status {
	t.Helper()
	for _, s := range c.Statuses() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("check %q not found in statuses", name)
	return Status{}
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker(t *testing.T) {
	db := newTestDB(t)

	c := NewChecker(db, t.TempDir(), nil)
	if len(c.checks) != 2 {
		t.Errorf("checks = %d, want 2", len(c.checks))
	}

	c = NewChecker(db, t.TempDir(), pingFunc(func(context.Context) error { return nil }))
	if len(c.checks) != 3 {
		t.Errorf("checks with storage = %d, want 3", len(c.checks))
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	db := newTestDB(t)
	store := pingFunc(func(context.Context) error { return nil })

	c := NewChecker(db, t.TempDir(), store)
	statuses := c.RunOnce(context.Background())
	if len(statuses) != 3 {
		t.Fatalf("Statuses() = %d, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), nil)

	// No statuses yet, so healthy vacuously.
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_StagingDirRecovered(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")

	c := NewChecker(newTestDB(t), staging, nil)
	c.runAll(context.Background())

	if s := statusOf(t, c, "staging_dir"); !s.Healthy {
		t.Errorf("staging_dir should recover by creating the dir, got %s", s.Error)
	}
	if _, err := os.Stat(staging); err != nil {
		t.Errorf("staging dir not created: %v", err)
	}
}

func TestChecker_StagingDirFileNotDir(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")
	os.WriteFile(staging, []byte("not a dir"), 0644)

	c := NewChecker(newTestDB(t), staging, nil)
	c.runAll(context.Background())

	if s := statusOf(t, c, "staging_dir"); s.Healthy {
		t.Error("staging_dir should fail when path is a file")
	}
	if c.IsHealthy() {
		t.Error("IsHealthy() should be false")
	}
}

func TestChecker_StorageUnreachable(t *testing.T) {
	store := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	c := NewChecker(newTestDB(t), t.TempDir(), store)
	c.runAll(context.Background())

	s := statusOf(t, c, "storage")
	if s.Healthy {
		t.Error("storage check should fail")
	}
	if s.Error != "connection refused" {
		t.Errorf("Error = %q, want %q", s.Error, "connection refused")
	}
}

func TestChecker_SQLiteClosed(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, t.TempDir(), nil)
	db.Close()

	c.runAll(context.Background())
	if s := statusOf(t, c, "sqlite"); s.Healthy {
		t.Error("sqlite check should fail on a closed database")
	}
}

func TestChecker_CustomCheck(t *testing.T) {
	c := &Checker{
		checks: []Check{
			{
				Name: "always_pass",
				CheckFn: func(ctx context.Context) error {
					return nil
				},
			},
		},
	}

	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d, want 1", len(statuses))
	}
	if !statuses[0].Healthy {
		t.Error("always_pass check should be healthy")
	}
}

func TestChecker_FailingCheck(t *testing.T) {
	c := &Checker{
		checks: []Check{
			{
				Name: "always_fail",
				CheckFn: func(ctx context.Context) error {
					return os.ErrPermission
				},
			},
		},
	}

	c.runAll(context.Background())

	statuses := c.Statuses()
	if statuses[0].Healthy {
		t.Error("always_fail check should not be healthy")
	}
	if statuses[0].Error == "" {
		t.Error("error message should be populated")
	}
}

func TestChecker_StatusesCopy(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), nil)
	c.runAll(context.Background())

	s1 := c.Statuses()
	s2 := c.Statuses()

	if len(s1) > 0 {
		s1[0].Healthy = false
		if !s2[0].Healthy {
			t.Error("Statuses() should return a copy, not a reference")
		}
	}
}
