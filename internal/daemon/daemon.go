package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/api"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/health"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/infra/metrics"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/infra/sqlite"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/presenter"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/storage"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/upload"
)

// Daemon is the core Drive Nest runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Store   storage.Backend
	Quota   int64
	Hub     *presenter.Hub
	Uploads *upload.Manager
	Health  *health.Checker
	Server  *api.Server

	events    *presenter.Redis
	redis     io.Closer
	closeOnce sync.Once
	cancel    context.CancelFunc
	log       *logrus.Entry
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(context.Background(), cfg)
}

// NewWithConfig creates a Daemon with the given configuration. Extra
// presenters receive every upload event after the built-in ones.
func NewWithConfig(ctx context.Context, cfg Config, extra ...domain.Presenter) (*Daemon, error) {
	log := logrus.WithField("component", "daemon")

	mgrCfg, err := cfg.ManagerConfig()
	if err != nil {
		return nil, err
	}
	quota, err := cfg.QuotaBytes()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(driveNestHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d := &Daemon{Config: cfg, DB: db, Quota: quota, log: log}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if cfg.Storage.Breaker.FailureThreshold > 0 {
		br, err := storage.NewBreaker(store, cfg.Storage.Breaker)
		if err != nil {
			d.Close()
			return nil, err
		}
		store = br
	}
	if quota > 0 {
		store = storage.NewQuota(store, quota, db)
	}
	d.Store = store

	if used, err := db.UsedBytes(ctx); err == nil {
		metrics.StorageUsedBytes.Set(float64(used))
	}

	if dir := cfg.Upload.StagingDir; dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			d.Close()
			return nil, fmt.Errorf("create staging dir: %w", err)
		}
	}

	d.Hub = presenter.NewHub()
	fanout := presenter.Multi{d.Hub, sqlite.NewRecorder(db), metrics.NewPresenter()}

	if cfg.Events.RedisAddr != "" {
		client, err := presenter.NewRedisClient(ctx, cfg.Events.RedisAddr, cfg.Events.RedisPassword, cfg.Events.RedisDB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, event publishing disabled")
		} else {
			d.redis = client
			d.events = presenter.NewRedis(client, cfg.Events.RedisChannel)
			fanout = append(fanout, d.events)
		}
	}
	fanout = append(fanout, extra...)

	d.Uploads, err = upload.NewManager(mgrCfg, store, fanout,
		upload.WithTypeFilter(cfg.TypeFilter()),
		upload.WithLogger(logrus.WithField("component", "upload")),
		upload.WithViolationHandler(func(err error) {
			// Already logged by the manager; keep serving.
			metrics.ProtocolViolations.Inc()
		}),
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("create upload manager: %w", err)
	}

	d.Health = health.NewChecker(db, cfg.Upload.StagingDir, store)

	d.Server = api.NewServer(api.Deps{
		Uploads:     d.Uploads,
		Hub:         d.Hub,
		History:     db,
		Store:       store,
		QuotaLimit:  quota,
		Health:      d.Health,
		StagingDir:  cfg.Upload.StagingDir,
		CORSOrigins: cfg.API.CORSOrigins,
	})
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	log.WithFields(logrus.Fields{
		"backend":        storageKind(cfg.Storage.Backend),
		"max_concurrent": mgrCfg.MaxConcurrent,
		"max_file_size":  domain.HumanSize(mgrCfg.MaxFileSize),
	}).Info("daemon ready")
	return d, nil
}

// resetStaging empties the staging dir. Parts left by a previous run
// belong to batches nobody can reach any more.
func (d *Daemon) resetStaging() {
	dir := d.Config.Upload.StagingDir
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		d.log.WithError(err).Warn("could not clear staging dir")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		d.log.WithError(err).Warn("could not recreate staging dir")
	}
}

func storageKind(k string) string {
	if k == "" {
		return storage.KindLocal
	}
	return k
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.resetStaging()
	go d.Health.Run(ctx)

	addr := d.Config.Addr()
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     d.Server.Handler(),
		ReadTimeout: 0, // uploads stream for as long as they need
		IdleTimeout: 2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		d.log.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Stop accepting requests first so no batch arrives after the manager closes.
		_ = httpServer.Shutdown(shutdownCtx)
		d.shutdown(shutdownCtx)
	}()

	fmt.Printf("Drive Nest serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-shutdownDone
		return err
	}
	<-shutdownDone
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d.shutdown(ctx)
}

func (d *Daemon) shutdown(ctx context.Context) {
	d.closeOnce.Do(func() {
		if d.Uploads != nil {
			if err := d.Uploads.Close(ctx); err != nil {
				d.log.WithError(err).Warn("upload manager did not drain")
			}
		}
		if d.events != nil {
			d.events.Close()
			_ = d.redis.Close()
		}
		if d.DB != nil {
			_ = d.DB.Close()
		}
	})
}
