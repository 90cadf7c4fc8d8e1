package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reface/internal/config"
	"reface/internal/logging"
	"reface/internal/notifications"
	"reface/internal/pipeline"
	"reface/internal/project"
	"reface/internal/server"
)

// Daemon owns the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *project.Store
	orch     *pipeline.Orchestrator
	server   *server.Server
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	State        project.State
	TotalCost    float64
	APIAddress   string
	DatabasePath string
	LogFilePath  string
	LockFilePath string
}

// New constructs a daemon from initialized dependencies. Use Bootstrap to
// build the production wiring.
func New(cfg *config.Config, store *project.Store, orch *pipeline.Orchestrator, srv *server.Server, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orch == nil || srv == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, server, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "refaced.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orch:     orch,
		server:   srv,
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, "refaced.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reface daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.server.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("reface daemon started",
		logging.String("lock", d.lockPath),
		logging.String("log", d.logPath),
		logging.String("api", d.server.Addr()))
	return nil
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("reface daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StoreHealth pings the project database.
func (d *Daemon) StoreHealth(ctx context.Context) error {
	if d.store == nil {
		return errors.New("project store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := d.notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	snap := d.orch.Snapshot()
	return Status{
		Running:      d.running.Load(),
		State:        snap.State,
		TotalCost:    snap.TotalCost,
		APIAddress:   d.server.Addr(),
		DatabasePath: filepath.Join(d.cfg.Paths.DataDir, "projects.db"),
		LogFilePath:  d.logPath,
		LockFilePath: d.lockPath,
	}
}
