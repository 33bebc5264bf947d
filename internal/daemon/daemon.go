package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/bhaskara2k/animelista-sub000/internal/config"
	"github.com/bhaskara2k/animelista-sub000/internal/library"
	"github.com/bhaskara2k/animelista-sub000/internal/logging"
	"github.com/bhaskara2k/animelista-sub000/internal/tracker"
)

// notificationRetention is how long sent-notification keys are kept.
const notificationRetention = 60 * 24 * time.Hour

// Daemon runs the background refresh and notify loops and the HTTP API, and
// enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *library.Store
	tracker *tracker.Service
	runID   string

	lockPath string
	lock     *flock.Flock

	refreshInterval time.Duration
	notifyInterval  time.Duration

	running   atomic.Bool
	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
	refresh   LoopStatus
	notify    LoopStatus
	refreshMu sync.Mutex
	notifyMu  sync.Mutex

	api *apiServer
}

// LoopStatus reports the last run of a background loop.
type LoopStatus struct {
	Interval  time.Duration
	LastRun   time.Time
	LastError string
	Runs      int
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	RunID        string
	StartedAt    time.Time
	DatabasePath string
	LockFilePath string
	Refresh      LoopStatus
	Notify       LoopStatus
}

// RefreshResult combines a catalog sync and the notification pass after it.
type RefreshResult struct {
	Sync   tracker.SyncResult
	Notify tracker.NotifyResult
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithIntervals overrides the configured loop periods.
func WithIntervals(refresh, notify time.Duration) Option {
	return func(d *Daemon) {
		if refresh > 0 {
			d.refreshInterval = refresh
		}
		if notify > 0 {
			d.notifyInterval = notify
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *library.Store, svc *tracker.Service, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil {
		return nil, errors.New("daemon requires config, store, and tracker")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:             cfg,
		logger:          logging.NewComponentLogger(logger, "daemon"),
		store:           store,
		tracker:         svc,
		runID:           uuid.NewString(),
		lockPath:        lockPath,
		lock:            flock.New(lockPath),
		refreshInterval: cfg.RefreshInterval(),
		notifyInterval:  cfg.NotifyInterval(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.refresh.Interval = d.refreshInterval
	d.notify.Interval = d.notifyInterval
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the background loops and the
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another animelista daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}

	d.mu.Lock()
	d.cancel = cancel
	d.startedAt = d.tracker.Now()
	d.mu.Unlock()

	d.running.Store(true)
	d.wg.Add(2)
	go d.loop(runCtx, "refresh", d.refreshInterval, func(ctx context.Context) error {
		_, err := d.Refresh(ctx)
		return err
	})
	go d.loop(runCtx, "notify", d.notifyInterval, func(ctx context.Context) error {
		_, err := d.Notify(ctx)
		return err
	})

	d.logger.Info("animelista daemon started",
		logging.String("lock", d.lockPath),
		logging.String("run_id", d.runID),
		logging.Duration("refresh_interval", d.refreshInterval),
		logging.Duration("notify_interval", d.notifyInterval),
	)
	return nil
}

// Stop stops the loops and the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start is refused"),
		)
	}
	d.running.Store(false)
	d.logger.Info("animelista daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Tracker exposes the tracker service backing the daemon.
func (d *Daemon) Tracker() *tracker.Service {
	return d.tracker
}

// loop runs fn immediately and then every interval until ctx is done.
func (d *Daemon) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(d.logger, name+" pass failed", "daemon_"+name+"_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "retried on the next tick"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh syncs catalog schedules and then dispatches due notifications.
// Concurrent calls are serialized. Without a catalog the sync is skipped.
func (d *Daemon) Refresh(ctx context.Context) (RefreshResult, error) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	var (
		result RefreshResult
		errs   []error
	)
	if d.tracker.CatalogEnabled() {
		synced, err := d.tracker.Sync(ctx)
		result.Sync = synced
		if err != nil {
			errs = append(errs, err)
		}
	}
	d.record(&d.refresh, errors.Join(errs...))

	notified, err := d.Notify(ctx)
	result.Notify = notified
	if err != nil {
		errs = append(errs, err)
	}
	return result, errors.Join(errs...)
}

// Notify dispatches due episode notifications and prunes old notification
// keys. Concurrent calls are serialized so an episode is announced once.
func (d *Daemon) Notify(ctx context.Context) (tracker.NotifyResult, error) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	result, err := d.tracker.NotifyDue(ctx)
	if result.Sent > 0 || result.DigestSent {
		d.logger.Info("notifications sent",
			logging.Int("sent", result.Sent),
			logging.Int("failed", result.Failed),
			logging.Bool("digest", result.DigestSent),
		)
	}
	cutoff := d.tracker.Now().Add(-notificationRetention)
	if pruned, pruneErr := d.store.PruneNotifications(ctx, cutoff); pruneErr != nil {
		d.logger.Debug("notification log prune failed", logging.Error(pruneErr))
	} else if pruned > 0 {
		d.logger.Debug("notification log pruned", logging.Int64("removed", pruned))
	}
	d.record(&d.notify, err)
	return result, err
}

func (d *Daemon) record(state *LoopStatus, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state.Runs++
	state.LastRun = d.tracker.Now()
	state.LastError = ""
	if err != nil {
		state.LastError = err.Error()
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		RunID:        d.runID,
		StartedAt:    d.startedAt,
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Refresh:      d.refresh,
		Notify:       d.notify,
	}
}

// APIAddr returns the address the API server listens on, or "" when the API
// is disabled or the daemon is stopped.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}
