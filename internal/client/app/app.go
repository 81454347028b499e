// Package app wires the client together and owns its lifecycle: the
// connectivity monitor, the reconnect drain, the stale lock sweeps and the
// active edit sessions.
package app

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/archive"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/cache"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/config"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/connectivity"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/events"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/locks"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/store"
	syncer "github.com/Jsunwilke/employeeapp-sub003/internal/client/sync"
	"github.com/Jsunwilke/employeeapp-sub003/internal/logging"
)

type editSession struct {
	shootID  string
	recordID string
}

// App owns every client component and runs the background loops.
type App struct {
	cfg     *config.Config
	logger  logging.Logger
	bus     *events.Bus
	store   store.Store
	monitor *connectivity.Monitor
	locks   *locks.Manager
	repo    *syncer.Repository

	mu       sync.Mutex
	sessions map[editSession]struct{}
}

// NewApp builds the full component graph from a Config.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	bus := events.NewBus()
	monitor := connectivity.NewMonitor(st, bus, logger, cfg.OnlineCheckInterval)
	lm := locks.NewManager(st, monitor, bus, logger, cfg.DeviceID, cfg.DeviceLabel)

	var ar archive.Archiver
	if cfg.S3Bucket != "" {
		ar, err = archive.NewS3Archiver(ctx, archive.S3Options{
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
	}

	repo := syncer.NewRepository(c, st, monitor, bus, lm, ar, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		store:    st,
		monitor:  monitor,
		locks:    lm,
		repo:     repo,
		sessions: make(map[editSession]struct{}),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(ctx, cfg.StoreDSN)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.StoreDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Repository exposes the sync façade the UI layer talks to.
func (a *App) Repository() *syncer.Repository { return a.repo }

// Bus exposes the event bus for UI subscriptions.
func (a *App) Bus() *events.Bus { return a.bus }

// Run starts the connectivity monitor and the background loops, then blocks
// until ctx is cancelled or the process receives SIGINT/SIGTERM. On the way
// out it releases any locks still held by active edit sessions.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transitions := a.monitor.Subscribe()
	a.monitor.Start(ctx)

	// The modified index survives restarts, and when the process starts
	// connected there is no offline-to-online transition to trigger the
	// drain. Push pending edits once up front; if the network turns out to
	// be down the attempt fails and the reconnect path retries it.
	if err := a.repo.SyncModifiedShoots(ctx); err != nil {
		a.logger.Error(ctx, "startup drain failed", "error", err)
	}

	sweep := time.NewTicker(a.cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case online := <-transitions:
			if online {
				a.onReconnect(ctx)
			}

		case <-sweep.C:
			a.sweepStale(ctx)

		case <-ctx.Done():
			a.shutdown()
			return nil
		}
	}
}

// onReconnect discards the ephemeral offline locks and drains the modified
// set. Conflicted aggregates stay suspended and surface as events.
func (a *App) onReconnect(ctx context.Context) {
	a.logger.Info(ctx, "back online, draining modified aggregates")
	a.locks.DiscardOffline()
	if err := a.repo.SyncModifiedShoots(ctx); err != nil {
		a.logger.Error(ctx, "reconnect drain failed", "error", err)
	}
}

// sweepStale force-expires abandoned locks. Aggregates with an active edit
// session are swept with the tighter threshold so a crashed peer cannot block
// the editor for the full default window.
func (a *App) sweepStale(ctx context.Context) {
	thresholds := make(map[string]time.Duration)
	for _, id := range a.repo.CachedShootIDs() {
		thresholds[id] = a.cfg.StaleLockThreshold
	}

	a.mu.Lock()
	for s := range a.sessions {
		thresholds[s.shootID] = a.cfg.EditSweepThreshold
	}
	a.mu.Unlock()

	for id, threshold := range thresholds {
		if err := a.repo.CleanupStaleLocks(ctx, id, threshold); err != nil {
			a.logger.Warn(ctx, "stale lock sweep failed", "shoot", id, "error", err)
		}
	}
}

// BeginEdit opens an edit session on one record: it sweeps abandoned locks on
// the aggregate with the aggressive threshold, then tries to acquire the
// advisory lock. It returns false when another editor holds the record.
func (a *App) BeginEdit(ctx context.Context, shootID, recordID string) (bool, error) {
	if err := a.repo.CleanupStaleLocks(ctx, shootID, a.cfg.EditSweepThreshold); err != nil {
		a.logger.Warn(ctx, "pre-edit sweep failed", "shoot", shootID, "error", err)
	}

	ok, err := a.repo.AcquireLock(ctx, shootID, recordID)
	if err != nil || !ok {
		return ok, err
	}

	a.mu.Lock()
	a.sessions[editSession{shootID: shootID, recordID: recordID}] = struct{}{}
	a.mu.Unlock()
	return true, nil
}

// EndEdit closes an edit session and releases its advisory lock. Ending a
// session that was never begun is harmless.
func (a *App) EndEdit(ctx context.Context, shootID, recordID string) error {
	a.mu.Lock()
	delete(a.sessions, editSession{shootID: shootID, recordID: recordID})
	a.mu.Unlock()

	_, err := a.repo.ReleaseLock(ctx, shootID, recordID)
	return err
}

// ActiveSessions reports the number of open edit sessions.
func (a *App) ActiveSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

func (a *App) shutdown() {
	// Lock releases race the dying context, so they get their own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.mu.Lock()
	remaining := make([]editSession, 0, len(a.sessions))
	for s := range a.sessions {
		remaining = append(remaining, s)
	}
	a.sessions = make(map[editSession]struct{})
	a.mu.Unlock()

	for _, s := range remaining {
		if _, err := a.repo.ReleaseLock(ctx, s.shootID, s.recordID); err != nil {
			a.logger.Warn(ctx, "releasing lock on shutdown failed",
				"shoot", s.shootID, "record", s.recordID, "error", err)
		}
	}

	a.monitor.Stop()
	a.bus.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn(ctx, "closing store failed", "error", err)
	}
	a.logger.Info(ctx, "client stopped")
}
