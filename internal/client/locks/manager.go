// Package locks implements the dual-mode advisory lock service keyed by
// (aggregate ID, record ID). Online it delegates to the remote store's
// conditional lock writes; offline it falls back to a device-local ephemeral
// map that is discarded, not migrated, on reconnect.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/connectivity"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/events"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/store"
	"github.com/Jsunwilke/employeeapp-sub003/internal/logging"
)

// Manager coordinates advisory edit locks for one device identity.
type Manager struct {
	store  store.Store
	gate   connectivity.Gate
	bus    *events.Bus
	logger logging.Logger

	ownerID    string
	ownerLabel string

	mu      sync.Mutex
	offline map[string]map[string]models.Lock

	now func() time.Time
}

func NewManager(st store.Store, gate connectivity.Gate, bus *events.Bus, logger logging.Logger, ownerID, ownerLabel string) *Manager {
	return &Manager{
		store:      st,
		gate:       gate,
		bus:        bus,
		logger:     logger,
		ownerID:    ownerID,
		ownerLabel: ownerLabel,
		offline:    make(map[string]map[string]models.Lock),
		now:        time.Now,
	}
}

// Acquire attempts to take the advisory lock on one record. It returns
// false when a different owner holds the lock; contention is an expected
// outcome, not an error. Self-renewal by the current owner always succeeds.
//
// Offline there is no cross-device contention to observe, so acquisition
// against the local ephemeral map is unconditional.
func (m *Manager) Acquire(ctx context.Context, aggregateID, recordID string) (bool, error) {
	lock := models.Lock{
		AggregateID: aggregateID,
		RecordID:    recordID,
		OwnerID:     m.ownerID,
		OwnerLabel:  m.ownerLabel,
	}

	if !m.gate.Online() {
		lock.AcquiredAt = m.now().UTC()
		m.mu.Lock()
		byRecord, ok := m.offline[aggregateID]
		if !ok {
			byRecord = make(map[string]models.Lock)
			m.offline[aggregateID] = byRecord
		}
		byRecord[recordID] = lock
		m.mu.Unlock()

		m.bus.Publish(events.LockAcquired{Lock: lock})
		return true, nil
	}

	acquired, err := m.store.AcquireLock(ctx, lock)
	if errors.Is(err, store.ErrLockHeld) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	m.bus.Publish(events.LockAcquired{Lock: acquired})
	return true, nil
}

// Release gives the lock back. Releasing an absent lock reports success;
// a lock held by a different owner is left untouched and reported as false.
func (m *Manager) Release(ctx context.Context, aggregateID, recordID string) (bool, error) {
	if !m.gate.Online() {
		m.mu.Lock()
		_, held := m.offline[aggregateID][recordID]
		if held {
			delete(m.offline[aggregateID], recordID)
		}
		m.mu.Unlock()

		// Releasing an absent lock is still a success, but observers only
		// hear about locks that actually existed.
		if held {
			m.bus.Publish(events.LockReleased{Lock: models.Lock{
				AggregateID: aggregateID,
				RecordID:    recordID,
				OwnerID:     m.ownerID,
				OwnerLabel:  m.ownerLabel,
			}})
		}
		return true, nil
	}

	err := m.store.ReleaseLock(ctx, aggregateID, recordID, m.ownerID)
	if errors.Is(err, store.ErrLockHeld) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	m.bus.Publish(events.LockReleased{Lock: models.Lock{
		AggregateID: aggregateID,
		RecordID:    recordID,
		OwnerID:     m.ownerID,
		OwnerLabel:  m.ownerLabel,
	}})
	return true, nil
}

// Observe streams the lock holders of an aggregate as recordID → ownerLabel.
// Online the stream follows the remote lock subcollection live; offline it
// is a one-shot snapshot of the local map that never updates.
func (m *Manager) Observe(ctx context.Context, aggregateID string) (<-chan map[string]string, func()) {
	if !m.gate.Online() {
		ch := make(chan map[string]string, 1)
		m.mu.Lock()
		snapshot := make(map[string]string, len(m.offline[aggregateID]))
		for recordID, lock := range m.offline[aggregateID] {
			snapshot[recordID] = lock.OwnerLabel
		}
		m.mu.Unlock()
		ch <- snapshot
		close(ch)
		return ch, func() {}
	}

	locksCh, cancel := m.store.WatchLocks(ctx, aggregateID)
	ch := make(chan map[string]string, 16)
	go func() {
		defer close(ch)
		for locks := range locksCh {
			holders := make(map[string]string, len(locks))
			for _, lock := range locks {
				holders[lock.RecordID] = lock.OwnerLabel
			}
			offer(ch, holders)
		}
	}()
	return ch, cancel
}

// offer delivers a snapshot without blocking. When the subscriber lags and
// the buffer is full, the oldest pending snapshot is dropped so the stream
// always ends with the current holders.
func offer(ch chan map[string]string, holders map[string]string) {
	for {
		select {
		case ch <- holders:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// CleanupStale force-expires every remote lock on the aggregate older than
// the threshold, publishing LockStaleRemoved per victim. Offline it is a
// no-op: the local map dies with the process anyway.
func (m *Manager) CleanupStale(ctx context.Context, aggregateID string, threshold time.Duration) error {
	if !m.gate.Online() {
		return nil
	}

	removed, err := m.store.DeleteStaleLocks(ctx, aggregateID, m.now().Add(-threshold))
	if err != nil {
		return err
	}
	for _, lock := range removed {
		m.logger.Info(ctx, "removed stale lock",
			"aggregate", lock.AggregateID, "record", lock.RecordID, "owner", lock.OwnerLabel)
		m.bus.Publish(events.LockStaleRemoved{Lock: lock})
	}
	return nil
}

// DiscardOffline drops every lock held in the local ephemeral map. Called on
// the transition back to online; editors must re-acquire through the remote
// store, which is the only authority across devices.
func (m *Manager) DiscardOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = make(map[string]map[string]models.Lock)
}

// OwnerID returns the device identity used for lock ownership checks.
func (m *Manager) OwnerID() string { return m.ownerID }
