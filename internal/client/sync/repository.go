// Package sync contains the dual-mode repository façade that routes every
// read and write to the local cache or the remote store depending on
// connectivity, and the merge/conflict pipeline that reconciles offline
// edits on reconnect.
package sync

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/archive"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/cache"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/connectivity"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/events"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/locks"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/store"
	"github.com/Jsunwilke/employeeapp-sub003/internal/logging"
)

const (
	retryBase     = 250 * time.Millisecond
	retryAttempts = 3
)

// Repository is the single entry point the UI layer talks to. Every
// operation is connectivity-branched through one Gate, so the lock manager
// and the repository can never disagree about which mode they are in.
//
// Online writes are optimistic: the locally computed post-state lands in the
// cache and the success event fires before the remote round trip. A remote
// failure re-fetches server truth, overwrites the cache and emits a
// *-update-failed event instead of returning an error to the caller.
type Repository struct {
	cache    *cache.Cache
	store    store.Store
	gate     connectivity.Gate
	bus      *events.Bus
	locks    *locks.Manager
	archiver archive.Archiver
	logger   logging.Logger
	now      func() time.Time
}

func NewRepository(c *cache.Cache, st store.Store, gate connectivity.Gate, bus *events.Bus, lm *locks.Manager, ar archive.Archiver, logger logging.Logger) *Repository {
	if ar == nil {
		ar = archive.Noop{}
	}
	return &Repository{
		cache:    c,
		store:    st,
		gate:     gate,
		bus:      bus,
		locks:    lm,
		archiver: ar,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch returns one aggregate. Offline it reads the cache and fails with
// ErrNotCachedOffline when no snapshot exists. Online it reads the remote
// store, writing through to the cache on success and falling back to the
// cache on a transport or parsing failure.
func (r *Repository) Fetch(ctx context.Context, id string) (*models.Shoot, error) {
	if !r.gate.Online() {
		shoot, err := r.cache.Get(id)
		if err != nil {
			return nil, err
		}
		if shoot == nil {
			return nil, ErrNotCachedOffline
		}
		return shoot, nil
	}

	shoot, err := r.store.GetShoot(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		cached, cerr := r.cache.Get(id)
		if cerr == nil && cached != nil {
			r.logger.Warn(ctx, "remote fetch failed, serving cached copy", "shoot", id, "error", err)
			return cached, nil
		}
		return nil, err
	}

	if err := r.cache.Put(shoot.Clone()); err != nil {
		r.logger.Warn(ctx, "cache refresh failed", "shoot", id, "error", err)
	}
	return shoot, nil
}

// CreateShoot stores a new aggregate. Online it is written remotely and
// cached; offline it is cached and marked modified so the next drain pushes
// it as a remote create.
func (r *Repository) CreateShoot(ctx context.Context, shoot *models.Shoot) error {
	if shoot.ID == "" {
		shoot.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if shoot.CreatedAt.IsZero() {
		shoot.CreatedAt = now
	}
	shoot.UpdatedAt = now

	if !r.gate.Online() {
		if err := r.cache.Put(shoot); err != nil {
			return err
		}
		return r.cache.MarkModified(shoot.ID)
	}

	if err := r.store.PutShoot(ctx, shoot); err != nil {
		return err
	}
	return r.cache.Put(shoot)
}

// ListShoots returns all aggregates for an org, newest first. Offline the
// listing is served from cached snapshots.
func (r *Repository) ListShoots(ctx context.Context, orgID string) ([]*models.Shoot, error) {
	if !r.gate.Online() {
		var result []*models.Shoot
		for _, id := range r.cache.CachedIDs() {
			shoot, err := r.cache.Get(id)
			if err != nil {
				return nil, err
			}
			if shoot != nil && shoot.OrgID == orgID {
				result = append(result, shoot)
			}
		}
		sortShootsByDateDesc(result)
		return result, nil
	}

	shoots, err := r.store.ListShoots(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for _, shoot := range shoots {
		if cerr := r.cache.Put(shoot.Clone()); cerr != nil {
			r.logger.Warn(ctx, "cache refresh failed", "shoot", shoot.ID, "error", cerr)
		}
	}
	return shoots, nil
}

func sortShootsByDateDesc(shoots []*models.Shoot) {
	sort.Slice(shoots, func(i, j int) bool { return shoots[i].Date.After(shoots[j].Date) })
}

// AddRecord inserts a roster record, assigning an ID when absent.
func (r *Repository) AddRecord(ctx context.Context, shootID string, record models.RosterEntry) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return r.writeRecord(ctx, shootID, record)
}

// UpdateRecord replaces an existing roster record.
func (r *Repository) UpdateRecord(ctx context.Context, shootID string, record models.RosterEntry) error {
	return r.writeRecord(ctx, shootID, record)
}

func (r *Repository) writeRecord(ctx context.Context, shootID string, record models.RosterEntry) error {
	if !r.gate.Online() {
		if _, err := r.cache.UpsertRecord(shootID, record); err != nil {
			return mapOfflineErr(err)
		}
		r.bus.Publish(events.RecordUpdated{ShootID: shootID, Record: record})
		return nil
	}

	if err := r.applyOptimistic(ctx, shootID, func(s *models.Shoot) { s.UpsertRecord(record) }); err != nil {
		return err
	}
	r.bus.Publish(events.RecordUpdated{ShootID: shootID, Record: record})

	err := r.store.UpdateShoot(ctx, shootID, func(s *models.Shoot) error {
		s.UpsertRecord(record)
		s.UpdatedAt = r.now().UTC()
		return nil
	})
	if err != nil {
		r.revert(ctx, shootID, err)
		r.bus.Publish(events.RecordUpdateFailed{ShootID: shootID, RecordID: record.ID, Err: err})
	}
	return nil
}

// DeleteRecord removes a roster record.
func (r *Repository) DeleteRecord(ctx context.Context, shootID, recordID string) error {
	if !r.gate.Online() {
		if _, err := r.cache.DeleteRecord(shootID, recordID); err != nil {
			return mapOfflineErr(err)
		}
		r.bus.Publish(events.RecordDeleted{ShootID: shootID, RecordID: recordID})
		return nil
	}

	if err := r.applyOptimistic(ctx, shootID, func(s *models.Shoot) { s.RemoveRecord(recordID) }); err != nil {
		return err
	}
	r.bus.Publish(events.RecordDeleted{ShootID: shootID, RecordID: recordID})

	err := r.store.UpdateShoot(ctx, shootID, func(s *models.Shoot) error {
		s.RemoveRecord(recordID)
		s.UpdatedAt = r.now().UTC()
		return nil
	})
	if err != nil {
		r.revert(ctx, shootID, err)
		r.bus.Publish(events.RecordUpdateFailed{ShootID: shootID, RecordID: recordID, Err: err})
	}
	return nil
}

// AddGroup inserts a group entry, assigning an ID when absent.
func (r *Repository) AddGroup(ctx context.Context, shootID string, group models.GroupEntry) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	return r.writeGroup(ctx, shootID, group)
}

// UpdateGroup replaces an existing group entry.
func (r *Repository) UpdateGroup(ctx context.Context, shootID string, group models.GroupEntry) error {
	return r.writeGroup(ctx, shootID, group)
}

func (r *Repository) writeGroup(ctx context.Context, shootID string, group models.GroupEntry) error {
	if !r.gate.Online() {
		if _, err := r.cache.UpsertGroup(shootID, group); err != nil {
			return mapOfflineErr(err)
		}
		r.bus.Publish(events.GroupUpdated{ShootID: shootID, Group: group})
		return nil
	}

	if err := r.applyOptimistic(ctx, shootID, func(s *models.Shoot) { s.UpsertGroup(group) }); err != nil {
		return err
	}
	r.bus.Publish(events.GroupUpdated{ShootID: shootID, Group: group})

	err := r.store.UpdateShoot(ctx, shootID, func(s *models.Shoot) error {
		s.UpsertGroup(group)
		s.UpdatedAt = r.now().UTC()
		return nil
	})
	if err != nil {
		r.revert(ctx, shootID, err)
		r.bus.Publish(events.GroupUpdateFailed{ShootID: shootID, GroupID: group.ID, Err: err})
	}
	return nil
}

// DeleteGroup removes a group entry.
func (r *Repository) DeleteGroup(ctx context.Context, shootID, groupID string) error {
	if !r.gate.Online() {
		if _, err := r.cache.DeleteGroup(shootID, groupID); err != nil {
			return mapOfflineErr(err)
		}
		r.bus.Publish(events.GroupDeleted{ShootID: shootID, GroupID: groupID})
		return nil
	}

	if err := r.applyOptimistic(ctx, shootID, func(s *models.Shoot) { s.RemoveGroup(groupID) }); err != nil {
		return err
	}
	r.bus.Publish(events.GroupDeleted{ShootID: shootID, GroupID: groupID})

	err := r.store.UpdateShoot(ctx, shootID, func(s *models.Shoot) error {
		s.RemoveGroup(groupID)
		s.UpdatedAt = r.now().UTC()
		return nil
	})
	if err != nil {
		r.revert(ctx, shootID, err)
		r.bus.Publish(events.GroupUpdateFailed{ShootID: shootID, GroupID: groupID, Err: err})
	}
	return nil
}

// applyOptimistic refreshes the cache with the locally computed post-state
// before the remote round trip, giving the caller immediate feedback. The
// base snapshot comes from the cache, or from the store on a cache miss.
func (r *Repository) applyOptimistic(ctx context.Context, shootID string, mutate func(*models.Shoot)) error {
	base, err := r.cache.Get(shootID)
	if err != nil {
		return err
	}
	if base == nil {
		base, err = r.store.GetShoot(ctx, shootID)
		if err != nil {
			return err
		}
	}
	mutate(base)
	base.UpdatedAt = r.now().UTC()
	return r.cache.Put(base)
}

// revert overwrites the cache with the authoritative remote state after a
// failed optimistic write, so the speculative post-state self-heals within
// one round trip.
func (r *Repository) revert(ctx context.Context, shootID string, cause error) {
	r.logger.Warn(ctx, "optimistic write failed, reverting to remote state", "shoot", shootID, "error", cause)
	remote, err := r.store.GetShoot(ctx, shootID)
	if err != nil {
		r.logger.Error(ctx, "revert fetch failed", "shoot", shootID, "error", err)
		return
	}
	if err := r.cache.Put(remote); err != nil {
		r.logger.Error(ctx, "revert cache write failed", "shoot", shootID, "error", err)
	}
}

func mapOfflineErr(err error) error {
	if errors.Is(err, cache.ErrNotCached) {
		return ErrNotCachedOffline
	}
	return err
}

// SyncModifiedShoots drains the modified index, oldest local write first.
// Aggregates missing remotely are pushed as creates; the rest go through
// conflict detection. A conflicted aggregate suspends automatic sync and
// stays in the modified index until a resolution session commits.
// Transient transport errors are retried with bounded backoff, then left
// for the next pass.
func (r *Repository) SyncModifiedShoots(ctx context.Context) error {
	if !r.gate.Online() {
		return nil
	}

	var firstErr error
	for _, id := range r.cache.ModifiedIDs() {
		if err := r.syncOne(ctx, id); err != nil {
			r.logger.Error(ctx, "sync failed", "shoot", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Repository) syncOne(ctx context.Context, id string) error {
	r.bus.Publish(events.SyncStatusChanged{ShootID: id, Status: events.SyncStarted})

	local, err := r.cache.Get(id)
	if err != nil {
		return err
	}
	if local == nil {
		// The payload vanished or rotted locally; nothing can be pushed.
		r.logger.Warn(ctx, "modified shoot has no readable snapshot, dropping flag", "shoot", id)
		return r.cache.ClearModified(id)
	}

	var remote *models.Shoot
	err = r.withRetry(ctx, func(ctx context.Context) error {
		var gerr error
		remote, gerr = r.store.GetShoot(ctx, id)
		return gerr
	})

	if errors.Is(err, store.ErrNotFound) {
		// First contact: push the full local aggregate as a create.
		if err := r.pushMerged(ctx, id, local); err != nil {
			r.bus.Publish(events.SyncStatusChanged{ShootID: id, Status: events.SyncFailed})
			return err
		}
		r.bus.Publish(events.SyncStatusChanged{ShootID: id, Status: events.SyncCompleted})
		return nil
	}
	if err != nil {
		r.bus.Publish(events.SyncStatusChanged{ShootID: id, Status: events.SyncFailed})
		return err
	}

	conflicts := DetectConflicts(local, remote)
	if len(conflicts) > 0 {
		r.logger.Info(ctx, "conflicts detected, suspending sync", "shoot", id, "conflicts", len(conflicts))
		r.bus.Publish(events.ConflictsDetected{
			ShootID:   id,
			Conflicts: conflicts,
			Local:     local,
			Remote:    remote,
		})
		r.bus.Publish(events.SyncStatusChanged{ShootID: id, Status: events.SyncSuspended})
		return nil
	}

	merged := Merge(local, remote)
	if err := r.pushMerged(ctx, id, merged); err != nil {
		r.bus.Publish(events.SyncStatusChanged{ShootID: id, Status: events.SyncFailed})
		return err
	}
	r.bus.Publish(events.SyncStatusChanged{ShootID: id, Status: events.SyncCompleted})
	return nil
}

// pushMerged writes the reconciled aggregate remotely, refreshes the cache,
// clears the modified flag and archives a snapshot.
func (r *Repository) pushMerged(ctx context.Context, id string, merged *models.Shoot) error {
	merged.UpdatedAt = r.now().UTC()

	err := r.withRetry(ctx, func(ctx context.Context) error {
		return r.store.PutShoot(ctx, merged)
	})
	if err != nil {
		return err
	}

	if err := r.cache.Put(merged.Clone()); err != nil {
		return err
	}
	if err := r.cache.ClearModified(id); err != nil {
		return err
	}

	if err := r.archiver.Archive(ctx, merged); err != nil {
		r.logger.Warn(ctx, "snapshot archive failed", "shoot", id, "error", err)
	}
	return nil
}

// withRetry wraps a remote call with bounded exponential backoff. Not-found
// and malformed-document results are terminal, everything else is treated
// as a transient transport failure.
func (r *Repository) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrMalformedDocument) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// Status reports the cache standing of one aggregate.
func (r *Repository) Status(id string) models.CacheStatus {
	return r.cache.Status(id)
}

// CachedShootIDs lists every aggregate held in the local cache.
func (r *Repository) CachedShootIDs() []string {
	return r.cache.CachedIDs()
}

// Lock operations pass straight through to the lock manager; the repository
// adds no policy of its own.

func (r *Repository) AcquireLock(ctx context.Context, shootID, recordID string) (bool, error) {
	return r.locks.Acquire(ctx, shootID, recordID)
}

func (r *Repository) ReleaseLock(ctx context.Context, shootID, recordID string) (bool, error) {
	return r.locks.Release(ctx, shootID, recordID)
}

func (r *Repository) ObserveLocks(ctx context.Context, shootID string) (<-chan map[string]string, func()) {
	return r.locks.Observe(ctx, shootID)
}

func (r *Repository) CleanupStaleLocks(ctx context.Context, shootID string, threshold time.Duration) error {
	return r.locks.CleanupStale(ctx, shootID, threshold)
}
