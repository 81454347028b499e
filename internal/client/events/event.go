// Package events implements the in-process publish/subscribe hub connecting
// the sync engine to its observers. The event set is a closed tagged union:
// every kind is a concrete struct implementing the unexported marker method,
// so subscribers match on types instead of string keys and casts.
package events

import (
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

// Event is the closed union of everything the engine publishes.
type Event interface{ isEvent() }

// NetworkChanged is emitted on every distinct connectivity transition.
type NetworkChanged struct {
	Online bool
}

// SyncStatus describes the outcome of one sync pass over an aggregate.
type SyncStatus string

const (
	SyncStarted   SyncStatus = "started"
	SyncCompleted SyncStatus = "completed"
	SyncSuspended SyncStatus = "suspended"
	SyncFailed    SyncStatus = "failed"
)

// SyncStatusChanged reports progress of the offline-queue drain.
type SyncStatusChanged struct {
	ShootID string
	Status  SyncStatus
}

// LockAcquired is emitted after a successful advisory-lock acquisition.
type LockAcquired struct {
	Lock models.Lock
}

// LockReleased is emitted after a lock is released by its owner.
type LockReleased struct {
	Lock models.Lock
}

// LockStaleRemoved is emitted for every lock deleted by a staleness sweep.
type LockStaleRemoved struct {
	Lock models.Lock
}

// RecordUpdated is emitted when a roster record is added or changed,
// before remote confirmation on the optimistic online path.
type RecordUpdated struct {
	ShootID string
	Record  models.RosterEntry
}

// RecordUpdateFailed signals that an optimistic remote write failed and the
// cache has been reset to server truth; observers should roll back
// speculative UI state.
type RecordUpdateFailed struct {
	ShootID  string
	RecordID string
	Err      error
}

// RecordDeleted is emitted when a roster record is removed.
type RecordDeleted struct {
	ShootID  string
	RecordID string
}

// GroupUpdated is the group-photo twin of RecordUpdated.
type GroupUpdated struct {
	ShootID string
	Group   models.GroupEntry
}

type GroupUpdateFailed struct {
	ShootID string
	GroupID string
	Err     error
}

type GroupDeleted struct {
	ShootID string
	GroupID string
}

// ConflictsDetected carries the full conflict set for one aggregate along
// with both complete sides, so a resolver session can be started without
// another fetch. Automatic sync for the aggregate is suspended until the
// session commits.
type ConflictsDetected struct {
	ShootID   string
	Conflicts []models.Conflict
	Local     *models.Shoot
	Remote    *models.Shoot
}

func (NetworkChanged) isEvent()     {}
func (SyncStatusChanged) isEvent()  {}
func (LockAcquired) isEvent()       {}
func (LockReleased) isEvent()       {}
func (LockStaleRemoved) isEvent()   {}
func (RecordUpdated) isEvent()      {}
func (RecordUpdateFailed) isEvent() {}
func (RecordDeleted) isEvent()      {}
func (GroupUpdated) isEvent()       {}
func (GroupUpdateFailed) isEvent()  {}
func (GroupDeleted) isEvent()       {}
func (ConflictsDetected) isEvent()  {}
