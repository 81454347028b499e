// Package store defines the boundary to the remote document service that
// owns shoot aggregates, plus its backends. The service is a key-value
// document store with per-document transactions, a lock subcollection per
// aggregate, and collection queries (org equality, date descending).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

var (
	// ErrNotFound means the requested document does not exist remotely.
	ErrNotFound = errors.New("document not found")

	// ErrLockHeld means a conditional lock write lost to a different owner.
	ErrLockHeld = errors.New("lock held by another owner")

	// ErrMalformedDocument means the stored payload could not be decoded.
	// Callers fall back to the cached copy when one exists.
	ErrMalformedDocument = errors.New("malformed document")
)

// Store is the authoritative document service for shoot aggregates.
//
// Lock operations are conditional writes: AcquireLock succeeds only when the
// lock is absent or already held by the same owner, atomically, so two
// devices contending at the same instant cannot both win.
type Store interface {
	// Ping probes reachability; it doubles as the connectivity probe.
	Ping(ctx context.Context) error

	// GetShoot fetches a full aggregate. Returns ErrNotFound when absent.
	GetShoot(ctx context.Context, id string) (*models.Shoot, error)

	// PutShoot writes the full aggregate, creating or replacing it.
	PutShoot(ctx context.Context, shoot *models.Shoot) error

	// ListShoots returns every aggregate for the org, date descending.
	ListShoots(ctx context.Context, orgID string) ([]*models.Shoot, error)

	// UpdateShoot runs fn against the current aggregate inside a
	// per-document transaction and writes the result back. Returns
	// ErrNotFound when the document does not exist.
	UpdateShoot(ctx context.Context, id string, fn func(*models.Shoot) error) error

	// AcquireLock conditionally upserts the lock and returns it with the
	// server-assigned timestamp. Returns ErrLockHeld when a different
	// owner holds it; re-acquisition by the same owner always succeeds.
	AcquireLock(ctx context.Context, lock models.Lock) (models.Lock, error)

	// ReleaseLock deletes the lock if ownerID matches. An absent lock is
	// treated as already released; a different owner yields ErrLockHeld.
	ReleaseLock(ctx context.Context, aggregateID, recordID, ownerID string) error

	// ListLocks returns the current locks under one aggregate.
	ListLocks(ctx context.Context, aggregateID string) ([]models.Lock, error)

	// DeleteStaleLocks removes every lock under the aggregate older than
	// the given instant and returns the removed locks.
	DeleteStaleLocks(ctx context.Context, aggregateID string, olderThan time.Time) ([]models.Lock, error)

	// WatchLocks streams the lock set of an aggregate, re-emitting on every
	// change, starting with the current snapshot. The returned cancel
	// function stops the stream.
	WatchLocks(ctx context.Context, aggregateID string) (<-chan []models.Lock, func())

	Close() error
}
