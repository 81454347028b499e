package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

var _ Store = (*MemoryStore)(nil)

func memShoot(id, orgID string, date time.Time) *models.Shoot {
	return &models.Shoot{
		ID:    id,
		OrgID: orgID,
		Title: "Shoot " + id,
		Date:  date,
		Records: []models.RosterEntry{
			{ID: "r1", LastName: "Abbot", ImageNumbers: "1"},
		},
	}
}

func TestMemoryStore_GetPutUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetShoot(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	orig := memShoot("s1", "org-1", time.Now())
	require.NoError(t, s.PutShoot(ctx, orig))

	got, err := s.GetShoot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, orig.Title, got.Title)

	// Returned copies must not alias the stored document.
	got.Records[0].ImageNumbers = "junk"
	again, err := s.GetShoot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "1", again.Records[0].ImageNumbers)

	err = s.UpdateShoot(ctx, "s1", func(shoot *models.Shoot) error {
		shoot.UpsertRecord(models.RosterEntry{ID: "r2", LastName: "Burke"})
		return nil
	})
	require.NoError(t, err)

	got, err = s.GetShoot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, len(got.Records))

	assert.ErrorIs(t, s.UpdateShoot(ctx, "nope", func(*models.Shoot) error { return nil }), ErrNotFound)
}

func TestMemoryStore_ListShootsByOrgDateDesc(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutShoot(ctx, memShoot("old", "org-1", base)))
	require.NoError(t, s.PutShoot(ctx, memShoot("new", "org-1", base.AddDate(0, 1, 0))))
	require.NoError(t, s.PutShoot(ctx, memShoot("other", "org-2", base)))

	got, err := s.ListShoots(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
}

func TestMemoryStore_LockConditionalWrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	lockA := models.Lock{AggregateID: "s1", RecordID: "r1", OwnerID: "devA", OwnerLabel: "Alice"}
	lockB := models.Lock{AggregateID: "s1", RecordID: "r1", OwnerID: "devB", OwnerLabel: "Bob"}

	got, err := s.AcquireLock(ctx, lockA)
	require.NoError(t, err)
	assert.False(t, got.AcquiredAt.IsZero(), "store assigns the timestamp")

	// Contender loses.
	_, err = s.AcquireLock(ctx, lockB)
	assert.ErrorIs(t, err, ErrLockHeld)

	// Self-renewal always succeeds.
	for i := 0; i < 3; i++ {
		_, err = s.AcquireLock(ctx, lockA)
		require.NoError(t, err)
	}

	// Release by non-owner fails and leaves the lock in place.
	assert.ErrorIs(t, s.ReleaseLock(ctx, "s1", "r1", "devB"), ErrLockHeld)
	locks, err := s.ListLocks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, locks, 1)

	require.NoError(t, s.ReleaseLock(ctx, "s1", "r1", "devA"))

	// Releasing an absent lock is already-released, not an error.
	require.NoError(t, s.ReleaseLock(ctx, "s1", "r1", "devA"))

	// Now the contender can acquire.
	_, err = s.AcquireLock(ctx, lockB)
	require.NoError(t, err)
}

func TestMemoryStore_DeleteStaleLocks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base.Add(-10 * time.Minute) }
	_, err := s.AcquireLock(ctx, models.Lock{AggregateID: "s1", RecordID: "stale", OwnerID: "devA"})
	require.NoError(t, err)

	s.now = func() time.Time { return base }
	_, err = s.AcquireLock(ctx, models.Lock{AggregateID: "s1", RecordID: "fresh", OwnerID: "devB"})
	require.NoError(t, err)

	removed, err := s.DeleteStaleLocks(ctx, "s1", base.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "stale", removed[0].RecordID)

	locks, err := s.ListLocks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "fresh", locks[0].RecordID)
}

func TestMemoryStore_WatchLocks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ch, cancel := s.WatchLocks(ctx, "s1")
	defer cancel()

	// Initial snapshot is empty.
	snap := <-ch
	assert.Empty(t, snap)

	_, err := s.AcquireLock(ctx, models.Lock{AggregateID: "s1", RecordID: "r1", OwnerID: "devA", OwnerLabel: "Alice"})
	require.NoError(t, err)

	snap = <-ch
	require.Len(t, snap, 1)
	assert.Equal(t, "Alice", snap[0].OwnerLabel)

	require.NoError(t, s.ReleaseLock(ctx, "s1", "r1", "devA"))
	snap = <-ch
	assert.Empty(t, snap)
}
