package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*PostgresStore)(nil)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_ShootRoundTrip(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	_, err := s.GetShoot(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	want := &models.Shoot{
		ID:       "s1",
		OrgID:    "org-1",
		Title:    "Fall Picture Day",
		Date:     time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		Location: "Main Campus",
		Records: []models.RosterEntry{
			{ID: "r1", LastName: "Abbot", SubjectID: "1001", ImageNumbers: "12"},
		},
		Groups: []models.GroupEntry{
			{ID: "g1", Description: "Staff", ImageNumbers: ""},
		},
	}
	require.NoError(t, s.PutShoot(ctx, want))

	got, err := s.GetShoot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Replacing the document is a full write.
	want.Title = "Fall Picture Day (retake)"
	require.NoError(t, s.PutShoot(ctx, want))
	got, err = s.GetShoot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Fall Picture Day (retake)", got.Title)
}

func TestSQLiteStore_ListShootsByOrgDateDesc(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	put := func(id, org string, d time.Time) {
		require.NoError(t, s.PutShoot(ctx, &models.Shoot{ID: id, OrgID: org, Date: d}))
	}
	put("a", "org-1", base)
	put("b", "org-1", base.AddDate(0, 2, 0))
	put("c", "org-2", base.AddDate(0, 1, 0))

	got, err := s.ListShoots(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestSQLiteStore_UpdateShootTransactional(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutShoot(ctx, &models.Shoot{
		ID:    "s1",
		OrgID: "org-1",
		Records: []models.RosterEntry{
			{ID: "r1", LastName: "Abbot", ImageNumbers: "1"},
		},
	}))

	err := s.UpdateShoot(ctx, "s1", func(shoot *models.Shoot) error {
		shoot.UpsertRecord(models.RosterEntry{ID: "r1", LastName: "Abbot", ImageNumbers: "1,2"})
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetShoot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "1,2", got.Records[0].ImageNumbers)

	// fn error aborts the write.
	wantErr := assert.AnError
	err = s.UpdateShoot(ctx, "s1", func(shoot *models.Shoot) error {
		shoot.Records = nil
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	got, err = s.GetShoot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Records, 1)

	assert.ErrorIs(t, s.UpdateShoot(ctx, "missing", func(*models.Shoot) error { return nil }), ErrNotFound)
}

func TestSQLiteStore_LockContentionAndSelfRenewal(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	lockA := models.Lock{AggregateID: "s1", RecordID: "r1", OwnerID: "devA", OwnerLabel: "Alice"}
	lockB := models.Lock{AggregateID: "s1", RecordID: "r1", OwnerID: "devB", OwnerLabel: "Bob"}

	got, err := s.AcquireLock(ctx, lockA)
	require.NoError(t, err)
	assert.False(t, got.AcquiredAt.IsZero())

	_, err = s.AcquireLock(ctx, lockB)
	assert.ErrorIs(t, err, ErrLockHeld)

	for i := 0; i < 3; i++ {
		_, err = s.AcquireLock(ctx, lockA)
		require.NoError(t, err, "self-renewal must never contend against itself")
	}

	// A lock on a different record does not contend.
	_, err = s.AcquireLock(ctx, models.Lock{AggregateID: "s1", RecordID: "r2", OwnerID: "devB", OwnerLabel: "Bob"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.ReleaseLock(ctx, "s1", "r1", "devB"), ErrLockHeld)
	require.NoError(t, s.ReleaseLock(ctx, "s1", "r1", "devA"))
	require.NoError(t, s.ReleaseLock(ctx, "s1", "r1", "devA"), "absent lock reads as already released")

	locks, err := s.ListLocks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, "r2", locks[0].RecordID)
}

func TestSQLiteStore_DeleteStaleLocks(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base.Add(-10 * time.Minute) }
	_, err := s.AcquireLock(ctx, models.Lock{AggregateID: "s1", RecordID: "stale", OwnerID: "devA", OwnerLabel: "Alice"})
	require.NoError(t, err)

	s.now = func() time.Time { return base }
	_, err = s.AcquireLock(ctx, models.Lock{AggregateID: "s1", RecordID: "fresh", OwnerID: "devB", OwnerLabel: "Bob"})
	require.NoError(t, err)

	removed, err := s.DeleteStaleLocks(ctx, "s1", base.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "stale", removed[0].RecordID)
	assert.Equal(t, "Alice", removed[0].OwnerLabel)

	// Second sweep finds nothing.
	removed, err = s.DeleteStaleLocks(ctx, "s1", base.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestSQLiteStore_MalformedDocument(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shoots (id, org_id, shoot_date, doc, updated_at) VALUES ('bad', 'org-1', 0, '{broken', 0)`)
	require.NoError(t, err)

	_, err = s.GetShoot(ctx, "bad")
	assert.ErrorIs(t, err, ErrMalformedDocument)
}
