package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

func setupCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	return c
}

func sampleShoot(id string) *models.Shoot {
	return &models.Shoot{
		ID:       id,
		Title:    "Spring Sports",
		OrgID:    "org-1",
		Date:     time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
		Location: "North Gym",
		Records: []models.RosterEntry{
			{ID: "r1", LastName: "Abbot", SubjectID: "1001", Sport: "Soccer", ImageNumbers: "12,13"},
			{ID: "r2", LastName: "Burke", SubjectID: "1002", Sport: "Track"},
		},
		Groups: []models.GroupEntry{
			{ID: "g1", Description: "Varsity Soccer", ImageNumbers: "40"},
		},
		CreatedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := setupCache(t)

	want := sampleShoot("s1")
	require.NoError(t, c.Put(want))

	got, err := c.Get("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, got)
	assert.Equal(t, models.StatusCached, c.Status("s1"))
}

func TestCache_GetAbsentAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	got, err := c.Get("never-cached")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Corrupt payloads read as absent, not as an error.
	require.NoError(t, c.Put(sampleShoot("s1")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1.json"), []byte("{broken"), 0o660))

	got, err = c.Get("s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_StatusPriorityAndModifiedMonotonic(t *testing.T) {
	c := setupCache(t)

	assert.Equal(t, models.StatusNotCached, c.Status("s1"))

	require.NoError(t, c.Put(sampleShoot("s1")))
	assert.Equal(t, models.StatusCached, c.Status("s1"))

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.MarkModified("s1"))
	assert.Equal(t, models.StatusModified, c.Status("s1"))

	first, ok := c.ModifiedAt("s1")
	require.True(t, ok)

	// Re-marking moves the timestamp forward.
	c.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, c.MarkModified("s1"))
	second, ok := c.ModifiedAt("s1")
	require.True(t, ok)
	assert.True(t, second.After(first))

	require.NoError(t, c.ClearModified("s1"))
	assert.Equal(t, models.StatusCached, c.Status("s1"))

	// Clearing again is a no-op.
	require.NoError(t, c.ClearModified("s1"))
}

func TestCache_IndexesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, c.Put(sampleShoot("s1")))
	require.NoError(t, c.Put(sampleShoot("s2")))
	require.NoError(t, c.MarkModified("s2"))

	reopened, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, reopened.CachedIDs())
	assert.Equal(t, models.StatusCached, reopened.Status("s1"))
	assert.Equal(t, models.StatusModified, reopened.Status("s2"))
}

func TestCache_ModifiedIDsOldestFirst(t *testing.T) {
	c := setupCache(t)
	require.NoError(t, c.Put(sampleShoot("a")))
	require.NoError(t, c.Put(sampleShoot("b")))

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, c.MarkModified("b"))
	c.now = func() time.Time { return base }
	require.NoError(t, c.MarkModified("a"))

	assert.Equal(t, []string{"a", "b"}, c.ModifiedIDs())
}

func TestCache_UpsertRecord(t *testing.T) {
	c := setupCache(t)
	require.NoError(t, c.Put(sampleShoot("s1")))

	// Update an existing record in place.
	got, err := c.UpsertRecord("s1", models.RosterEntry{ID: "r1", LastName: "Abbot", SubjectID: "1001", Sport: "Soccer", ImageNumbers: "12,13,14"})
	require.NoError(t, err)
	require.Equal(t, 2, len(got.Records))
	assert.Equal(t, "12,13,14", got.Records[0].ImageNumbers)
	assert.Equal(t, models.StatusModified, c.Status("s1"))

	// Append a new record, preserving order.
	got, err = c.UpsertRecord("s1", models.RosterEntry{ID: "r3", LastName: "Cruz"})
	require.NoError(t, err)
	require.Equal(t, 3, len(got.Records))
	assert.Equal(t, "r3", got.Records[2].ID)

	// The mutation is durable.
	stored, err := c.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, got.Records, stored.Records)
}

func TestCache_MutateNotCached(t *testing.T) {
	c := setupCache(t)
	_, err := c.UpsertRecord("missing", models.RosterEntry{ID: "r1"})
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestCache_DeleteRecordAndGroup(t *testing.T) {
	c := setupCache(t)
	require.NoError(t, c.Put(sampleShoot("s1")))

	got, err := c.DeleteRecord("s1", "r2")
	require.NoError(t, err)
	require.Equal(t, 1, len(got.Records))
	assert.Equal(t, "r1", got.Records[0].ID)

	_, err = c.DeleteRecord("s1", "r2")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	got, err = c.DeleteGroup("s1", "g1")
	require.NoError(t, err)
	assert.Empty(t, got.Groups)
}

func TestCache_StorageErrorCarriesOp(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	// Removing the directory makes every durable write fail.
	require.NoError(t, os.RemoveAll(dir))

	err = c.Put(sampleShoot("s1"))
	require.Error(t, err)

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "put", se.Op)
}
