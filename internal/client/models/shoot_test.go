package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleShoot() *Shoot {
	return &Shoot{
		ID:    "s1",
		Title: "Fall Picture Day",
		OrgID: "org-1",
		Date:  time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
		Records: []RosterEntry{
			{ID: "r1", LastName: "Abbot"},
			{ID: "r2", LastName: "Burke"},
		},
		Groups: []GroupEntry{
			{ID: "g1", Description: "Seniors"},
		},
	}
}

func TestClone_DoesNotShareSlices(t *testing.T) {
	s := sampleShoot()
	c := s.Clone()

	c.Records[0].ImageNumbers = "99"
	c.Groups[0].Notes = "changed"
	c.UpsertRecord(RosterEntry{ID: "r3"})

	assert.Equal(t, "", s.Records[0].ImageNumbers)
	assert.Equal(t, "", s.Groups[0].Notes)
	assert.Len(t, s.Records, 2)
}

func TestClone_Nil(t *testing.T) {
	var s *Shoot
	assert.Nil(t, s.Clone())
}

func TestUpsertRecord_PreservesOrder(t *testing.T) {
	s := sampleShoot()

	s.UpsertRecord(RosterEntry{ID: "r1", LastName: "Abbot", ImageNumbers: "12"})
	require.Len(t, s.Records, 2)
	assert.Equal(t, "r1", s.Records[0].ID)
	assert.Equal(t, "12", s.Records[0].ImageNumbers)

	s.UpsertRecord(RosterEntry{ID: "r3", LastName: "Cole"})
	require.Len(t, s.Records, 3)
	assert.Equal(t, "r3", s.Records[2].ID)
}

func TestRemoveRecord(t *testing.T) {
	s := sampleShoot()

	assert.True(t, s.RemoveRecord("r1"))
	require.Len(t, s.Records, 1)
	assert.Equal(t, "r2", s.Records[0].ID)

	assert.False(t, s.RemoveRecord("r1"), "second removal is a no-op")
}

func TestRosterEntryEqual(t *testing.T) {
	a := RosterEntry{ID: "r1", LastName: "Abbot", ImageNumbers: "12"}
	b := a
	assert.True(t, a.Equal(b))

	b.ImageNumbers = "13"
	assert.False(t, a.Equal(b))
}

func TestFindGroup(t *testing.T) {
	s := sampleShoot()
	assert.Equal(t, 0, s.FindGroup("g1"))
	assert.Equal(t, -1, s.FindGroup("missing"))
}
