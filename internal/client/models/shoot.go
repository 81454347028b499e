// Package models defines the shoot aggregate and its lockable elements.
package models

import (
	"time"
)

// Shoot is the full roster + group-photo document for one picture day.
// It is owned by the remote store; the local cache holds a snapshot per ID
// that is immutable until replaced.
type Shoot struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	OrgID     string        `json:"orgId"`
	Date      time.Time     `json:"date"`
	Location  string        `json:"location"`
	Notes     string        `json:"notes"`
	Records   []RosterEntry `json:"records"`
	Groups    []GroupEntry  `json:"groups"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// RosterEntry is one subject row in the roster. ImageNumbers is the field
// contended by concurrent editors: photographers fill it in as they shoot.
type RosterEntry struct {
	ID           string `json:"id"`
	LastName     string `json:"lastName"`
	SubjectID    string `json:"subjectId"`
	SpecialCode  string `json:"specialCode"`
	Sport        string `json:"sport"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Notes        string `json:"notes"`
	ImageNumbers string `json:"imageNumbers"`
}

// GroupEntry is one group-photo row. Same contention profile as RosterEntry.
type GroupEntry struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	ImageNumbers string `json:"imageNumbers"`
	Notes        string `json:"notes"`
}

// Equal reports full structural equality. It is used both to detect no-op
// writes and to locate array elements for replace operations.
func (r RosterEntry) Equal(other RosterEntry) bool {
	return r == other
}

func (g GroupEntry) Equal(other GroupEntry) bool {
	return g == other
}

// Clone returns a deep copy so cached snapshots cannot be mutated through
// shared slices.
func (s *Shoot) Clone() *Shoot {
	if s == nil {
		return nil
	}
	c := *s
	c.Records = make([]RosterEntry, len(s.Records))
	copy(c.Records, s.Records)
	c.Groups = make([]GroupEntry, len(s.Groups))
	copy(c.Groups, s.Groups)
	return &c
}

// FindRecord returns the index of the record with the given ID, or -1.
func (s *Shoot) FindRecord(id string) int {
	for i := range s.Records {
		if s.Records[i].ID == id {
			return i
		}
	}
	return -1
}

// FindGroup returns the index of the group with the given ID, or -1.
func (s *Shoot) FindGroup(id string) int {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

// UpsertRecord replaces the record with a matching ID, or appends it,
// preserving insertion order.
func (s *Shoot) UpsertRecord(r RosterEntry) {
	if i := s.FindRecord(r.ID); i >= 0 {
		s.Records[i] = r
		return
	}
	s.Records = append(s.Records, r)
}

// RemoveRecord deletes the record with the given ID, keeping order.
// It reports whether a record was removed.
func (s *Shoot) RemoveRecord(id string) bool {
	if i := s.FindRecord(id); i >= 0 {
		s.Records = append(s.Records[:i], s.Records[i+1:]...)
		return true
	}
	return false
}

func (s *Shoot) UpsertGroup(g GroupEntry) {
	if i := s.FindGroup(g.ID); i >= 0 {
		s.Groups[i] = g
		return
	}
	s.Groups = append(s.Groups, g)
}

func (s *Shoot) RemoveGroup(id string) bool {
	if i := s.FindGroup(id); i >= 0 {
		s.Groups = append(s.Groups[:i], s.Groups[i+1:]...)
		return true
	}
	return false
}
