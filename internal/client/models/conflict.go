package models

// ConflictKind distinguishes roster-record conflicts from group conflicts.
type ConflictKind string

const (
	ConflictRecord ConflictKind = "record"
	ConflictGroup  ConflictKind = "group"
)

// Conflict is a derived local/remote pair whose contended field diverged
// while a device was offline. Conflicts are never stored; they exist only
// for the duration of a resolution session.
type Conflict struct {
	Kind        ConflictKind
	ID          string
	LocalRecord *RosterEntry
	RemoteRec   *RosterEntry
	LocalGroup  *GroupEntry
	RemoteGroup *GroupEntry
}

// NewRecordConflict builds a record conflict from copies of both sides.
func NewRecordConflict(local, remote RosterEntry) Conflict {
	return Conflict{Kind: ConflictRecord, ID: local.ID, LocalRecord: &local, RemoteRec: &remote}
}

// NewGroupConflict builds a group conflict from copies of both sides.
func NewGroupConflict(local, remote GroupEntry) Conflict {
	return Conflict{Kind: ConflictGroup, ID: local.ID, LocalGroup: &local, RemoteGroup: &remote}
}
