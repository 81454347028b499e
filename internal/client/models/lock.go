package models

import "time"

// Lock is an advisory edit lock on one record (or group) of a shoot.
// It lives either in the remote lock subcollection (online) or in the
// device-local ephemeral map (offline), never both.
type Lock struct {
	AggregateID string    `json:"aggregateId"`
	RecordID    string    `json:"recordId"`
	OwnerID     string    `json:"ownerId"`
	OwnerLabel  string    `json:"ownerLabel"`
	AcquiredAt  time.Time `json:"timestamp"`
}
