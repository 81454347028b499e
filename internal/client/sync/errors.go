package sync

import "errors"

var (
	// ErrNotCachedOffline means a read was requested offline for an
	// aggregate that was never cached. Surfaced, not retried.
	ErrNotCachedOffline = errors.New("shoot not cached for offline use")

	// ErrResolutionIncomplete means a conflict commit was attempted before
	// every conflicting entry had a decision. Nothing is pushed.
	ErrResolutionIncomplete = errors.New("conflict resolution incomplete")

	// ErrUnknownConflict means a decision referenced an ID that is not part
	// of the conflict set.
	ErrUnknownConflict = errors.New("unknown conflict id")
)
