package sync

import (
	"context"
	"fmt"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/events"
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

// Decision is a per-conflict choice between the two diverged versions.
type Decision int

const (
	UseLocal Decision = iota + 1
	UseRemote
)

type conflictKey struct {
	kind models.ConflictKind
	id   string
}

// Resolver collects per-record decisions for one conflicted aggregate and
// commits the resulting merged aggregate. Conflicts are never auto-resolved:
// every entry needs an explicit decision before Commit is allowed to push.
type Resolver struct {
	repo      *Repository
	shootID   string
	local     *models.Shoot
	remote    *models.Shoot
	conflicts []models.Conflict
	decisions map[conflictKey]Decision
}

// NewResolver starts a resolution session from a ConflictsDetected event.
func (r *Repository) NewResolver(e events.ConflictsDetected) *Resolver {
	return &Resolver{
		repo:      r,
		shootID:   e.ShootID,
		local:     e.Local.Clone(),
		remote:    e.Remote.Clone(),
		conflicts: e.Conflicts,
		decisions: make(map[conflictKey]Decision),
	}
}

// Conflicts returns the conflict set under resolution.
func (r *Resolver) Conflicts() []models.Conflict { return r.conflicts }

// Decide records the decision for one conflicting entry.
func (r *Resolver) Decide(kind models.ConflictKind, id string, d Decision) error {
	key := conflictKey{kind: kind, id: id}
	if !r.isConflict(key) {
		return fmt.Errorf("%w: %s %s", ErrUnknownConflict, kind, id)
	}
	r.decisions[key] = d
	return nil
}

// ResolveAll bulk-assigns decisions: every ID in localIDs is resolved as
// UseLocal and every ID in remoteIDs as UseRemote. Group conflicts match by
// the same IDs.
func (r *Resolver) ResolveAll(localIDs, remoteIDs []string) error {
	for _, id := range localIDs {
		if err := r.decideEitherKind(id, UseLocal); err != nil {
			return err
		}
	}
	for _, id := range remoteIDs {
		if err := r.decideEitherKind(id, UseRemote); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) decideEitherKind(id string, d Decision) error {
	found := false
	for _, c := range r.conflicts {
		if c.ID == id {
			r.decisions[conflictKey{kind: c.Kind, id: c.ID}] = d
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownConflict, id)
	}
	return nil
}

func (r *Resolver) isConflict(key conflictKey) bool {
	for _, c := range r.conflicts {
		if c.Kind == key.kind && c.ID == key.id {
			return true
		}
	}
	return false
}

// IsFullyResolved reports whether every conflict has a decision.
func (r *Resolver) IsFullyResolved() bool {
	for _, c := range r.conflicts {
		if _, ok := r.decisions[conflictKey{kind: c.Kind, id: c.ID}]; !ok {
			return false
		}
	}
	return true
}

// mergedShoot builds the committed aggregate: the remote side is the base,
// non-conflicting local edits overlay it exactly like the automatic merge,
// and each conflicting entry follows its recorded decision.
func (r *Resolver) mergedShoot() *models.Shoot {
	merged := Merge(r.local, r.remote)

	for _, c := range r.conflicts {
		d := r.decisions[conflictKey{kind: c.Kind, id: c.ID}]
		switch c.Kind {
		case models.ConflictRecord:
			chosen := *c.LocalRecord
			if d == UseRemote {
				chosen = *c.RemoteRec
			}
			merged.UpsertRecord(chosen)
		case models.ConflictGroup:
			chosen := *c.LocalGroup
			if d == UseRemote {
				chosen = *c.RemoteGroup
			}
			merged.UpsertGroup(chosen)
		}
	}
	return merged
}

// Commit pushes the merged aggregate as a full remote write, refreshes the
// cache and clears the modified flag. When any decision is missing it fails
// with ErrResolutionIncomplete and leaves the remote document untouched.
func (r *Resolver) Commit(ctx context.Context) (*models.Shoot, error) {
	if !r.IsFullyResolved() {
		return nil, ErrResolutionIncomplete
	}

	merged := r.mergedShoot()
	if err := r.repo.pushMerged(ctx, r.shootID, merged); err != nil {
		return nil, err
	}

	r.repo.bus.Publish(events.SyncStatusChanged{ShootID: r.shootID, Status: events.SyncCompleted})
	return merged, nil
}
