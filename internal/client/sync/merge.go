package sync

import (
	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

// conflicting implements the conflict predicate for the contended field:
// a pair conflicts iff both sides are non-empty and mutually different.
// An empty side can always be auto-filled from the other, so it never
// conflicts.
func conflicting(local, remote string) bool {
	return local != "" && remote != "" && local != remote
}

// DetectConflicts compares local and remote versions of one aggregate and
// returns the conflicting record and group pairs. Records present on only
// one side cannot conflict.
func DetectConflicts(local, remote *models.Shoot) []models.Conflict {
	var conflicts []models.Conflict

	for _, lr := range local.Records {
		if i := remote.FindRecord(lr.ID); i >= 0 {
			rr := remote.Records[i]
			if conflicting(lr.ImageNumbers, rr.ImageNumbers) {
				conflicts = append(conflicts, models.NewRecordConflict(lr, rr))
			}
		}
	}

	for _, lg := range local.Groups {
		if i := remote.FindGroup(lg.ID); i >= 0 {
			rg := remote.Groups[i]
			if conflicting(lg.ImageNumbers, rg.ImageNumbers) {
				conflicts = append(conflicts, models.NewGroupConflict(lg, rg))
			}
		}
	}

	return conflicts
}

// mergeRecord reconciles one non-conflicting pair: the local version is the
// most recent edit and wins, except that an empty local contended field is
// filled from the remote side.
func mergeRecord(local, remote models.RosterEntry) models.RosterEntry {
	if local.ImageNumbers == "" {
		local.ImageNumbers = remote.ImageNumbers
	}
	return local
}

func mergeGroup(local, remote models.GroupEntry) models.GroupEntry {
	if local.ImageNumbers == "" {
		local.ImageNumbers = remote.ImageNumbers
	}
	return local
}

// Merge builds the auto-merged aggregate for a pair with no conflicts.
// It starts from the remote aggregate (the authoritative base), overlays
// every local record and group through mergeRecord/mergeGroup, and appends
// records that exist only locally. Every ID present on either side appears
// exactly once in the result.
func Merge(local, remote *models.Shoot) *models.Shoot {
	merged := remote.Clone()

	for _, lr := range local.Records {
		if i := merged.FindRecord(lr.ID); i >= 0 {
			merged.Records[i] = mergeRecord(lr, merged.Records[i])
		} else {
			merged.Records = append(merged.Records, lr)
		}
	}

	for _, lg := range local.Groups {
		if i := merged.FindGroup(lg.ID); i >= 0 {
			merged.Groups[i] = mergeGroup(lg, merged.Groups[i])
		} else {
			merged.Groups = append(merged.Groups, lg)
		}
	}

	// Scalar metadata follows the local edit, like the collections.
	merged.Title = local.Title
	merged.Location = local.Location
	merged.Notes = local.Notes
	merged.Date = local.Date

	return merged
}
