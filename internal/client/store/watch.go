package store

import (
	"context"
	"sort"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

const lockPollInterval = time.Second

func sortLocks(locks []models.Lock) {
	sort.Slice(locks, func(i, j int) bool { return locks[i].RecordID < locks[j].RecordID })
}

func locksEqual(a, b []models.Lock) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pollLocks implements WatchLocks for SQL backends by re-listing on a short
// ticker and emitting only when the lock set changed. The first snapshot is
// emitted immediately.
func pollLocks(ctx context.Context, list func(context.Context) ([]models.Lock, error)) (<-chan []models.Lock, func()) {
	ch := make(chan []models.Lock, 16)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(ch)

		var last []models.Lock
		emitted := false

		emit := func() {
			locks, err := list(ctx)
			if err != nil {
				return
			}
			sortLocks(locks)
			if emitted && locksEqual(last, locks) {
				return
			}
			last = locks
			emitted = true
			select {
			case ch <- locks:
			default:
			}
		}

		emit()

		ticker := time.NewTicker(lockPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				emit()
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, cancel
}
