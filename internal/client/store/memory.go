package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors the semantics of the SQL backends, including conditional lock
// writes and per-document transactions (the package mutex makes every
// operation atomic).
type MemoryStore struct {
	mu       sync.Mutex
	shoots   map[string]*models.Shoot
	locks    map[string]map[string]models.Lock
	watchers map[string][]chan []models.Lock

	pingErr error
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shoots:   make(map[string]*models.Shoot),
		locks:    make(map[string]map[string]models.Lock),
		watchers: make(map[string][]chan []models.Lock),
		now:      time.Now,
	}
}

// SetPingErr makes Ping fail, simulating an unreachable remote.
func (m *MemoryStore) SetPingErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *MemoryStore) GetShoot(ctx context.Context, id string) (*models.Shoot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shoots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) PutShoot(ctx context.Context, shoot *models.Shoot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shoots[shoot.ID] = shoot.Clone()
	return nil
}

func (m *MemoryStore) ListShoots(ctx context.Context, orgID string) ([]*models.Shoot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Shoot
	for _, s := range m.shoots {
		if s.OrgID == orgID {
			result = append(result, s.Clone())
		}
	}
	sortShootsByDateDesc(result)
	return result, nil
}

func (m *MemoryStore) UpdateShoot(ctx context.Context, id string, fn func(*models.Shoot) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shoots[id]
	if !ok {
		return ErrNotFound
	}
	working := s.Clone()
	if err := fn(working); err != nil {
		return err
	}
	m.shoots[id] = working
	return nil
}

func (m *MemoryStore) AcquireLock(ctx context.Context, lock models.Lock) (models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byRecord, ok := m.locks[lock.AggregateID]
	if !ok {
		byRecord = make(map[string]models.Lock)
		m.locks[lock.AggregateID] = byRecord
	}

	if existing, held := byRecord[lock.RecordID]; held && existing.OwnerID != lock.OwnerID {
		return models.Lock{}, ErrLockHeld
	}

	lock.AcquiredAt = m.now().UTC()
	byRecord[lock.RecordID] = lock
	m.notifyLocked(lock.AggregateID)
	return lock, nil
}

func (m *MemoryStore) ReleaseLock(ctx context.Context, aggregateID, recordID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byRecord := m.locks[aggregateID]
	existing, held := byRecord[recordID]
	if !held {
		return nil
	}
	if existing.OwnerID != ownerID {
		return ErrLockHeld
	}
	delete(byRecord, recordID)
	m.notifyLocked(aggregateID)
	return nil
}

func (m *MemoryStore) ListLocks(ctx context.Context, aggregateID string) ([]models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(aggregateID), nil
}

func (m *MemoryStore) DeleteStaleLocks(ctx context.Context, aggregateID string, olderThan time.Time) ([]models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byRecord := m.locks[aggregateID]
	var removed []models.Lock
	for recordID, lock := range byRecord {
		if lock.AcquiredAt.Before(olderThan) {
			removed = append(removed, lock)
			delete(byRecord, recordID)
		}
	}
	if len(removed) > 0 {
		m.notifyLocked(aggregateID)
	}
	sortLocks(removed)
	return removed, nil
}

func (m *MemoryStore) WatchLocks(ctx context.Context, aggregateID string) (<-chan []models.Lock, func()) {
	ch := make(chan []models.Lock, 16)

	m.mu.Lock()
	m.watchers[aggregateID] = append(m.watchers[aggregateID], ch)
	ch <- m.snapshotLocked(aggregateID)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		watchers := m.watchers[aggregateID]
		for i, w := range watchers {
			if w == ch {
				m.watchers[aggregateID] = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) snapshotLocked(aggregateID string) []models.Lock {
	byRecord := m.locks[aggregateID]
	locks := make([]models.Lock, 0, len(byRecord))
	for _, lock := range byRecord {
		locks = append(locks, lock)
	}
	sortLocks(locks)
	return locks
}

func (m *MemoryStore) notifyLocked(aggregateID string) {
	snapshot := m.snapshotLocked(aggregateID)
	for _, ch := range m.watchers[aggregateID] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func sortShootsByDateDesc(shoots []*models.Shoot) {
	sort.Slice(shoots, func(i, j int) bool { return shoots[i].Date.After(shoots[j].Date) })
}
