// Package cache is the durable device-local store for shoot aggregates.
//
// Layout on disk: one {id}.json file per aggregate plus two index files,
// cached.json (IDs with a local snapshot) and modified.json (IDs with
// offline writes pending reconciliation, mapped to the time of the last
// local write).
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/client/models"
	"github.com/Jsunwilke/employeeapp-sub003/internal/filex"
)

const (
	cachedIndexFile   = "cached.json"
	modifiedIndexFile = "modified.json"
)

// Cache stores full aggregate snapshots keyed by ID. Snapshots are immutable
// until replaced: Get returns a fresh copy on every call.
//
// The index maps are guarded by a mutex, but the load-mutate-store helpers
// are intentionally not serialized per aggregate; the caller is responsible
// for issuing at most one in-flight mutation per aggregate at a time.
type Cache struct {
	dir string
	now func() time.Time

	mu       sync.Mutex
	cached   map[string]struct{}
	modified map[string]time.Time
}

// New opens (or creates) the cache directory and loads both indexes.
// A missing or unreadable index starts empty rather than failing: the
// individual aggregate files remain the source of truth for payloads.
func New(dir string) (*Cache, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, storageErr("init", err)
	}

	c := &Cache{
		dir:      abs,
		now:      time.Now,
		cached:   make(map[string]struct{}),
		modified: make(map[string]time.Time),
	}

	var cachedIDs []string
	if readJSONFile(c.indexPath(cachedIndexFile), &cachedIDs) {
		for _, id := range cachedIDs {
			c.cached[id] = struct{}{}
		}
	}
	readJSONFile(c.indexPath(modifiedIndexFile), &c.modified)

	return c, nil
}

func (c *Cache) shootPath(id string) string {
	return filepath.Join(c.dir, id+".json")
}

func (c *Cache) indexPath(name string) string {
	return filepath.Join(c.dir, name)
}

// readJSONFile loads path into v, reporting success. Missing or corrupt
// files are treated as absent.
func readJSONFile(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o660)
}

// Put durably stores the full aggregate and registers its ID in the cached
// index. Re-putting the same ID replaces the snapshot.
func (c *Cache) Put(shoot *models.Shoot) error {
	if err := writeJSONFile(c.shootPath(shoot.ID), shoot); err != nil {
		return storageErr("put", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cached[shoot.ID]; !ok {
		c.cached[shoot.ID] = struct{}{}
		if err := c.persistCachedLocked(); err != nil {
			return storageErr("put", err)
		}
	}
	return nil
}

// Get returns the cached aggregate or nil if it was never cached or the
// stored payload is missing or corrupt. Corruption is deliberately not
// fatal: the aggregate simply reads as absent and will be re-fetched.
func (c *Cache) Get(id string) (*models.Shoot, error) {
	var shoot models.Shoot
	if !readJSONFile(c.shootPath(id), &shoot) {
		return nil, nil
	}
	return &shoot, nil
}

// MarkModified records the current timestamp for the ID in the modified
// index. Re-marking moves the timestamp forward.
func (c *Cache) MarkModified(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modified[id] = c.now().UTC()
	if err := c.persistModifiedLocked(); err != nil {
		return storageErr("markModified", err)
	}
	return nil
}

// ClearModified removes the ID from the modified index after a successful
// remote reconciliation. Clearing an unmarked ID is a no-op.
func (c *Cache) ClearModified(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.modified[id]; !ok {
		return nil
	}
	delete(c.modified, id)
	if err := c.persistModifiedLocked(); err != nil {
		return storageErr("clearModified", err)
	}
	return nil
}

// Status reports the local standing of an aggregate ID; modified wins over
// cached.
func (c *Cache) Status(id string) models.CacheStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.modified[id]; ok {
		return models.StatusModified
	}
	if _, ok := c.cached[id]; ok {
		return models.StatusCached
	}
	return models.StatusNotCached
}

// ModifiedIDs returns the IDs pending reconciliation, oldest local write
// first, so the drain works through the backlog in order.
func (c *Cache) ModifiedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.modified))
	for id := range c.modified {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := c.modified[ids[i]], c.modified[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.Before(tj)
	})
	return ids
}

// ModifiedAt returns when the aggregate was last locally written, if it is
// in the modified index.
func (c *Cache) ModifiedAt(id string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.modified[id]
	return ts, ok
}

// CachedIDs returns every aggregate ID with a local snapshot, sorted.
func (c *Cache) CachedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.cached))
	for id := range c.cached {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Cache) persistCachedLocked() error {
	ids := make([]string, 0, len(c.cached))
	for id := range c.cached {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return writeJSONFile(c.indexPath(cachedIndexFile), ids)
}

func (c *Cache) persistModifiedLocked() error {
	return writeJSONFile(c.indexPath(modifiedIndexFile), c.modified)
}

// mutate loads the aggregate, applies fn, stores the result and marks the
// aggregate modified. It returns the post-state.
func (c *Cache) mutate(id string, fn func(*models.Shoot) error) (*models.Shoot, error) {
	shoot, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if shoot == nil {
		return nil, ErrNotCached
	}
	if err := fn(shoot); err != nil {
		return nil, err
	}
	shoot.UpdatedAt = c.now().UTC()
	if err := c.Put(shoot); err != nil {
		return nil, err
	}
	if err := c.MarkModified(id); err != nil {
		return nil, err
	}
	return shoot, nil
}

// UpsertRecord adds or replaces a roster record in the cached aggregate and
// marks it modified.
func (c *Cache) UpsertRecord(id string, r models.RosterEntry) (*models.Shoot, error) {
	return c.mutate(id, func(s *models.Shoot) error {
		s.UpsertRecord(r)
		return nil
	})
}

// DeleteRecord removes a roster record from the cached aggregate and marks
// it modified.
func (c *Cache) DeleteRecord(id, recordID string) (*models.Shoot, error) {
	return c.mutate(id, func(s *models.Shoot) error {
		if !s.RemoveRecord(recordID) {
			return ErrRecordNotFound
		}
		return nil
	})
}

// UpsertGroup adds or replaces a group entry in the cached aggregate and
// marks it modified.
func (c *Cache) UpsertGroup(id string, g models.GroupEntry) (*models.Shoot, error) {
	return c.mutate(id, func(s *models.Shoot) error {
		s.UpsertGroup(g)
		return nil
	})
}

// DeleteGroup removes a group entry from the cached aggregate and marks it
// modified.
func (c *Cache) DeleteGroup(id, groupID string) (*models.Shoot, error) {
	return c.mutate(id, func(s *models.Shoot) error {
		if !s.RemoveGroup(groupID) {
			return ErrRecordNotFound
		}
		return nil
	})
}
