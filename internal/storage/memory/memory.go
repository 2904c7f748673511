// Package memory provides in-memory record stores: the observer-side synced
// cache and a volatile authority store used in tests and ephemeral setups.
package memory

import (
	"context"
	"sync"

	"github.com/louisbranch/gamestages/internal/stage"
	"github.com/louisbranch/gamestages/internal/storage"
)

// Store keeps persistent and ephemeral records in process memory. Persistent
// lookups only resolve identities that were registered first, mirroring the
// durable store's refusal to fabricate records for unknown accounts.
type Store struct {
	mu         sync.Mutex
	persistent map[string]*stage.MemoryRecord
	ephemeral  map[string]*stage.MemoryRecord
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		persistent: make(map[string]*stage.MemoryRecord),
		ephemeral:  make(map[string]*stage.MemoryRecord),
	}
}

// RegisterPersistent creates an empty record for the account ID, standing in
// for the durable store loading a player's data at session start.
func (s *Store) RegisterPersistent(id string) *stage.MemoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.persistent[id]
	if !ok {
		rec = stage.NewMemoryRecord()
		s.persistent[id] = rec
	}
	return rec
}

// LookupPersistent finds the record for a registered account ID.
func (s *Store) LookupPersistent(ctx context.Context, id string) (stage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.persistent[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

// LookupOrCreateEphemeral finds or lazily creates the record for an
// ephemeral actor.
func (s *Store) LookupOrCreateEphemeral(ctx context.Context, name string) (stage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ephemeral[name]
	if !ok {
		rec = stage.NewMemoryRecord()
		s.ephemeral[name] = rec
	}
	return rec, nil
}

var _ storage.RecordStore = (*Store)(nil)

// Cache is the observer-side copy of a remote identity's record. It is empty
// until the first snapshot arrives and is replaced wholesale by each sync.
type Cache struct {
	mu     sync.Mutex
	rec    *stage.MemoryRecord
	synced bool
}

// NewCache constructs an unsynced observer cache.
func NewCache() *Cache {
	return &Cache{rec: stage.NewMemoryRecord()}
}

// Record returns the cached record once a sync has populated it.
func (c *Cache) Record() (stage.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.synced {
		return nil, false
	}
	return c.rec, true
}

// ReplaceAll applies an authoritative snapshot to the cache.
func (c *Cache) ReplaceAll(stages []stage.Name) {
	c.mu.Lock()
	c.synced = true
	c.mu.Unlock()
	c.rec.ReplaceAll(stages)
}

var _ storage.ObserverCache = (*Cache)(nil)
