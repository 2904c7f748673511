package stage

import (
	"context"
	"sort"
	"sync"
)

// Record is the mutable set of stages held by one identity. Mutations must
// flow through the gateway so that events fire and snapshots propagate;
// implementations are internally synchronized but do not order concurrent
// mutations against each other.
type Record interface {
	// Has reports whether the record contains name.
	Has(name Name) bool
	// Add inserts name. Inserting a present name is a no-op.
	Add(ctx context.Context, name Name) error
	// Remove deletes name. Removing an absent name is a no-op.
	Remove(ctx context.Context, name Name) error
	// Clear empties the record.
	Clear(ctx context.Context) error
	// Stages returns a sorted snapshot of the record's contents.
	Stages() []Name
	// Len returns the number of stages held.
	Len() int
}

// MemoryRecord is an in-memory Record guarded by a read-write mutex. It backs
// ephemeral identities and the observer cache.
type MemoryRecord struct {
	mu     sync.RWMutex
	stages map[Name]struct{}
}

// NewMemoryRecord constructs an empty in-memory record.
func NewMemoryRecord() *MemoryRecord {
	return &MemoryRecord{stages: make(map[Name]struct{})}
}

// Has reports whether the record contains name.
func (r *MemoryRecord) Has(name Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stages[name]
	return ok
}

// Add inserts name into the record.
func (r *MemoryRecord) Add(ctx context.Context, name Name) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[name] = struct{}{}
	return nil
}

// Remove deletes name from the record.
func (r *MemoryRecord) Remove(ctx context.Context, name Name) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stages, name)
	return nil
}

// Clear empties the record.
func (r *MemoryRecord) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = make(map[Name]struct{})
	return nil
}

// Stages returns a sorted snapshot of the record's contents.
func (r *MemoryRecord) Stages() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Name, 0, len(r.stages))
	for name := range r.stages {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of stages held.
func (r *MemoryRecord) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stages)
}

// ReplaceAll swaps the record's contents for stages. It is used by the sync
// receive path to apply an authoritative snapshot.
func (r *MemoryRecord) ReplaceAll(stages []Name) {
	next := make(map[Name]struct{}, len(stages))
	for _, name := range stages {
		next[name] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = next
}

var _ Record = (*MemoryRecord)(nil)
