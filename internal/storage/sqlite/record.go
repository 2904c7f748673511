package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/gamestages/internal/stage"
)

// record is a write-through stage record: every mutation lands in the
// database before the cached set changes, so a failed write leaves the
// in-memory view consistent with durable state.
type record struct {
	db        *sql.DB
	table     string
	keyColumn string
	key       string

	mu     sync.RWMutex
	stages map[stage.Name]struct{}
}

// Has reports whether the record contains name.
func (r *record) Has(name stage.Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stages[name]
	return ok
}

// Add inserts name, writing through to the database first.
func (r *record) Add(ctx context.Context, name stage.Name) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, stage, added_at) VALUES (?, ?, ?)", r.table, r.keyColumn)
	if _, err := r.db.ExecContext(ctx, query, r.key, string(name), time.Now().UTC().Format(timeFormat)); err != nil {
		return fmt.Errorf("persist stage add: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[name] = struct{}{}
	return nil
}

// Remove deletes name, writing through to the database first.
func (r *record) Remove(ctx context.Context, name stage.Name) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND stage = ?", r.table, r.keyColumn)
	if _, err := r.db.ExecContext(ctx, query, r.key, string(name)); err != nil {
		return fmt.Errorf("persist stage remove: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stages, name)
	return nil
}

// Clear empties the record, writing through to the database first.
func (r *record) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", r.table, r.keyColumn)
	if _, err := r.db.ExecContext(ctx, query, r.key); err != nil {
		return fmt.Errorf("persist stage clear: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = make(map[stage.Name]struct{})
	return nil
}

// Stages returns a sorted snapshot of the record's contents.
func (r *record) Stages() []stage.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]stage.Name, 0, len(r.stages))
	for name := range r.stages {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of stages held.
func (r *record) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stages)
}

var _ stage.Record = (*record)(nil)
