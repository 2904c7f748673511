// Package journal records committed stage mutations for audit. The recorder
// listens for post events only; vetoed or no-op mutations never reach it.
package journal

import (
	"context"
	"log"

	"github.com/louisbranch/gamestages/internal/event"
	"github.com/louisbranch/gamestages/internal/storage"
)

// Recorder appends committed mutations to a journal store.
type Recorder struct {
	store storage.JournalStore
	logf  func(format string, args ...any)
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store storage.JournalStore) *Recorder {
	return &Recorder{store: store, logf: log.Printf}
}

// Attach subscribes the recorder to committed mutation events. Append
// failures are logged; they never fail the mutation that already committed.
func (r *Recorder) Attach(bus *event.Bus) {
	bus.Subscribe(event.TypePostAdd, func(ctx context.Context, evt event.Event) {
		post := evt.(*event.PostAdd)
		r.append(ctx, storage.JournalEntry{
			Type:         string(event.TypePostAdd),
			IdentityKind: string(post.Identity.Kind()),
			IdentityKey:  post.Identity.Key(),
			Stage:        string(post.Stage),
		})
	})
	bus.Subscribe(event.TypePostRemove, func(ctx context.Context, evt event.Event) {
		post := evt.(*event.PostRemove)
		r.append(ctx, storage.JournalEntry{
			Type:         string(event.TypePostRemove),
			IdentityKind: string(post.Identity.Kind()),
			IdentityKey:  post.Identity.Key(),
			Stage:        string(post.Stage),
		})
	})
	bus.Subscribe(event.TypeCleared, func(ctx context.Context, evt event.Event) {
		cleared := evt.(*event.Cleared)
		r.append(ctx, storage.JournalEntry{
			Type:         string(event.TypeCleared),
			IdentityKind: string(cleared.Identity.Kind()),
			IdentityKey:  cleared.Identity.Key(),
			Count:        len(cleared.Stages),
		})
	})
}

func (r *Recorder) append(ctx context.Context, entry storage.JournalEntry) {
	if err := r.store.AppendJournalEntry(ctx, entry); err != nil {
		r.logf("append journal entry %s for %s: %v", entry.Type, entry.IdentityKey, err)
	}
}
