package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/gamestages/internal/event"
	"github.com/louisbranch/gamestages/internal/stage"
	"github.com/louisbranch/gamestages/internal/storage"
)

type memJournal struct {
	entries []storage.JournalEntry
	err     error
}

func (m *memJournal) AppendJournalEntry(_ context.Context, entry storage.JournalEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestRecorderAppendsPostEvents(t *testing.T) {
	store := &memJournal{}
	bus := event.NewBus()
	NewRecorder(store).Attach(bus)

	ctx := context.Background()
	identity := stage.PersistentIdentity("account-1", "alice")

	bus.Publish(ctx, &event.PostAdd{Identity: identity, Stage: "intro"})
	bus.Publish(ctx, &event.PostRemove{Identity: identity, Stage: "intro"})
	bus.Publish(ctx, &event.Cleared{Identity: identity, Stages: []stage.Name{"a", "b", "c"}})

	if len(store.entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(store.entries))
	}

	add := store.entries[0]
	if add.Type != "stage.post_add" || add.IdentityKind != "persistent" || add.IdentityKey != "account-1" || add.Stage != "intro" {
		t.Fatalf("unexpected add entry: %+v", add)
	}
	if remove := store.entries[1]; remove.Type != "stage.post_remove" || remove.Stage != "intro" {
		t.Fatalf("unexpected remove entry: %+v", remove)
	}
	if cleared := store.entries[2]; cleared.Type != "stage.cleared" || cleared.Count != 3 || cleared.Stage != "" {
		t.Fatalf("unexpected cleared entry: %+v", cleared)
	}
}

func TestRecorderIgnoresPreEvents(t *testing.T) {
	store := &memJournal{}
	bus := event.NewBus()
	NewRecorder(store).Attach(bus)

	ctx := context.Background()
	bus.Publish(ctx, &event.PreAdd{Identity: stage.EphemeralIdentity("npc"), Stage: "intro"})
	bus.Publish(ctx, event.NewCheck(stage.EphemeralIdentity("npc"), "intro", false))

	if len(store.entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(store.entries))
	}
}

func TestRecorderLogsAppendFailure(t *testing.T) {
	store := &memJournal{err: errors.New("disk full")}
	recorder := NewRecorder(store)
	var logged []string
	recorder.logf = func(format string, args ...any) {
		logged = append(logged, format)
	}

	bus := event.NewBus()
	recorder.Attach(bus)

	bus.Publish(context.Background(), &event.PostAdd{Identity: stage.EphemeralIdentity("npc"), Stage: "intro"})
	if len(logged) != 1 {
		t.Fatalf("logged = %d, want 1", len(logged))
	}
}
