// Package storage defines the record stores behind the stage gateway and the
// resolvers that pick a store per identity variant.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/gamestages/internal/stage"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// RecordStore is the authority-side backing store for stage records.
type RecordStore interface {
	// LookupPersistent finds the record for a stable account ID. It returns
	// ErrNotFound when the backing store cannot produce the record; it never
	// fabricates an empty record on failure.
	LookupPersistent(ctx context.Context, id string) (stage.Record, error)
	// LookupOrCreateEphemeral finds the record for an ephemeral actor by
	// display name, lazily creating an empty one.
	LookupOrCreateEphemeral(ctx context.Context, name string) (stage.Record, error)
}

// ObserverCache holds the single synced copy of a remote identity's record
// for the local session.
type ObserverCache interface {
	// Record returns the cached record, or false when no sync has arrived yet.
	Record() (stage.Record, bool)
	// ReplaceAll applies an authoritative snapshot to the cache.
	ReplaceAll(stages []stage.Name)
}

// JournalEntry is one committed stage mutation recorded for audit.
type JournalEntry struct {
	Type         string
	IdentityKind string
	IdentityKey  string
	Stage        string
	Count        int
	OccurredAt   string
}

// JournalStore appends committed stage mutations.
type JournalStore interface {
	AppendJournalEntry(ctx context.Context, entry JournalEntry) error
}
