package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/gamestages/internal/stage"
)

type stubRecordStore struct {
	persistent map[string]stage.Record
	failWith   error
}

func (s *stubRecordStore) LookupPersistent(_ context.Context, id string) (stage.Record, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	rec, ok := s.persistent[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *stubRecordStore) LookupOrCreateEphemeral(_ context.Context, name string) (stage.Record, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return stage.NewMemoryRecord(), nil
}

type stubCache struct {
	rec stage.Record
}

func (c *stubCache) Record() (stage.Record, bool) {
	if c.rec == nil {
		return nil, false
	}
	return c.rec, true
}

func (c *stubCache) ReplaceAll([]stage.Name) {}

func TestAuthorityResolverPrecedence(t *testing.T) {
	ctx := context.Background()
	rec := stage.NewMemoryRecord()
	resolver := NewAuthorityResolver(&stubRecordStore{
		persistent: map[string]stage.Record{"p1": rec},
	})
	resolver.logf = func(string, ...any) {}

	got, ok := resolver.Resolve(ctx, stage.PersistentIdentity("p1", "alice"))
	if !ok || got != rec {
		t.Fatal("persistent identity should resolve from the durable table")
	}

	if _, ok := resolver.Resolve(ctx, stage.EphemeralIdentity("npc")); !ok {
		t.Fatal("ephemeral identity should lazily resolve")
	}

	if _, ok := resolver.Resolve(ctx, stage.ObserverIdentity()); ok {
		t.Fatal("observer identity must not resolve on the authority")
	}
}

func TestAuthorityResolverBackendFailureSurfacesAbsent(t *testing.T) {
	resolver := NewAuthorityResolver(&stubRecordStore{failWith: errors.New("db closed")})
	resolver.logf = func(string, ...any) {}

	if _, ok := resolver.Resolve(context.Background(), stage.PersistentIdentity("p1", "alice")); ok {
		t.Fatal("backend failure must surface absent, not an empty record")
	}
}

func TestObserverResolver(t *testing.T) {
	ctx := context.Background()

	empty := NewObserverResolver(&stubCache{})
	if _, ok := empty.Resolve(ctx, stage.ObserverIdentity()); ok {
		t.Fatal("cache without a sync should be absent")
	}

	rec := stage.NewMemoryRecord()
	resolver := NewObserverResolver(&stubCache{rec: rec})
	got, ok := resolver.Resolve(ctx, stage.ObserverIdentity())
	if !ok || got != rec {
		t.Fatal("observer identity should resolve from the cache")
	}

	if _, ok := resolver.Resolve(ctx, stage.PersistentIdentity("p1", "alice")); ok {
		t.Fatal("observer resolver must not serve authority identities")
	}
}
