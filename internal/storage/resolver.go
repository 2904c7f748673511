package storage

import (
	"context"
	"log"

	"github.com/louisbranch/gamestages/internal/stage"
)

// AuthorityResolver resolves records on the authoritative side. Persistent
// identities take precedence over ephemeral ones; observer identities never
// resolve here because the authority is not an observer of anyone.
type AuthorityResolver struct {
	store RecordStore
	logf  func(format string, args ...any)
}

// NewAuthorityResolver builds a resolver over the authority record store.
func NewAuthorityResolver(store RecordStore) *AuthorityResolver {
	return &AuthorityResolver{store: store, logf: log.Printf}
}

// Resolve finds the record for an identity. A failed durable lookup surfaces
// absent rather than a fabricated empty record; the failure itself is the
// backend's concern and is only logged here.
func (r *AuthorityResolver) Resolve(ctx context.Context, identity stage.Identity) (stage.Record, bool) {
	if r == nil || r.store == nil {
		return nil, false
	}
	switch identity.Kind() {
	case stage.KindPersistent:
		rec, err := r.store.LookupPersistent(ctx, identity.ID())
		if err != nil {
			r.logf("lookup stages for %s: %v", identity, err)
			return nil, false
		}
		return rec, true
	case stage.KindEphemeral:
		rec, err := r.store.LookupOrCreateEphemeral(ctx, identity.Name())
		if err != nil {
			r.logf("lookup ephemeral stages for %s: %v", identity, err)
			return nil, false
		}
		return rec, true
	default:
		return nil, false
	}
}

// ObserverResolver resolves only the observer identity against the local
// synced cache. It is used where the process is not a backing authority for
// any identity.
type ObserverResolver struct {
	cache ObserverCache
}

// NewObserverResolver builds a resolver over the local observer cache.
func NewObserverResolver(cache ObserverCache) *ObserverResolver {
	return &ObserverResolver{cache: cache}
}

// Resolve returns the cached record for the observer identity. It is absent
// until the first sync arrives.
func (r *ObserverResolver) Resolve(_ context.Context, identity stage.Identity) (stage.Record, bool) {
	if r == nil || r.cache == nil {
		return nil, false
	}
	if identity.Kind() != stage.KindObserver {
		return nil, false
	}
	return r.cache.Record()
}
