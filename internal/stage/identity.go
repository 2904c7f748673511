package stage

// IdentityKind discriminates the variants of Identity.
type IdentityKind string

const (
	// KindPersistent is an account-backed identity keyed by a stable ID.
	// Its record is durably stored.
	KindPersistent IdentityKind = "persistent"
	// KindEphemeral is a non-persistent scripted or service actor keyed
	// by display name.
	KindEphemeral IdentityKind = "ephemeral"
	// KindObserver is the local cached copy of another identity's record,
	// populated only by inbound sync.
	KindObserver IdentityKind = "observer"
)

// Identity names the holder of a stage record. It is a tagged union over
// three variants; use the constructors rather than building values directly.
type Identity struct {
	kind IdentityKind
	id   string
	name string
}

// PersistentIdentity builds an identity for an account with a stable ID.
// The display name is informational only.
func PersistentIdentity(id, name string) Identity {
	return Identity{kind: KindPersistent, id: id, name: name}
}

// EphemeralIdentity builds an identity for a non-persistent actor keyed by
// display name.
func EphemeralIdentity(name string) Identity {
	return Identity{kind: KindEphemeral, name: name}
}

// ObserverIdentity builds the identity for the local observer cache.
func ObserverIdentity() Identity {
	return Identity{kind: KindObserver}
}

// Kind returns the identity variant.
func (i Identity) Kind() IdentityKind {
	return i.kind
}

// ID returns the stable ID of a persistent identity, or empty otherwise.
func (i Identity) ID() string {
	return i.id
}

// Name returns the display name, or empty when the variant carries none.
func (i Identity) Name() string {
	return i.name
}

// Key returns the lookup key for the identity's record: the stable ID for
// persistent identities, the display name for ephemeral ones, and empty for
// the observer.
func (i Identity) Key() string {
	switch i.kind {
	case KindPersistent:
		return i.id
	case KindEphemeral:
		return i.name
	default:
		return ""
	}
}

// String renders the identity for logs.
func (i Identity) String() string {
	switch i.kind {
	case KindPersistent:
		if i.name != "" {
			return i.name
		}
		return i.id
	case KindEphemeral:
		return i.name
	default:
		return "observer"
	}
}
