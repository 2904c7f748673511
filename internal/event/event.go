// Package event defines the stage mutation events and the dispatcher they
// flow through. Every gateway read and write publishes an event here so that
// policy layers can veto changes or react to committed ones without the
// gateway knowing who they are.
package event

import (
	"context"

	"github.com/louisbranch/gamestages/internal/stage"
)

// Type identifies the type of a stage event.
type Type string

const (
	// TypeCheck fires on every stage query; listeners may override the result.
	TypeCheck Type = "stage.check"
	// TypePreAdd fires before a stage is granted; listeners may cancel it.
	TypePreAdd Type = "stage.pre_add"
	// TypePostAdd fires after a stage grant is committed.
	TypePostAdd Type = "stage.post_add"
	// TypePreRemove fires before a stage is revoked; listeners may cancel it.
	TypePreRemove Type = "stage.pre_remove"
	// TypePostRemove fires after a stage revocation is committed.
	TypePostRemove Type = "stage.post_remove"
	// TypeCleared fires after a record is emptied.
	TypeCleared Type = "stage.cleared"
)

// Event is a stage event delivered to listeners. Listener mutations to event
// payloads are visible to the publisher.
type Event interface {
	EventType() Type
	EventIdentity() stage.Identity
}

// Cancelable is implemented by pre-mutation events that listeners may veto.
type Cancelable interface {
	Event
	Cancel()
	Cancelled() bool
}

// Dispatcher publishes events synchronously to registered listeners and
// reports whether a listener cancelled the event.
type Dispatcher interface {
	Publish(ctx context.Context, evt Event) bool
}

// Check is published on every stage query. The stored membership result is
// pre-filled; listeners may override it without touching stored state.
type Check struct {
	Identity stage.Identity
	Stage    stage.Name
	has      bool
}

// NewCheck builds a check event carrying the stored membership result.
func NewCheck(identity stage.Identity, name stage.Name, has bool) *Check {
	return &Check{Identity: identity, Stage: name, has: has}
}

// EventType returns TypeCheck.
func (e *Check) EventType() Type { return TypeCheck }

// EventIdentity returns the identity being checked.
func (e *Check) EventIdentity() stage.Identity { return e.Identity }

// Has returns the current (possibly overridden) check result.
func (e *Check) Has() bool { return e.has }

// SetHas overrides the check result.
func (e *Check) SetHas(has bool) { e.has = has }

type cancel struct {
	cancelled bool
}

// Cancel vetoes the mutation.
func (c *cancel) Cancel() { c.cancelled = true }

// Cancelled reports whether a listener vetoed the mutation.
func (c *cancel) Cancelled() bool { return c.cancelled }

// PreAdd is published before a stage grant is applied.
type PreAdd struct {
	cancel
	Identity stage.Identity
	Stage    stage.Name
}

// EventType returns TypePreAdd.
func (e *PreAdd) EventType() Type { return TypePreAdd }

// EventIdentity returns the identity being granted the stage.
func (e *PreAdd) EventIdentity() stage.Identity { return e.Identity }

// PostAdd is published after a stage grant is committed and propagated.
type PostAdd struct {
	Identity stage.Identity
	Stage    stage.Name
}

// EventType returns TypePostAdd.
func (e *PostAdd) EventType() Type { return TypePostAdd }

// EventIdentity returns the identity that was granted the stage.
func (e *PostAdd) EventIdentity() stage.Identity { return e.Identity }

// PreRemove is published before a stage revocation is applied.
type PreRemove struct {
	cancel
	Identity stage.Identity
	Stage    stage.Name
}

// EventType returns TypePreRemove.
func (e *PreRemove) EventType() Type { return TypePreRemove }

// EventIdentity returns the identity losing the stage.
func (e *PreRemove) EventIdentity() stage.Identity { return e.Identity }

// PostRemove is published after a stage revocation is committed and
// propagated.
type PostRemove struct {
	Identity stage.Identity
	Stage    stage.Name
}

// EventType returns TypePostRemove.
func (e *PostRemove) EventType() Type { return TypePostRemove }

// EventIdentity returns the identity that lost the stage.
func (e *PostRemove) EventIdentity() stage.Identity { return e.Identity }

// Cleared is published after a record is emptied. Stages holds the snapshot
// taken before the clear.
type Cleared struct {
	Identity stage.Identity
	Stages   []stage.Name
}

// EventType returns TypeCleared.
func (e *Cleared) EventType() Type { return TypeCleared }

// EventIdentity returns the identity whose record was cleared.
func (e *Cleared) EventIdentity() stage.Identity { return e.Identity }
