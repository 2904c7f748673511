// Package gateway funnels every stage query and mutation through a single
// path: resolve the identity's record, publish a cancelable pre-event, apply
// the change, propagate a snapshot, then publish the post-event. Policy lives
// in bus listeners; the gateway never knows what those policies are.
package gateway

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/gamestages/internal/event"
	"github.com/louisbranch/gamestages/internal/stage"
)

const tracerName = "github.com/louisbranch/gamestages/internal/gateway"

// Outcome is the terminal state of a mutation call.
type Outcome int

const (
	// OutcomeNoOp means no record resolved for the identity; nothing changed
	// and no further events fired.
	OutcomeNoOp Outcome = iota
	// OutcomeRejected means a listener cancelled the pre-event; nothing
	// changed.
	OutcomeRejected
	// OutcomeApplied means the change was committed, propagated, and the
	// post-event published.
	OutcomeApplied
)

// String renders the outcome for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeApplied:
		return "applied"
	default:
		return "noop"
	}
}

// Resolver finds the stage record for an identity. The boolean distinguishes
// "no record resolvable" from a resolved-but-empty record.
type Resolver interface {
	Resolve(ctx context.Context, identity stage.Identity) (stage.Record, bool)
}

// Propagator pushes a record snapshot from the authority to observers.
// Delivery is fire-and-forget: implementations must not block on or retry
// failed sends.
type Propagator interface {
	Broadcast(ctx context.Context, identity stage.Identity, stages []stage.Name)
}

// Gateway mediates all stage reads and writes for resolved identities.
type Gateway struct {
	resolver   Resolver
	bus        event.Dispatcher
	propagator Propagator
	tracer     trace.Tracer
	logf       func(format string, args ...any)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPropagator attaches a snapshot propagator invoked after every
// successful mutation.
func WithPropagator(p Propagator) Option {
	return func(g *Gateway) { g.propagator = p }
}

// WithTracer overrides the tracer used for mutation spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// WithLogf overrides the gateway's log function.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(g *Gateway) { g.logf = logf }
}

// New constructs a gateway over the given resolver and dispatcher.
func New(resolver Resolver, bus event.Dispatcher, opts ...Option) *Gateway {
	g := &Gateway{
		resolver: resolver,
		bus:      bus,
		tracer:   otel.Tracer(tracerName),
		logf:     log.Printf,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasStage reports whether the identity holds the stage. The stored result
// is published as a check event that listeners may override; the possibly
// overridden result is returned. Unresolvable identities report false.
func (g *Gateway) HasStage(ctx context.Context, identity stage.Identity, name stage.Name) bool {
	rec, ok := g.resolver.Resolve(ctx, identity)
	if !ok {
		return false
	}
	check := event.NewCheck(identity, name, rec.Has(name))
	g.bus.Publish(ctx, check)
	return check.Has()
}

// Stages returns a sorted snapshot of the identity's stage set. Unresolvable
// identities return nil. No events fire; per-stage overrides apply only to
// HasStage.
func (g *Gateway) Stages(ctx context.Context, identity stage.Identity) []stage.Name {
	rec, ok := g.resolver.Resolve(ctx, identity)
	if !ok {
		return nil
	}
	return rec.Stages()
}

// AnyOf reports whether the identity holds at least one of the stages. The
// empty input reports false.
func (g *Gateway) AnyOf(ctx context.Context, identity stage.Identity, names []stage.Name) bool {
	for _, name := range names {
		if g.HasStage(ctx, identity, name) {
			return true
		}
	}
	return false
}

// AllOf reports whether the identity holds every one of the stages. The
// empty input reports true.
func (g *Gateway) AllOf(ctx context.Context, identity stage.Identity, names []stage.Name) bool {
	for _, name := range names {
		if !g.HasStage(ctx, identity, name) {
			return false
		}
	}
	return true
}

// AddStage grants a stage to the identity. Listeners may reject the grant
// via the pre-event; unresolvable identities degrade to a no-op. Granting an
// already-held stage still runs the full event and propagation sequence.
// The error is non-nil only when the backing store fails to apply the write.
func (g *Gateway) AddStage(ctx context.Context, identity stage.Identity, name stage.Name) (Outcome, error) {
	ctx, span := g.startMutationSpan(ctx, "AddStage", identity, name)
	defer span.End()

	pre := &event.PreAdd{Identity: identity, Stage: name}
	if g.bus.Publish(ctx, pre) {
		return g.finish(span, OutcomeRejected)
	}

	rec, ok := g.resolver.Resolve(ctx, identity)
	if !ok {
		return g.finish(span, OutcomeNoOp)
	}
	if err := rec.Add(ctx, name); err != nil {
		return OutcomeNoOp, err
	}

	g.propagate(ctx, identity, rec)
	g.bus.Publish(ctx, &event.PostAdd{Identity: identity, Stage: name})
	return g.finish(span, OutcomeApplied)
}

// RemoveStage revokes a stage from the identity. Symmetric to AddStage;
// revoking an absent stage still runs the full sequence.
func (g *Gateway) RemoveStage(ctx context.Context, identity stage.Identity, name stage.Name) (Outcome, error) {
	ctx, span := g.startMutationSpan(ctx, "RemoveStage", identity, name)
	defer span.End()

	pre := &event.PreRemove{Identity: identity, Stage: name}
	if g.bus.Publish(ctx, pre) {
		return g.finish(span, OutcomeRejected)
	}

	rec, ok := g.resolver.Resolve(ctx, identity)
	if !ok {
		return g.finish(span, OutcomeNoOp)
	}
	if err := rec.Remove(ctx, name); err != nil {
		return OutcomeNoOp, err
	}

	g.propagate(ctx, identity, rec)
	g.bus.Publish(ctx, &event.PostRemove{Identity: identity, Stage: name})
	return g.finish(span, OutcomeApplied)
}

// ClearStages empties the identity's record and returns the number of stages
// it previously held. Unresolvable identities return 0 without firing
// events. There is no pre-event for clears.
func (g *Gateway) ClearStages(ctx context.Context, identity stage.Identity) (int, error) {
	ctx, span := g.startMutationSpan(ctx, "ClearStages", identity, "")
	defer span.End()

	rec, ok := g.resolver.Resolve(ctx, identity)
	if !ok {
		return 0, nil
	}

	prior := rec.Stages()
	if err := rec.Clear(ctx); err != nil {
		return 0, err
	}

	g.propagate(ctx, identity, rec)
	g.bus.Publish(ctx, &event.Cleared{Identity: identity, Stages: prior})
	return len(prior), nil
}

// propagate pushes the record's current snapshot to observers. Failures are
// the propagator's concern; the gateway neither blocks nor retries.
func (g *Gateway) propagate(ctx context.Context, identity stage.Identity, rec stage.Record) {
	if g.propagator == nil {
		return
	}
	stages := rec.Stages()
	if g.logf != nil {
		g.logf("syncing %d stages for %s", len(stages), identity)
	}
	g.propagator.Broadcast(ctx, identity, stages)
}

func (g *Gateway) startMutationSpan(ctx context.Context, op string, identity stage.Identity, name stage.Name) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("stage.identity_kind", string(identity.Kind())),
		attribute.String("stage.identity", identity.String()),
	}
	if name != "" {
		attrs = append(attrs, attribute.String("stage.name", string(name)))
	}
	return g.tracer.Start(ctx, "gateway."+op, trace.WithAttributes(attrs...))
}

func (g *Gateway) finish(span trace.Span, outcome Outcome) (Outcome, error) {
	span.SetAttributes(attribute.String("stage.outcome", outcome.String()))
	return outcome, nil
}
