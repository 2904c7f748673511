package gateway

import (
	"context"
	"reflect"
	"testing"

	"github.com/louisbranch/gamestages/internal/event"
	"github.com/louisbranch/gamestages/internal/stage"
)

type fixedResolver struct {
	rec stage.Record
}

func (r fixedResolver) Resolve(context.Context, stage.Identity) (stage.Record, bool) {
	if r.rec == nil {
		return nil, false
	}
	return r.rec, true
}

type capturingPropagator struct {
	calls [][]stage.Name
}

func (p *capturingPropagator) Broadcast(_ context.Context, _ stage.Identity, stages []stage.Name) {
	p.calls = append(p.calls, stages)
}

func discardLogf(string, ...any) {}

func newTestGateway(rec stage.Record, bus event.Dispatcher, opts ...Option) *Gateway {
	opts = append(opts, WithLogf(discardLogf))
	return New(fixedResolver{rec: rec}, bus, opts...)
}

func TestAddStageAppliesAndPropagates(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	prop := &capturingPropagator{}
	gw := newTestGateway(rec, bus, WithPropagator(prop))

	var posts []stage.Name
	bus.Subscribe(event.TypePostAdd, func(_ context.Context, evt event.Event) {
		posts = append(posts, evt.(*event.PostAdd).Stage)
	})

	outcome, err := gw.AddStage(ctx, stage.PersistentIdentity("p1", "alice"), "intro")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", outcome)
	}
	if !rec.Has("intro") {
		t.Fatal("record should contain intro")
	}
	if len(prop.calls) != 1 {
		t.Fatalf("propagator called %d times, want 1", len(prop.calls))
	}
	if len(posts) != 1 || posts[0] != "intro" {
		t.Fatalf("post events = %v, want [intro]", posts)
	}
}

func TestAddStageCancelledByListener(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	prop := &capturingPropagator{}
	gw := newTestGateway(rec, bus, WithPropagator(prop))

	bus.Subscribe(event.TypePreAdd, func(_ context.Context, evt event.Event) {
		evt.(event.Cancelable).Cancel()
	})
	postFired := false
	bus.Subscribe(event.TypePostAdd, func(context.Context, event.Event) {
		postFired = true
	})

	outcome, err := gw.AddStage(ctx, stage.PersistentIdentity("p1", "alice"), "intro")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Fatalf("outcome = %s, want rejected", outcome)
	}
	if rec.Has("intro") {
		t.Fatal("cancelled add must not mutate the record")
	}
	if postFired {
		t.Fatal("cancelled add must not fire the post event")
	}
	if len(prop.calls) != 0 {
		t.Fatal("cancelled add must not propagate")
	}
}

func TestAddStageIdempotentButFullSequence(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	prop := &capturingPropagator{}
	gw := newTestGateway(rec, bus, WithPropagator(prop))

	identity := stage.PersistentIdentity("p1", "alice")
	for i := 0; i < 2; i++ {
		if _, err := gw.AddStage(ctx, identity, "intro"); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	if rec.Len() != 1 {
		t.Fatalf("record len = %d after duplicate add, want 1", rec.Len())
	}
	// The duplicate add is a no-op at the set level but still runs the full
	// propagation sequence.
	if len(prop.calls) != 2 {
		t.Fatalf("propagator called %d times, want 2", len(prop.calls))
	}
}

func TestMutationsOnUnresolvableIdentity(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	gw := newTestGateway(nil, bus)
	identity := stage.PersistentIdentity("missing", "ghost")

	outcome, err := gw.AddStage(ctx, identity, "intro")
	if err != nil || outcome != OutcomeNoOp {
		t.Fatalf("add = (%s, %v), want noop", outcome, err)
	}
	outcome, err = gw.RemoveStage(ctx, identity, "intro")
	if err != nil || outcome != OutcomeNoOp {
		t.Fatalf("remove = (%s, %v), want noop", outcome, err)
	}
	count, err := gw.ClearStages(ctx, identity)
	if err != nil || count != 0 {
		t.Fatalf("clear = (%d, %v), want 0", count, err)
	}
	if gw.HasStage(ctx, identity, "intro") {
		t.Fatal("hasStage must be false for unresolvable identity")
	}
}

func TestRemoveStageRoundTrip(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	gw := newTestGateway(rec, bus)
	identity := stage.PersistentIdentity("p1", "alice")

	before := rec.Stages()
	if _, err := gw.AddStage(ctx, identity, "x"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := gw.RemoveStage(ctx, identity, "x"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if after := rec.Stages(); !reflect.DeepEqual(before, after) {
		t.Fatalf("membership changed across add/remove pair: %v -> %v", before, after)
	}
}

func TestClearStagesReturnsPriorCount(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	gw := newTestGateway(rec, bus)
	identity := stage.PersistentIdentity("p1", "alice")

	var cleared *event.Cleared
	bus.Subscribe(event.TypeCleared, func(_ context.Context, evt event.Event) {
		cleared = evt.(*event.Cleared)
	})

	if _, err := gw.AddStage(ctx, identity, "intro"); err != nil {
		t.Fatalf("add: %v", err)
	}
	count, err := gw.ClearStages(ctx, identity)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if count != 1 {
		t.Fatalf("clear returned %d, want 1", count)
	}
	if rec.Len() != 0 {
		t.Fatalf("record len = %d after clear, want 0", rec.Len())
	}
	if cleared == nil {
		t.Fatal("cleared event did not fire")
	}
	if !reflect.DeepEqual(cleared.Stages, []stage.Name{"intro"}) {
		t.Fatalf("cleared snapshot = %v, want prior contents", cleared.Stages)
	}
}

func TestHasStageListenerOverride(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	gw := newTestGateway(rec, bus)
	identity := stage.PersistentIdentity("p1", "alice")

	bus.Subscribe(event.TypeCheck, func(_ context.Context, evt event.Event) {
		check := evt.(*event.Check)
		if check.Stage == "granted_by_policy" {
			check.SetHas(true)
		}
	})

	if !gw.HasStage(ctx, identity, "granted_by_policy") {
		t.Fatal("listener grant should override stored state")
	}
	if gw.HasStage(ctx, identity, "intro") {
		t.Fatal("unrelated stage should stay false")
	}
}

func TestAnyOfAllOf(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	gw := newTestGateway(rec, bus)
	identity := stage.PersistentIdentity("p1", "alice")

	if gw.AnyOf(ctx, identity, nil) {
		t.Fatal("anyOf of empty input must be false")
	}
	if !gw.AllOf(ctx, identity, nil) {
		t.Fatal("allOf of empty input must be true")
	}

	if _, err := gw.AddStage(ctx, identity, "intro"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !gw.AnyOf(ctx, identity, []stage.Name{"boss1", "intro"}) {
		t.Fatal("anyOf should find intro")
	}
	if gw.AllOf(ctx, identity, []stage.Name{"boss1", "intro"}) {
		t.Fatal("allOf should fail on missing boss1")
	}
	if !gw.AllOf(ctx, identity, []stage.Name{"intro"}) {
		t.Fatal("allOf of held stages should pass")
	}
}

func TestScenarioKnownRegistry(t *testing.T) {
	// Scenario from the tagging contract: empty record, grant intro, check
	// both known stages, then clear.
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	gw := newTestGateway(rec, bus)
	identity := stage.PersistentIdentity("p1", "alice")

	if _, err := gw.AddStage(ctx, identity, "intro"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := rec.Stages(); !reflect.DeepEqual(got, []stage.Name{"intro"}) {
		t.Fatalf("record = %v, want [intro]", got)
	}
	if !gw.HasStage(ctx, identity, "intro") {
		t.Fatal("hasStage(intro) should be true")
	}
	if gw.HasStage(ctx, identity, "boss1") {
		t.Fatal("hasStage(boss1) should be false")
	}
	count, err := gw.ClearStages(ctx, identity)
	if err != nil || count != 1 {
		t.Fatalf("clear = (%d, %v), want 1", count, err)
	}
	if rec.Len() != 0 {
		t.Fatal("record should be empty after clear")
	}
}

func TestStagesSnapshot(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	rec := stage.NewMemoryRecord()
	gw := newTestGateway(rec, bus)
	identity := stage.EphemeralIdentity("npc")

	if got := gw.Stages(ctx, identity); len(got) != 0 {
		t.Fatalf("empty record stages = %v, want none", got)
	}
	for _, name := range []stage.Name{"intro", "boss1"} {
		if _, err := gw.AddStage(ctx, identity, name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	if got := gw.Stages(ctx, identity); !reflect.DeepEqual(got, []stage.Name{"boss1", "intro"}) {
		t.Fatalf("stages = %v, want sorted [boss1 intro]", got)
	}

	unresolvable := newTestGateway(nil, bus)
	if got := unresolvable.Stages(ctx, identity); got != nil {
		t.Fatalf("unresolvable stages = %v, want nil", got)
	}
}
