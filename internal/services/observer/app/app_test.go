package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/gamestages/internal/propagation"
	"github.com/louisbranch/gamestages/internal/stage"
)

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{WatchKey: "account-1"}); err == nil {
		t.Fatal("expected error without a redis address")
	}
	if _, err := New(Options{RedisAddr: "localhost:6379"}); err == nil {
		t.Fatal("expected error without a watch key")
	}
}

func TestObserverMirrorsWatchedIdentity(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	server, err := New(Options{
		RedisAddr: mr.Addr(),
		Instance:  "world1",
		WatchKind: "persistent",
		WatchKey:  "account-1",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- server.Run(runCtx)
	}()

	publisher, err := propagation.NewPublisher(&redis.Options{Addr: mr.Addr()}, "world1")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer publisher.Close()

	observer := stage.ObserverIdentity()

	// Cache starts unsynced; checks resolve nothing.
	if server.Gateway().HasStage(ctx, observer, "intro") {
		t.Fatal("unsynced cache should report false")
	}

	// A snapshot for someone else must not populate the cache.
	publisher.Broadcast(ctx, stage.PersistentIdentity("stranger", ""), []stage.Name{"boss1"})
	// The watched identity's snapshot replaces the cache wholesale.
	publisher.Broadcast(ctx, stage.PersistentIdentity("account-1", "alice"), []stage.Name{"intro"})

	deadline := time.After(4 * time.Second)
	for !server.Gateway().HasStage(ctx, observer, "intro") {
		select {
		case <-deadline:
			t.Fatal("cache never synced the watched snapshot")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if server.Gateway().HasStage(ctx, observer, "boss1") {
		t.Fatal("snapshot for another identity must not leak into the cache")
	}

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observer did not stop on cancel")
	}
}
