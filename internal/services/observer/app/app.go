// Package app wires a stage observer: a process that holds no authority over
// any record and only mirrors one identity's stage set from inbound syncs.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/gamestages/internal/event"
	"github.com/louisbranch/gamestages/internal/gateway"
	platformgrpc "github.com/louisbranch/gamestages/internal/platform/grpc"
	"github.com/louisbranch/gamestages/internal/propagation"
	"github.com/louisbranch/gamestages/internal/stage"
	"github.com/louisbranch/gamestages/internal/storage"
	"github.com/louisbranch/gamestages/internal/storage/memory"
)

// Options configure the observer.
type Options struct {
	// RedisAddr is the propagation transport address.
	RedisAddr string
	// Instance namespaces the propagation channel.
	Instance string
	// WatchKind and WatchKey select whose snapshots populate the local cache.
	WatchKind string
	WatchKey  string
	// HealthAddr is the gRPC health listen address.
	HealthAddr string
}

// Server is a wired observer.
type Server struct {
	cache      *memory.Cache
	gateway    *gateway.Gateway
	subscriber *propagation.Subscriber
	watchKind  string
	watchKey   string
	health     string
}

// New wires the observer from its options.
func New(opts Options) (*Server, error) {
	if opts.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if opts.WatchKey == "" {
		return nil, fmt.Errorf("watch key is required")
	}
	watchKind := strings.TrimSpace(opts.WatchKind)
	if watchKind == "" {
		watchKind = string(stage.KindPersistent)
	}

	instance := strings.TrimSpace(opts.Instance)
	if instance == "" {
		instance = "default"
	}
	subscriber, err := propagation.NewSubscriber(&redis.Options{Addr: opts.RedisAddr}, instance)
	if err != nil {
		return nil, fmt.Errorf("connect stage propagation: %w", err)
	}

	cache := memory.NewCache()
	gw := gateway.New(storage.NewObserverResolver(cache), event.NewBus())

	return &Server{
		cache:      cache,
		gateway:    gw,
		subscriber: subscriber,
		watchKind:  watchKind,
		watchKey:   opts.WatchKey,
		health:     opts.HealthAddr,
	}, nil
}

// Gateway returns the read-side gateway over the synced cache. Callers query
// it with the observer identity.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gateway
}

// Run applies inbound snapshots to the cache until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if err := s.subscriber.Close(); err != nil {
			log.Printf("close propagation subscriber: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subscription, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer subscription.Close()

	healthErr := make(chan error, 1)
	if s.health != "" {
		go func() {
			healthErr <- platformgrpc.ServeHealth(ctx, s.health, "gamestages.Observer")
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-healthErr:
			return err
		case err, ok := <-subscription.Errors:
			if !ok {
				return nil
			}
			log.Printf("stage sync: %v", err)
		case snapshot, ok := <-subscription.Snapshots:
			if !ok {
				return nil
			}
			if snapshot.IdentityKind != s.watchKind || snapshot.IdentityKey != s.watchKey {
				continue
			}
			s.cache.ReplaceAll(snapshot.StageNames())
			log.Printf("sync %s applied %d stages for %s", snapshot.SyncID, len(snapshot.Stages), s.watchKey)
		}
	}
}

// Run wires and serves an observer until ctx ends.
func Run(ctx context.Context, opts Options) error {
	server, err := New(opts)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}
