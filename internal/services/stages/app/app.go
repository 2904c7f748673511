// Package app wires the stage authority: durable storage, the event bus with
// policy and journal listeners, outbound propagation, and the MCP tool
// surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/gamestages/internal/event"
	"github.com/louisbranch/gamestages/internal/gateway"
	"github.com/louisbranch/gamestages/internal/journal"
	platformgrpc "github.com/louisbranch/gamestages/internal/platform/grpc"
	"github.com/louisbranch/gamestages/internal/policy"
	"github.com/louisbranch/gamestages/internal/propagation"
	stagemcp "github.com/louisbranch/gamestages/internal/services/stages/mcp"
	"github.com/louisbranch/gamestages/internal/storage"
	"github.com/louisbranch/gamestages/internal/storage/sqlite"
)

// Options configure the stage authority.
type Options struct {
	// StoragePath is the SQLite database file for stage records and the
	// journal.
	StoragePath string
	// KnownStagesPath optionally points at a JSON array of registered stage
	// names.
	KnownStagesPath string
	// PolicyDir optionally points at a directory of Lua policy scripts.
	PolicyDir string
	// RedisAddr optionally enables snapshot propagation to observers.
	RedisAddr string
	// Instance namespaces the propagation channel.
	Instance string
	// HealthAddr is the gRPC health listen address.
	HealthAddr string
}

// Server is a fully wired stage authority.
type Server struct {
	store     *sqlite.Store
	publisher *propagation.Publisher
	mcpServer *stagemcp.Server
	health    string
}

// New wires the authority from its options.
func New(opts Options) (*Server, error) {
	store, err := sqlite.Open(opts.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stage storage: %w", err)
	}

	known := storage.NewKnownStages(nil)
	if opts.KnownStagesPath != "" {
		known, err = storage.LoadKnownStages(opts.KnownStagesPath)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Printf("loaded %d known stages", known.Len())
	}

	bus := event.NewBus()
	if opts.PolicyDir != "" {
		engine, err := policy.LoadDir(opts.PolicyDir)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		engine.Attach(bus)
		log.Printf("loaded %d policy scripts", engine.Len())
	}
	journal.NewRecorder(store).Attach(bus)

	gatewayOpts := []gateway.Option{}
	var publisher *propagation.Publisher
	if opts.RedisAddr != "" {
		instance := strings.TrimSpace(opts.Instance)
		if instance == "" {
			instance = "default"
		}
		publisher, err = propagation.NewPublisher(&redis.Options{Addr: opts.RedisAddr}, instance)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect stage propagation: %w", err)
		}
		gatewayOpts = append(gatewayOpts, gateway.WithPropagator(publisher))
	}

	gw := gateway.New(storage.NewAuthorityResolver(store), bus, gatewayOpts...)

	return &Server{
		store:     store,
		publisher: publisher,
		mcpServer: stagemcp.New(gw, known, store),
		health:    opts.HealthAddr,
	}, nil
}

// Run serves the MCP tool surface over stdio alongside the gRPC health
// endpoint until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	healthErr := make(chan error, 1)
	if s.health != "" {
		go func() {
			healthErr <- platformgrpc.ServeHealth(ctx, s.health, "gamestages.Stages")
		}()
	}

	mcpErr := make(chan error, 1)
	go func() {
		mcpErr <- s.mcpServer.Run(ctx)
	}()

	select {
	case err := <-mcpErr:
		return ignoreCancel(err)
	case err := <-healthErr:
		if err != nil {
			return err
		}
		return ignoreCancel(<-mcpErr)
	}
}

// ignoreCancel treats context cancellation as a clean shutdown.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("close propagation publisher: %v", err)
		}
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close stage storage: %v", err)
	}
}

// Run wires and serves the authority until ctx ends.
func Run(ctx context.Context, opts Options) error {
	server, err := New(opts)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}
