package propagation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/gamestages/internal/stage"
)

// Publisher broadcasts stage snapshots on the instance's sync channel. It
// satisfies the gateway's Propagator contract: Broadcast never returns an
// error and never retries, so a lost message simply waits for the next
// mutation's snapshot.
type Publisher struct {
	rdb      *redis.Client
	instance string
	logf     func(format string, args ...any)
}

// NewPublisher creates a publisher for the named instance.
func NewPublisher(redisOpts *redis.Options, instance string) (*Publisher, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	return &Publisher{
		rdb:      redis.NewClient(redisOpts),
		instance: instance,
		logf:     log.Printf,
	}, nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}

// Ping verifies Redis connectivity.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Broadcast publishes the identity's snapshot. Failures are logged and
// dropped.
func (p *Publisher) Broadcast(ctx context.Context, identity stage.Identity, stages []stage.Name) {
	payload, err := json.Marshal(NewSnapshot(identity, stages))
	if err != nil {
		p.logf("marshal stage snapshot for %s: %v", identity, err)
		return
	}
	if err := p.rdb.Publish(ctx, SyncChannel(p.instance), payload).Err(); err != nil {
		p.logf("publish stage snapshot for %s: %v", identity, err)
	}
}
