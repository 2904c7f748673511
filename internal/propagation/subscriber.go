package propagation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Subscription delivers inbound stage snapshots. Snapshots arrive on a
// buffered channel; close the subscription or cancel its context when done.
type Subscription struct {
	Snapshots <-chan Snapshot
	Errors    <-chan error
	cancel    context.CancelFunc
}

// Close stops the subscription.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Subscriber receives stage snapshots for an instance.
type Subscriber struct {
	rdb      *redis.Client
	instance string
}

// NewSubscriber creates a subscriber for the named instance.
func NewSubscriber(redisOpts *redis.Options, instance string) (*Subscriber, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	return &Subscriber{rdb: redis.NewClient(redisOpts), instance: instance}, nil
}

// Close closes the Redis connection.
func (s *Subscriber) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *Subscriber) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Subscribe starts listening on the instance's sync channel. Malformed
// payloads are reported on the error channel and skipped.
func (s *Subscriber) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, SyncChannel(s.instance))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to stage sync: %w", err)
	}

	snapshots := make(chan Snapshot, 16)
	errs := make(chan error, 16)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(snapshots)
		defer close(errs)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snapshot Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snapshot); err != nil {
					select {
					case errs <- fmt.Errorf("unmarshal stage snapshot: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case snapshots <- snapshot:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{Snapshots: snapshots, Errors: errs, cancel: cancel}, nil
}
