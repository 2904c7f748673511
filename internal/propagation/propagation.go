// Package propagation pushes stage record snapshots from the authority to
// observers over Redis pub/sub. Delivery is at-most-once: the publisher
// neither blocks on nor retries failed sends, and slow subscribers may drop
// messages.
package propagation

import (
	"fmt"

	"github.com/louisbranch/gamestages/internal/platform/id"
	"github.com/louisbranch/gamestages/internal/stage"
)

// Snapshot is the wire form of one identity's full stage set. SyncID is
// unique per broadcast so publisher and observer logs can be correlated.
type Snapshot struct {
	SyncID       string   `json:"sync_id"`
	IdentityKind string   `json:"identity_kind"`
	IdentityKey  string   `json:"identity_key"`
	Name         string   `json:"name,omitempty"`
	Stages       []string `json:"stages"`
}

// NewSnapshot builds the wire snapshot for an identity's current stage set.
func NewSnapshot(identity stage.Identity, stages []stage.Name) Snapshot {
	out := Snapshot{
		SyncID:       id.New(),
		IdentityKind: string(identity.Kind()),
		IdentityKey:  identity.Key(),
		Name:         identity.Name(),
		Stages:       make([]string, 0, len(stages)),
	}
	for _, name := range stages {
		out.Stages = append(out.Stages, string(name))
	}
	return out
}

// StageNames converts the snapshot's stage list back to domain names.
func (s Snapshot) StageNames() []stage.Name {
	out := make([]stage.Name, 0, len(s.Stages))
	for _, name := range s.Stages {
		out = append(out, stage.Name(name))
	}
	return out
}

// SyncChannel returns the pub/sub channel for an instance's stage syncs.
func SyncChannel(instance string) string {
	return fmt.Sprintf("gamestages:%s:stage_sync", instance)
}
