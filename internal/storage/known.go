package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/louisbranch/gamestages/internal/stage"
)

// KnownStages is the immutable registry of all stage names the system is
// aware of, loaded once at startup.
type KnownStages struct {
	names  map[stage.Name]struct{}
	sorted []stage.Name
}

// NewKnownStages builds a registry from the given names. Names that violate
// the stage grammar are logged and skipped, matching the registry's advisory
// role: it feeds autocomplete and validation, it never gates mutations.
func NewKnownStages(names []stage.Name) *KnownStages {
	k := &KnownStages{names: make(map[stage.Name]struct{}, len(names))}
	for _, name := range names {
		if !name.IsValid() {
			log.Printf("skipping invalid known stage %q", name)
			continue
		}
		if _, ok := k.names[name]; ok {
			continue
		}
		k.names[name] = struct{}{}
		k.sorted = append(k.sorted, name)
	}
	sort.Slice(k.sorted, func(i, j int) bool { return k.sorted[i] < k.sorted[j] })
	return k
}

// LoadKnownStages reads a JSON array of stage names from path.
func LoadKnownStages(path string) (*KnownStages, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read known stages: %w", err)
	}
	var names []stage.Name
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, fmt.Errorf("parse known stages: %w", err)
	}
	return NewKnownStages(names), nil
}

// Stages returns a sorted copy of every known stage name.
func (k *KnownStages) Stages() []stage.Name {
	if k == nil {
		return nil
	}
	out := make([]stage.Name, len(k.sorted))
	copy(out, k.sorted)
	return out
}

// IsKnown reports whether name is in the registry.
func (k *KnownStages) IsKnown(name stage.Name) bool {
	if k == nil {
		return false
	}
	_, ok := k.names[name]
	return ok
}

// Len returns the number of known stages.
func (k *KnownStages) Len() int {
	if k == nil {
		return 0
	}
	return len(k.sorted)
}
