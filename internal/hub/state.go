package hub

import (
	"github.com/pscheid92/signboard/internal/dataset"
	"github.com/pscheid92/signboard/internal/registry"
)

// State is the mutable state shared by all hub invocations: who is connected
// and what the board looked like at the last reload. It is built once at
// startup and dropped on exit.
type State struct {
	Registry *registry.Registry
	Cache    *dataset.Cache
}

// NewState bundles an empty registry and a dirty cache.
func NewState(reg *registry.Registry, cache *dataset.Cache) *State {
	return &State{Registry: reg, Cache: cache}
}
