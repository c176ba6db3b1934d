// Package interaction tracks hover focus for one view and derives the
// per-node and per-edge display overrides renderers apply on every redraw.
//
// The reducers are pure: they read the graph and a state snapshot and never
// write node or edge attributes.
package interaction

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/cograph/pkg/model"
)

// ErrUnknownNode is returned when hover targets a node not in the graph.
var ErrUnknownNode = errors.New("unknown node")

// State is Idle when no node is hovered and Focused otherwise. The zero
// value is Idle.
type State struct {
	hovered   string
	focused   bool
	neighbors map[string]struct{}
}

// Enter focuses id, snapshotting its current neighbours. An unknown id
// leaves the state unchanged.
func (s *State) Enter(g *model.Graph, id string) error {
	if g == nil || !g.HasNode(id) {
		return fmt.Errorf("hover %q: %w", id, ErrUnknownNode)
	}
	nbrs := g.Neighbors(id)
	set := make(map[string]struct{}, len(nbrs))
	for _, n := range nbrs {
		set[n] = struct{}{}
	}
	s.hovered = id
	s.focused = true
	s.neighbors = set
	return nil
}

// Leave returns to Idle.
func (s *State) Leave() {
	s.hovered = ""
	s.focused = false
	s.neighbors = nil
}

// Reset returns to Idle. It is called whenever the graph is rebuilt.
func (s *State) Reset() { s.Leave() }

// Hovered returns the focused node id.
func (s State) Hovered() (string, bool) {
	return s.hovered, s.focused
}

// Focused reports whether a node is hovered.
func (s State) Focused() bool { return s.focused }

// IsNeighbor reports whether id was adjacent to the hovered node when
// focus was entered.
func (s State) IsNeighbor(id string) bool {
	_, ok := s.neighbors[id]
	return ok
}

// Neighbors returns the number of snapshotted neighbours.
func (s State) Neighbors() int { return len(s.neighbors) }

// Snapshot returns a copy that later transitions of s do not affect.
func (s State) Snapshot() State {
	out := State{hovered: s.hovered, focused: s.focused}
	if s.neighbors != nil {
		out.neighbors = make(map[string]struct{}, len(s.neighbors))
		for k := range s.neighbors {
			out.neighbors[k] = struct{}{}
		}
	}
	return out
}

// visible reports whether id keeps its stored attributes under s.
func (s State) visible(id string) bool {
	if !s.focused || id == s.hovered {
		return true
	}
	return s.IsNeighbor(id)
}
