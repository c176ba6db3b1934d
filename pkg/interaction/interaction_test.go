package interaction_test

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/cograph/pkg/builder"
	"github.com/vanderheijden86/cograph/pkg/interaction"
	"github.com/vanderheijden86/cograph/pkg/model"
	"github.com/vanderheijden86/cograph/pkg/testutil"
)

// fiveNodes is A-B, A-C, B-D, D-E: A's neighbours are B and C.
func fiveNodes(t *testing.T) *model.Graph {
	t.Helper()
	g, _, err := builder.Build(testutil.BatchOf(
		testutil.Edge("A", "B", 1),
		testutil.Edge("A", "C", 2),
		testutil.Edge("B", "D", 3),
		testutil.Edge("D", "E", 4),
	), builder.DefaultStyle())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestHover_MutesNonNeighboursAndHidesEdges(t *testing.T) {
	g := fiveNodes(t)
	var st interaction.State
	if err := st.Enter(g, "A"); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	s := interaction.NewStyler(g, st)

	for _, id := range []string{"A", "B", "C"} {
		d := s.NodeStyle(g.Node(id))
		if d.Muted || d.Label != id || d.Color != g.Node(id).Color {
			t.Errorf("%s should keep stored attributes, got %+v", id, d)
		}
	}
	if !s.NodeStyle(g.Node("A")).Hovered {
		t.Error("A should be marked hovered")
	}
	for _, id := range []string{"D", "E"} {
		d := s.NodeStyle(g.Node(id))
		if !d.Muted || d.Label != "" || d.Color != interaction.DefaultMutedColor {
			t.Errorf("%s should be muted, got %+v", id, d)
		}
	}

	hidden := 0
	for _, d := range s.Edges() {
		touches := d.Source == "A" || d.Target == "A"
		if d.Hidden == touches {
			t.Errorf("edge %s-%s: hidden=%v", d.Source, d.Target, d.Hidden)
		}
		if d.Hidden {
			hidden++
		}
	}
	if hidden != 2 {
		t.Errorf("expected 2 hidden edges, got %d", hidden)
	}

	st.Leave()
	s = interaction.NewStyler(g, st)
	for _, d := range s.Nodes() {
		n := g.Node(d.ID)
		if d.Muted || d.Label != n.Label || d.Color != n.Color {
			t.Errorf("%s not restored after leave: %+v", d.ID, d)
		}
	}
	for _, d := range s.Edges() {
		if d.Hidden {
			t.Errorf("edge %s-%s still hidden after leave", d.Source, d.Target)
		}
	}
}

func TestReducersNeverMutateGraph(t *testing.T) {
	g := fiveNodes(t)
	before := *g.Node("E")
	var st interaction.State
	_ = st.Enter(g, "A")
	interaction.NewStyler(g, st).Nodes()
	after := *g.Node("E")
	if before.Color != after.Color || before.Label != after.Label {
		t.Errorf("reducer mutated node: %+v -> %+v", before, after)
	}
}

func TestEnter_UnknownNodeLeavesStateUnchanged(t *testing.T) {
	g := fiveNodes(t)
	var st interaction.State
	_ = st.Enter(g, "A")
	err := st.Enter(g, "Z")
	if !errors.Is(err, interaction.ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if id, ok := st.Hovered(); !ok || id != "A" {
		t.Errorf("expected focus to stay on A, got %q %v", id, ok)
	}
}

func TestEnter_SnapshotsNeighbours(t *testing.T) {
	g := fiveNodes(t)
	var st interaction.State
	_ = st.Enter(g, "A")
	snap := st.Snapshot()
	_ = st.Enter(g, "E")
	if !snap.IsNeighbor("B") || snap.IsNeighbor("D") {
		t.Error("snapshot must keep A's neighbour set")
	}
	if !st.IsNeighbor("D") || st.IsNeighbor("B") {
		t.Error("re-entering must replace the neighbour set")
	}
}

func TestIdle_ReturnsStoredAttributes(t *testing.T) {
	g := fiveNodes(t)
	g.Node("B").Community = 0
	g.Node("B").CommunityColor = "#123456"
	s := interaction.NewStyler(g, interaction.State{})
	if d := s.NodeStyle(g.Node("B")); d.Color != "#123456" {
		t.Errorf("community colour should be displayed, got %s", d.Color)
	}
	if d := s.NodeStyle(g.Node("C")); d.Color != g.Node("C").Color {
		t.Errorf("unassigned node should keep its colour, got %s", d.Color)
	}
}

func TestReset(t *testing.T) {
	g := fiveNodes(t)
	var st interaction.State
	_ = st.Enter(g, "B")
	st.Reset()
	if st.Focused() || st.Neighbors() != 0 {
		t.Error("reset should return to idle")
	}
}
