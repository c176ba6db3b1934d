package layout_test

import (
	"math"
	"testing"

	"github.com/vanderheijden86/cograph/pkg/builder"
	"github.com/vanderheijden86/cograph/pkg/layout"
	"github.com/vanderheijden86/cograph/pkg/model"
	"github.com/vanderheijden86/cograph/pkg/testutil"
)

func build(t *testing.T, recs ...model.EdgeRecord) *model.Graph {
	t.Helper()
	g, _, err := builder.Build(testutil.BatchOf(recs...), builder.DefaultStyle())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestAssign_EmptyGraph(t *testing.T) {
	layout.Assign(model.NewGraph(), layout.Options{})
}

func TestAssign_SingleNodeAtOrigin(t *testing.T) {
	g := build(t, testutil.Edge("A", "A", 1))
	g.Node("A").X, g.Node("A").Y = 5, 5
	layout.Assign(g, layout.Options{})
	if n := g.Node("A"); n.X != 0 || n.Y != 0 {
		t.Errorf("expected origin, got (%v,%v)", n.X, n.Y)
	}
}

func TestCircle_EvenPlacement(t *testing.T) {
	g := build(t, testutil.Edge("A", "B", 1), testutil.Edge("C", "D", 1))
	pos := layout.Circle(g, 1)
	if len(pos) != 4 {
		t.Fatalf("expected 4 positions, got %d", len(pos))
	}
	r := math.Hypot(pos[0].X, pos[0].Y)
	for i, p := range pos {
		if d := math.Hypot(p.X, p.Y); math.Abs(d-r) > 1e-9 {
			t.Errorf("node %d off the circle: %v vs %v", i, d, r)
		}
	}
	if g.Node("A").X != pos[0].X {
		t.Error("Circle should write coordinates onto nodes")
	}
}

func TestAssign_FiniteAndDistinct(t *testing.T) {
	g, _, err := builder.Build(testutil.QuickBarbell(4), builder.DefaultStyle())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	layout.Assign(g, layout.Options{Iterations: 50, Seed: 3})

	seen := make(map[[2]float64]string)
	for _, n := range g.Nodes() {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsInf(n.X, 0) || math.IsInf(n.Y, 0) {
			t.Fatalf("node %s has non-finite position (%v,%v)", n.ID, n.X, n.Y)
		}
		key := [2]float64{n.X, n.Y}
		if other, dup := seen[key]; dup {
			t.Errorf("nodes %s and %s share a position", other, n.ID)
		}
		seen[key] = n.ID
	}
}

func TestAssign_SelfLoopsTolerated(t *testing.T) {
	g := build(t, testutil.Edge("A", "A", 1), testutil.Edge("A", "B", 2), testutil.Edge("B", "B", 3))
	layout.Assign(g, layout.Options{Iterations: 20})
	for _, n := range g.Nodes() {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) {
			t.Fatalf("node %s has NaN position", n.ID)
		}
	}
}

func TestAssign_DeterministicForSeed(t *testing.T) {
	run := func() []float64 {
		g, _, err := builder.Build(testutil.QuickStar(6), builder.DefaultStyle())
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		layout.Assign(g, layout.Options{Iterations: 30, Seed: 9})
		var out []float64
		for _, n := range g.Nodes() {
			out = append(out, n.X, n.Y)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("coordinate %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestBounds(t *testing.T) {
	g := build(t, testutil.Edge("A", "B", 1))
	g.Node("A").X, g.Node("A").Y = -1, 2
	g.Node("B").X, g.Node("B").Y = 3, -4
	minX, minY, maxX, maxY := layout.Bounds(g)
	if minX != -1 || minY != -4 || maxX != 3 || maxY != 2 {
		t.Errorf("unexpected bounds (%v,%v)-(%v,%v)", minX, minY, maxX, maxY)
	}
}

func TestAssign_TwoNodesDefaultOptions(t *testing.T) {
	g := build(t, testutil.Edge("A", "B", 1))
	layout.Assign(g, layout.DefaultOptions())

	a, b := g.Node("A"), g.Node("B")
	for _, n := range []*model.Node{a, b} {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsInf(n.X, 0) || math.IsInf(n.Y, 0) {
			t.Fatalf("node %s has non-finite position (%v,%v)", n.ID, n.X, n.Y)
		}
	}
	if a.X == b.X && a.Y == b.Y {
		t.Error("connected nodes collapsed onto one position")
	}
}

func TestAssign_MovesOffCircle(t *testing.T) {
	g, _, err := builder.Build(testutil.QuickStar(6), builder.DefaultStyle())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	seed := layout.Circle(g, layout.DefaultSpacing)
	layout.Assign(g, layout.Options{Iterations: 20})

	moved := false
	for i, n := range g.Nodes() {
		if n.X != seed[i].X || n.Y != seed[i].Y {
			moved = true
		}
	}
	if !moved {
		t.Error("expected the force pass to move nodes off the circular seed")
	}
}
