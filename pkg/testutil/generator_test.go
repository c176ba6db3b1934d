package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/cograph/pkg/loader"
)

func TestChain(t *testing.T) {
	gf := NewDefault().Chain(5)
	if len(gf.Nodes) != 5 || len(gf.Edges) != 4 {
		t.Fatalf("expected 5 nodes and 4 edges, got %d and %d", len(gf.Nodes), len(gf.Edges))
	}
	for i, e := range gf.Edges {
		if e.From != i || e.To != i+1 {
			t.Errorf("edge %d: expected %d->%d, got %d->%d", i, i, i+1, e.From, e.To)
		}
		if e.Weight < 1 || e.Weight > 10 {
			t.Errorf("edge %d: weight %v out of range", i, e.Weight)
		}
	}
}

func TestStarAndCycle(t *testing.T) {
	g := NewDefault()
	if star := g.Star(4); len(star.Edges) != 4 || len(star.Nodes) != 5 {
		t.Errorf("unexpected star shape: %d nodes %d edges", len(star.Nodes), len(star.Edges))
	}
	if cyc := g.Cycle(4); len(cyc.Edges) != 4 {
		t.Errorf("expected 4 cycle edges, got %d", len(cyc.Edges))
	}
	if cyc := g.Cycle(2); len(cyc.Edges) != 1 {
		t.Errorf("a 2-cycle collapses to one undirected edge, got %d", len(cyc.Edges))
	}
}

func TestCompleteAndBarbell(t *testing.T) {
	g := NewDefault()
	if k := g.Complete(5); len(k.Edges) != 10 {
		t.Errorf("expected 10 edges in K5, got %d", len(k.Edges))
	}
	if b := g.Barbell(4); len(b.Nodes) != 8 || len(b.Edges) != 13 {
		t.Errorf("expected 8 nodes and 13 edges, got %d and %d", len(b.Nodes), len(b.Edges))
	}
}

func TestDeterminism(t *testing.T) {
	a := New(GeneratorConfig{Seed: 7}).Random(20, 0.3)
	b := New(GeneratorConfig{Seed: 7}).Random(20, 0.3)
	if len(a.Edges) != len(b.Edges) {
		t.Fatalf("same seed produced %d vs %d edges", len(a.Edges), len(b.Edges))
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Fatalf("edge %d differs: %+v vs %+v", i, a.Edges[i], b.Edges[i])
		}
	}
}

func TestToCSVDecodes(t *testing.T) {
	gf := NewDefault().Chain(3)
	rows, err := loader.DecodeString(gf.ToCSV(), loader.DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	batch := loader.Normalize(loader.SourceMeta{Origin: "chain"}, rows)
	if batch.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", batch.Len())
	}
	if !strings.HasPrefix(gf.ToCSV(), "Source1,Source2,Weight\n") {
		t.Error("expected header row")
	}
}

func TestBatchOf(t *testing.T) {
	bad := Edge("A", "C", 0)
	bad.WeightValid = false
	b := BatchOf(Edge("A", "B", 3), bad, Edge("B", "C", 7))
	if b.MaxWeight != 7 || b.InvalidWeights != 1 || b.Len() != 3 {
		t.Errorf("unexpected batch: max=%v invalid=%d len=%d", b.MaxWeight, b.InvalidWeights, b.Len())
	}
}
