package analysis_test

import (
	"testing"
	"time"

	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/testutil"
)

func TestPartitionCache_HitReappliesLabels(t *testing.T) {
	g := build(t,
		testutil.Edge("A", "B", 1),
		testutil.Edge("B", "C", 1),
		testutil.Edge("D", "E", 1),
	)
	c := analysis.NewPartitionCache(time.Minute)
	cfg := analysis.DefaultCommunityConfig()

	first, cached, err := c.Detect(g, analysis.DefaultResolution, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Fatal("first detection reported as cached")
	}

	// Move to another resolution, then back.
	if _, _, err := c.Detect(g, analysis.DefaultResolution+5, cfg); err != nil {
		t.Fatal(err)
	}
	g.Node("A").Label = "scribbled"

	again, cached, err := c.Detect(g, analysis.DefaultResolution, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !cached {
		t.Fatal("expected a cache hit")
	}
	if again.Len() != first.Len() || again.Modularity != first.Modularity {
		t.Errorf("cached partition differs: %+v vs %+v", again, first)
	}
	want := analysis.CommunityLabel("A", first.Assignment["A"])
	if got := g.Node("A").Label; got != want {
		t.Errorf("label not reapplied: got %q want %q", got, want)
	}

	entries, hits, misses := c.Stats()
	if entries != 2 || hits != 1 || misses != 2 {
		t.Errorf("stats = %d entries, %d hits, %d misses", entries, hits, misses)
	}
}

func TestPartitionCache_GraphChangeInvalidates(t *testing.T) {
	c := analysis.NewPartitionCache(time.Minute)
	cfg := analysis.DefaultCommunityConfig()

	g1 := build(t, testutil.Edge("A", "B", 1), testutil.Edge("B", "C", 2))
	if _, _, err := c.Detect(g1, analysis.DefaultResolution, cfg); err != nil {
		t.Fatal(err)
	}
	if _, cached, _ := c.Detect(g1, analysis.DefaultResolution, cfg); !cached {
		t.Fatal("same graph must hit")
	}
	// Same nodes and edges, different relative weights.
	g2 := build(t, testutil.Edge("A", "B", 2), testutil.Edge("B", "C", 2))
	if analysis.GraphHash(g1, cfg) == analysis.GraphHash(g2, cfg) {
		t.Fatal("graphs with different edge sizes hash alike")
	}
	if _, cached, _ := c.Detect(g2, analysis.DefaultResolution, cfg); cached {
		t.Error("changed edge size must miss")
	}
	g3 := build(t, testutil.Edge("A", "B", 2), testutil.Edge("B", "D", 2))
	if _, cached, _ := c.Detect(g3, analysis.DefaultResolution, cfg); cached {
		t.Error("changed node set must miss")
	}
	if _, cached, _ := c.Detect(g2, analysis.DefaultResolution, analysis.CommunityConfig{Seed: 9}); cached {
		t.Error("changed seed must miss")
	}

	c.Invalidate()
	if entries, _, _ := c.Stats(); entries != 0 {
		t.Errorf("expected empty cache after Invalidate, got %d", entries)
	}
}

func TestPartitionCache_Expiry(t *testing.T) {
	c := analysis.NewPartitionCache(time.Nanosecond)
	g := build(t, testutil.Edge("A", "B", 1))
	cfg := analysis.DefaultCommunityConfig()

	if _, _, err := c.Detect(g, analysis.DefaultResolution, cfg); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, cached, _ := c.Detect(g, analysis.DefaultResolution, cfg); cached {
		t.Error("expired entry must miss")
	}
}

func TestPartitionCache_InvalidResolution(t *testing.T) {
	c := analysis.NewPartitionCache(0)
	g := build(t, testutil.Edge("A", "B", 1))
	if _, _, err := c.Detect(g, analysis.MaxResolution+1, analysis.DefaultCommunityConfig()); err == nil {
		t.Fatal("expected error")
	}
	if entries, _, _ := c.Stats(); entries != 0 {
		t.Errorf("failed detection cached: %d entries", entries)
	}
}

func TestGraphHash_Stable(t *testing.T) {
	cfg := analysis.DefaultCommunityConfig()
	a := build(t, testutil.Edge("A", "B", 1), testutil.Edge("B", "C", 2))
	b := build(t, testutil.Edge("A", "B", 1), testutil.Edge("B", "C", 2))
	if analysis.GraphHash(a, cfg) != analysis.GraphHash(b, cfg) {
		t.Error("equal graphs hash differently")
	}
	if analysis.GraphHash(nil, cfg) != "empty" {
		t.Error("nil graph should hash to empty")
	}
}
