package testutil

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cograph/pkg/model"
)

// AssertOrder verifies the expected number of nodes.
func AssertOrder(t testing.TB, g *model.Graph, expected int) {
	t.Helper()
	if g.Order() != expected {
		t.Errorf("expected %d nodes, got %d", expected, g.Order())
	}
}

// AssertSize verifies the expected number of edges.
func AssertSize(t testing.TB, g *model.Graph, expected int) {
	t.Helper()
	if g.Size() != expected {
		t.Errorf("expected %d edges, got %d", expected, g.Size())
	}
}

// AssertWellFormed verifies that every edge joins present nodes and that no
// unordered pair has more than one edge.
func AssertWellFormed(t testing.TB, g *model.Graph) {
	t.Helper()
	seen := make(map[model.PairKey]bool, g.Size())
	for _, e := range g.Edges() {
		if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
			t.Errorf("edge %s-%s references a missing node", e.Source, e.Target)
		}
		if seen[e.Key()] {
			t.Errorf("duplicate edge for pair %s-%s", e.Key().A, e.Key().B)
		}
		seen[e.Key()] = true
	}
}

// AssertNeighbors verifies the neighbour list of id.
func AssertNeighbors(t testing.TB, g *model.Graph, id string, expected ...string) {
	t.Helper()
	got := g.Neighbors(id)
	if len(got) != len(expected) {
		t.Errorf("neighbors of %s: expected %v, got %v", id, expected, got)
		return
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("neighbors of %s: expected %v, got %v", id, expected, got)
			return
		}
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t testing.TB, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// WriteCSV writes an edge-list fixture into dir and returns its path.
func WriteCSV(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
