package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/cograph/pkg/loader"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// BatchDiff describes how the edge set of a reload differs from the
// previous load. Edges are compared by unordered endpoint pair with the
// first occurrence winning, the same rule the graph builder applies.
type BatchDiff struct {
	// AddedEdges are pair keys present only in the new batch.
	AddedEdges []string
	// RemovedEdges are pair keys present only in the old batch.
	RemovedEdges []string
	// WeightChanges lists pairs present in both with a different weight.
	WeightChanges []WeightDifference
	// CountA and CountB are the distinct pair counts of old and new.
	CountA int
	CountB int
}

// WeightDifference is a weight change for one pair.
type WeightDifference struct {
	Pair    string  `json:"pair"`
	WeightA float64 `json:"weight_a"`
	WeightB float64 `json:"weight_b"`
}

// HasChanges reports whether the batches differ.
func (d BatchDiff) HasChanges() bool {
	return len(d.AddedEdges) > 0 || len(d.RemovedEdges) > 0 || len(d.WeightChanges) > 0
}

// Summary returns a one-line description of the difference.
func (d BatchDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("no changes (%d edges)", d.CountB)
	}
	parts := make([]string, 0, 3)
	if n := len(d.AddedEdges); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d edges", n))
	}
	if n := len(d.RemovedEdges); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d edges", n))
	}
	if n := len(d.WeightChanges); n > 0 {
		parts = append(parts, fmt.Sprintf("%d reweighted", n))
	}
	return fmt.Sprintf("%s (%d → %d edges)", strings.Join(parts, ", "), d.CountA, d.CountB)
}

// DiffBatches compares the edge sets of two batches. Result slices are
// sorted for stable output; max bounds each slice (0 = unlimited).
func DiffBatches(a, b loader.Batch, max int) BatchDiff {
	wa := pairWeights(a)
	wb := pairWeights(b)
	d := BatchDiff{CountA: len(wa), CountB: len(wb)}

	for k := range wa {
		if _, ok := wb[k]; !ok {
			d.RemovedEdges = append(d.RemovedEdges, k)
		}
	}
	for k, w := range wb {
		old, ok := wa[k]
		if !ok {
			d.AddedEdges = append(d.AddedEdges, k)
			continue
		}
		if old != w {
			d.WeightChanges = append(d.WeightChanges, WeightDifference{Pair: k, WeightA: old, WeightB: w})
		}
	}

	sort.Strings(d.AddedEdges)
	sort.Strings(d.RemovedEdges)
	sort.Slice(d.WeightChanges, func(i, j int) bool { return d.WeightChanges[i].Pair < d.WeightChanges[j].Pair })
	if max > 0 {
		d.AddedEdges = clip(d.AddedEdges, max)
		d.RemovedEdges = clip(d.RemovedEdges, max)
		if len(d.WeightChanges) > max {
			d.WeightChanges = d.WeightChanges[:max]
		}
	}
	return d
}

func pairWeights(b loader.Batch) map[string]float64 {
	out := make(map[string]float64, b.Len())
	for _, r := range b.Records {
		pk := model.MakePairKey(r.Source, r.Target)
		k := pk.A + " -- " + pk.B
		if _, seen := out[k]; seen {
			continue
		}
		out[k] = r.Weight
	}
	return out
}

func clip(xs []string, n int) []string {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}
