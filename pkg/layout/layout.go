// Package layout assigns 2D coordinates to graph nodes.
//
// Nodes are first placed evenly on a circle and then relaxed with an Eades
// spring embedder whose repulsion runs on gonum's Barnes-Hut plane. The result is written onto model.Node X/Y
// and stays authoritative until the graph is rebuilt.
package layout

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/cograph/pkg/debug"
	"github.com/vanderheijden86/cograph/pkg/metrics"
	"github.com/vanderheijden86/cograph/pkg/model"
)

// Options configures a layout run. Zero fields take the defaults below.
type Options struct {
	Iterations int     `yaml:"iterations" toml:"iterations"`
	Repulsion  float64 `yaml:"repulsion" toml:"repulsion"`
	Rate       float64 `yaml:"rate" toml:"rate"`
	Theta      float64 `yaml:"theta" toml:"theta"`
	Seed       uint64  `yaml:"seed" toml:"seed"`
	// Radius of the initial circle per node.
	Spacing float64 `yaml:"spacing" toml:"spacing"`
}

const (
	DefaultIterations = 500
	DefaultRepulsion  = 1
	DefaultRate       = 0.05
	DefaultTheta      = 0.2
	DefaultSpacing    = 0.1
)

// DefaultOptions returns the stock layout parameters.
func DefaultOptions() Options {
	return Options{
		Iterations: DefaultIterations,
		Repulsion:  DefaultRepulsion,
		Rate:       DefaultRate,
		Theta:      DefaultTheta,
		Spacing:    DefaultSpacing,
		Seed:       1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Iterations <= 0 {
		o.Iterations = d.Iterations
	}
	if o.Repulsion <= 0 {
		o.Repulsion = d.Repulsion
	}
	if o.Rate <= 0 {
		o.Rate = d.Rate
	}
	if o.Theta <= 0 {
		o.Theta = d.Theta
	}
	if o.Spacing <= 0 {
		o.Spacing = d.Spacing
	}
	return o
}

// Assign computes coordinates for every node of g in place.
func Assign(g *model.Graph, opts Options) {
	defer metrics.Timer(metrics.LayoutCompute)()
	defer debug.LogEnterExit("layout.Assign")()
	opts = opts.withDefaults()

	nodes := g.Nodes()
	switch len(nodes) {
	case 0:
		return
	case 1:
		nodes[0].X, nodes[0].Y = 0, 0
		return
	}

	seed := Circle(g, opts.Spacing)
	f := newForces(g, seed, opts)
	steps := 0
	for steps < opts.Iterations && f.step() {
		steps++
	}

	for i, n := range nodes {
		v := f.particles[i].Coord2()
		if !finite(v) {
			debug.Log("layout: non-finite position for %s, keeping circular seed", n.ID)
			v = seed[i]
		}
		n.X, n.Y = v.X, v.Y
	}
	debug.Log("layout: %d nodes after %d updates", len(nodes), steps)
}

// forces runs Eades' spring embedder over a Barnes-Hut plane, starting
// from the circular placement. Adjacent nodes attract with log(d) and every
// pair repels with inverse-square force.
type forces struct {
	opts      Options
	particles []barneshut.Particle2
	net       []r2.Vec
	pairs     [][2]int
}

func newForces(g *model.Graph, seed []r2.Vec, opts Options) *forces {
	f := &forces{
		opts:      opts,
		particles: make([]barneshut.Particle2, len(seed)),
		net:       make([]r2.Vec, len(seed)),
	}

	// Seeded jitter breaks the symmetry of the circle.
	rnd := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	jitter := opts.Spacing * 1e-3
	for i, v := range seed {
		v.X += jitter * (rnd.Float64() - 0.5)
		v.Y += jitter * (rnd.Float64() - 0.5)
		f.particles[i] = particle{pos: v}
	}

	seen := make(map[[2]int]bool)
	for _, e := range g.Edges() {
		a, b := g.IndexOf(e.Source), g.IndexOf(e.Target)
		if a < 0 || b < 0 || a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		if seen[[2]int{a, b}] {
			continue
		}
		seen[[2]int{a, b}] = true
		f.pairs = append(f.pairs, [2]int{a, b})
	}
	return f
}

// step moves every particle once and reports whether anything moved.
func (f *forces) step() bool {
	plane, err := barneshut.NewPlane(f.particles)
	if err != nil {
		debug.Log("layout: %v", err)
		return false
	}

	var moved bool
	for i, p := range f.particles {
		v := r2.Scale(-f.opts.Repulsion, plane.ForceOn(p, f.opts.Theta, barneshut.Gravity2))
		if r2.Norm(v) > 1e-12 {
			moved = true
		}
		f.net[i] = v
	}

	for _, pr := range f.pairs {
		x, y := pr[0], pr[1]
		d := r2.Sub(f.particles[y].Coord2(), f.particles[x].Coord2())
		dist := r2.Norm(d)
		if dist == 0 {
			continue
		}
		v := r2.Scale(math.Log(dist), d)
		if !finite(v) {
			return false
		}
		if r2.Norm(v) > 1e-12 {
			moved = true
		}
		f.net[x] = r2.Add(f.net[x], v)
		f.net[y] = r2.Sub(f.net[y], v)
	}
	if !moved {
		return false
	}

	for i, v := range f.net {
		p := f.particles[i].(particle)
		p.pos = r2.Add(p.pos, r2.Scale(f.opts.Rate, v))
		f.particles[i] = p
	}
	return true
}

type particle struct {
	pos r2.Vec
}

func (p particle) Coord2() r2.Vec { return p.pos }
func (p particle) Mass() float64  { return 1 }

// Circle places the nodes of g evenly on a circle in insertion order and
// returns the positions indexed like g.Nodes(). The radius grows with the
// node count so that neighbours on the circle stay roughly spacing apart.
func Circle(g *model.Graph, spacing float64) []r2.Vec {
	nodes := g.Nodes()
	out := make([]r2.Vec, len(nodes))
	if len(nodes) == 0 {
		return out
	}
	radius := spacing * float64(len(nodes)) / (2 * math.Pi)
	if radius <= 0 {
		radius = 1
	}
	for i, n := range nodes {
		theta := 2 * math.Pi * float64(i) / float64(len(nodes))
		out[i] = r2.Vec{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)}
		n.X, n.Y = out[i].X, out[i].Y
	}
	return out
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Bounds returns the bounding box of the current coordinates.
func Bounds(g *model.Graph) (minX, minY, maxX, maxY float64) {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.X)
		maxY = math.Max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY
}
