package force

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Tuning constants of the layout. They are empirical: changing them changes
// the look of the graph, not its correctness.
const (
	DefaultRepulsion       = 100.0 // k; pair force is k*k/dist
	DefaultRepulsionCutoff = 300.0
	DefaultRepulsionScale  = 0.05
	DefaultSpringLength    = 100.0
	DefaultSpringStiffness = 0.05
	DefaultGravity         = 0.01
	DefaultDamping         = 0.9
	DefaultMaxSpeed        = 1000.0

	// MinDistance floors pair distances so coincident nodes stay finite.
	MinDistance = 1.0
)

// Params holds the physics constants of one simulation. The zero value
// disables every force; use DefaultParams for the standard layout.
type Params struct {
	Repulsion       float64 `yaml:"repulsion"`
	RepulsionCutoff float64 `yaml:"repulsion_cutoff"`
	RepulsionScale  float64 `yaml:"repulsion_scale"`
	SpringLength    float64 `yaml:"spring_length"`
	SpringStiffness float64 `yaml:"spring_stiffness"`
	Gravity         float64 `yaml:"gravity"`
	Damping         float64 `yaml:"damping"`
	// MaxSpeed caps the per-frame displacement; 0 means uncapped.
	MaxSpeed float64 `yaml:"max_speed"`
}

// DefaultParams returns the standard layout constants.
func DefaultParams() Params {
	return Params{
		Repulsion:       DefaultRepulsion,
		RepulsionCutoff: DefaultRepulsionCutoff,
		RepulsionScale:  DefaultRepulsionScale,
		SpringLength:    DefaultSpringLength,
		SpringStiffness: DefaultSpringStiffness,
		Gravity:         DefaultGravity,
		Damping:         DefaultDamping,
		MaxSpeed:        DefaultMaxSpeed,
	}
}

// Step advances the simulation by one frame and returns s. Forces are
// applied in order: pairwise repulsion, spring attraction along resolvable
// links, centering gravity, then damping and integration of every node
// except the dragged one, whose velocity is held at zero.
func Step(s *State, p Params) *State {
	if s.Empty() {
		return s
	}
	applyRepulsion(s, p)
	applySprings(s, p)
	applyGravity(s, p)
	integrate(s, p)
	return s
}

// applyRepulsion is O(n²); fine for the tens to low hundreds of nodes the
// network view shows.
func applyRepulsion(s *State, p Params) {
	if p.Repulsion == 0 || p.RepulsionScale == 0 {
		return
	}
	k2 := p.Repulsion * p.Repulsion
	for i := 0; i < len(s.Nodes); i++ {
		a := &s.Nodes[i]
		for j := i + 1; j < len(s.Nodes); j++ {
			b := &s.Nodes[j]
			dir, dist := separation(a.Pos, b.Pos)
			if dist >= p.RepulsionCutoff {
				continue
			}
			f := r2.Scale(k2/dist*p.RepulsionScale, dir)
			a.Vel = r2.Add(a.Vel, f)
			b.Vel = r2.Sub(b.Vel, f)
		}
	}
}

func applySprings(s *State, p Params) {
	if p.SpringStiffness == 0 {
		return
	}
	for _, l := range s.Links {
		src, dst, ok := s.Resolve(l)
		if !ok || src == dst {
			continue
		}
		dir, dist := separation(dst.Pos, src.Pos)
		f := r2.Scale((dist-p.SpringLength)*p.SpringStiffness, dir)
		src.Vel = r2.Add(src.Vel, f)
		dst.Vel = r2.Sub(dst.Vel, f)
	}
}

// separation returns the unit vector from b to a and their distance floored
// to MinDistance. Coincident points separate along the x axis.
func separation(a, b r2.Vec) (dir r2.Vec, dist float64) {
	d := r2.Sub(a, b)
	raw := r2.Norm(d)
	if raw == 0 {
		return r2.Vec{X: 1}, MinDistance
	}
	return r2.Scale(1/raw, d), math.Max(raw, MinDistance)
}

func applyGravity(s *State, p Params) {
	if p.Gravity == 0 {
		return
	}
	c := s.Size.Center()
	for i := range s.Nodes {
		n := &s.Nodes[i]
		n.Vel = r2.Add(n.Vel, r2.Scale(p.Gravity, r2.Sub(c, n.Pos)))
	}
}

func integrate(s *State, p Params) {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if s.IsDragged(i) {
			n.Vel = r2.Vec{}
			continue
		}
		n.Vel = r2.Scale(p.Damping, n.Vel)
		if p.MaxSpeed > 0 {
			if speed := r2.Norm(n.Vel); speed > p.MaxSpeed {
				n.Vel = r2.Scale(p.MaxSpeed/speed, n.Vel)
			}
		}
		if !finite(n.Vel) {
			n.Vel = r2.Vec{}
		}
		n.Pos = r2.Add(n.Pos, n.Vel)
	}
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
