// Package force implements the force-directed layout behind the fraud
// network view: the simulation state, its seeding from a graph document,
// the per-frame physics step and the pointer interaction controller.
package force

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/model"
)

// Size is the canvas size in simulation units.
type Size struct {
	Width  float64
	Height float64
}

// DefaultSize is the reference canvas of the dashboard.
var DefaultSize = Size{Width: 1200, Height: 600}

// Center returns the midpoint of the canvas.
func (s Size) Center() r2.Vec {
	return r2.Vec{X: s.Width / 2, Y: s.Height / 2}
}

// Node is a simulation node: the document record plus kinematic state.
type Node struct {
	model.Node
	Pos r2.Vec
	Vel r2.Vec
}

// Link references its endpoints by node id. It is resolved on use; a link
// whose endpoint is missing is inert.
type Link struct {
	Source string
	Target string
}

// Transform maps simulation space to surface space:
// surface = sim*K + (X, Y).
type Transform struct {
	X, Y float64
	K    float64
}

// Identity is the transform that leaves coordinates unchanged.
var Identity = Transform{K: 1}

// Zoom limits for Transform.K.
const (
	MinZoom = 0.2
	MaxZoom = 5.0
)

// Apply maps a simulation point to surface coordinates.
func (t Transform) Apply(p r2.Vec) r2.Vec {
	return r2.Add(r2.Scale(t.scale(), p), r2.Vec{X: t.X, Y: t.Y})
}

// Invert maps a surface point back into simulation space.
func (t Transform) Invert(p r2.Vec) r2.Vec {
	return r2.Scale(1/t.scale(), r2.Sub(p, r2.Vec{X: t.X, Y: t.Y}))
}

// Scale returns the effective zoom factor.
func (t Transform) Scale() float64 { return t.scale() }

func (t Transform) scale() float64 {
	if t.K <= 0 {
		return 1
	}
	return t.K
}

// ZoomAbout changes the zoom by factor while keeping the surface point
// anchor fixed. The result is clamped to [MinZoom, MaxZoom].
func (t Transform) ZoomAbout(anchor r2.Vec, factor float64) Transform {
	k := t.scale() * factor
	if k < MinZoom {
		k = MinZoom
	}
	if k > MaxZoom {
		k = MaxZoom
	}
	world := t.Invert(anchor)
	return Transform{X: anchor.X - world.X*k, Y: anchor.Y - world.Y*k, K: k}
}

// State is the simulation state of one mounted graph view. It is owned by
// the loop driver and the interaction controller and must not be mutated
// concurrently.
type State struct {
	Nodes     []Node
	Links     []Link
	Transform Transform
	Size      Size

	index map[string]int
	drag  int
}

// NewState returns an empty state for a canvas of the given size.
func NewState(size Size) *State {
	return &State{
		Size:      size,
		Transform: Identity,
		index:     make(map[string]int),
		drag:      -1,
	}
}

// Empty reports whether the state has no nodes to simulate.
func (s *State) Empty() bool {
	return s == nil || len(s.Nodes) == 0
}

// Lookup resolves a node id. The returned pointer is valid until the next
// Initialize.
func (s *State) Lookup(id string) (*Node, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.Nodes[i], true
}

// Resolve returns both endpoints of a link, or ok=false if either is
// missing.
func (s *State) Resolve(l Link) (src, dst *Node, ok bool) {
	src, ok = s.Lookup(l.Source)
	if !ok {
		return nil, nil, false
	}
	dst, ok = s.Lookup(l.Target)
	if !ok {
		return nil, nil, false
	}
	return src, dst, true
}

// Dragged returns the node currently pinned to the pointer, if any.
func (s *State) Dragged() (*Node, bool) {
	if s == nil || s.drag < 0 || s.drag >= len(s.Nodes) {
		return nil, false
	}
	return &s.Nodes[s.drag], true
}

// DraggingID returns the id of the dragged node, or "" when none is.
func (s *State) DraggingID() string {
	if n, ok := s.Dragged(); ok {
		return n.ID
	}
	return ""
}

// IsDragged reports whether node i is the pinned node.
func (s *State) IsDragged(i int) bool {
	return s.drag >= 0 && s.drag == i
}

func (s *State) setDrag(i int) { s.drag = i }

func (s *State) clearDrag() { s.drag = -1 }

func (s *State) add(n Node) bool {
	if _, dup := s.index[n.ID]; dup {
		return false
	}
	s.index[n.ID] = len(s.Nodes)
	s.Nodes = append(s.Nodes, n)
	return true
}

// Clone returns a deep copy of s, including the drag target.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := &State{
		Nodes:     make([]Node, len(s.Nodes)),
		Links:     append([]Link(nil), s.Links...),
		Transform: s.Transform,
		Size:      s.Size,
		index:     make(map[string]int, len(s.index)),
		drag:      s.drag,
	}
	for i, n := range s.Nodes {
		n.Node = n.Node.Clone()
		c.Nodes[i] = n
	}
	for id, i := range s.index {
		c.index[id] = i
	}
	return c
}
