package force

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultHitRadius is the pick radius around a node centre, in surface units.
const DefaultHitRadius = 20.0

// Controller turns pointer events into drag and inspect gestures on a
// simulation state. It keeps no state of its own beyond configuration; the
// drag target lives in the State.
type Controller struct {
	// Origin is the surface's top-left corner in client coordinates.
	Origin r2.Vec
	// HitRadius is compared as a squared distance with strict inequality.
	HitRadius float64
	// OnNodeClick is invoked synchronously with the picked node on
	// pointer-down. Click-to-inspect and drag-start are the same gesture.
	OnNodeClick func(Node)
}

// NewController returns a controller with the default hit radius.
func NewController(onNodeClick func(Node)) *Controller {
	return &Controller{HitRadius: DefaultHitRadius, OnNodeClick: onNodeClick}
}

// ToSurface converts client coordinates to surface-local coordinates.
func (c *Controller) ToSurface(client r2.Vec) r2.Vec {
	return r2.Sub(client, c.Origin)
}

// toSim converts client coordinates into simulation space.
func (c *Controller) toSim(s *State, client r2.Vec) r2.Vec {
	return s.Transform.Invert(c.ToSurface(client))
}

// HitTest returns the index of the first node, in insertion order, whose
// centre lies strictly within the hit radius of the surface point, or -1.
func (c *Controller) HitTest(s *State, surface r2.Vec) int {
	if s.Empty() {
		return -1
	}
	// The radius is in surface units; compare in surface space so zoom does
	// not change how forgiving picking feels.
	r := c.hitRadius()
	limit := r * r
	for i := range s.Nodes {
		p := s.Transform.Apply(s.Nodes[i].Pos)
		if r2.Norm2(r2.Sub(p, surface)) < limit {
			return i
		}
	}
	return -1
}

func (c *Controller) hitRadius() float64 {
	if c.HitRadius <= 0 {
		return DefaultHitRadius
	}
	return c.HitRadius
}

// PointerDown picks the node under the pointer. On a hit the node becomes
// the drag target (replacing any previous one) and OnNodeClick is called.
// A miss changes nothing.
func (c *Controller) PointerDown(s *State, client r2.Vec) bool {
	if !finite(client) {
		return false
	}
	i := c.HitTest(s, c.ToSurface(client))
	if i < 0 {
		return false
	}
	s.setDrag(i)
	if c.OnNodeClick != nil {
		c.OnNodeClick(s.Nodes[i])
	}
	return true
}

// PointerMove pins the dragged node, if any, to the pointer and zeroes its
// velocity so it comes to rest the moment the drag ends.
func (c *Controller) PointerMove(s *State, client r2.Vec) {
	n, ok := s.Dragged()
	if !ok || !finite(client) {
		return
	}
	p := c.toSim(s, client)
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return
	}
	n.Pos = p
	n.Vel = r2.Vec{}
}

// PointerUp releases the drag target; physics resumes on the next frame.
func (c *Controller) PointerUp(s *State) {
	if s != nil {
		s.clearDrag()
	}
}

// PointerLeave behaves like PointerUp.
func (c *Controller) PointerLeave(s *State) {
	c.PointerUp(s)
}
