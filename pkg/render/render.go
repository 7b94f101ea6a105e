// Package render draws a force simulation state onto a 2D surface. The same
// drawing pass targets a raster image, an SVG document or a terminal cell
// grid through the Surface interface.
package render

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/force"
)

// Surface is a drawing target in surface coordinates.
type Surface interface {
	Size() force.Size
	Clear(bg color.Color)
	Line(a, b r2.Vec, c color.Color, width float64)
	Circle(center r2.Vec, radius float64, fill, stroke color.Color, strokeWidth float64)
	Text(at r2.Vec, s string, c color.Color, size float64)
}

// Renderer draws states onto one surface with a fixed style. It satisfies
// the loop driver's frame sink.
type Renderer struct {
	Surface Surface
	Style   Style
}

// NewRenderer returns a renderer for surf.
func NewRenderer(surf Surface, style Style) *Renderer {
	return &Renderer{Surface: surf, Style: style}
}

// Render draws s onto the renderer's surface.
func (r *Renderer) Render(s *force.State) {
	Render(s, r.Surface, r.Style)
}

// Render clears surf and draws links, then nodes, then labels. Links with
// an unresolved endpoint are skipped. It never mutates s.
func Render(s *force.State, surf Surface, st Style) {
	pal := st.palette()
	surf.Clear(pal.background)
	if s.Empty() {
		return
	}
	tr := s.Transform
	k := tr.Scale()

	for _, l := range s.Links {
		src, dst, ok := s.Resolve(l)
		if !ok {
			continue
		}
		surf.Line(tr.Apply(src.Pos), tr.Apply(dst.Pos), pal.link, st.LinkWidth)
	}

	for i := range s.Nodes {
		n := &s.Nodes[i]
		fill := mustColor(n.Color, pal.unknown)
		surf.Circle(tr.Apply(n.Pos), Radius(n, st)*k, fill, pal.outline, st.OutlineWidth)
	}

	for i := range s.Nodes {
		n := &s.Nodes[i]
		if !Labelled(n, st) {
			continue
		}
		at := r2.Add(tr.Apply(n.Pos), r2.Scale(k, st.LabelOffset))
		surf.Text(at, n.Label, pal.label, st.FontSize)
	}
}

// Radius returns the drawn radius of n in simulation units.
func Radius(n *force.Node, st Style) float64 {
	return n.Val + st.RadiusOffset
}

// Labelled reports whether n gets a text label: heavy nodes and every
// primary entity do, the rest stay unlabelled to keep dense graphs legible.
func Labelled(n *force.Node, st Style) bool {
	return n.Val > st.LabelThreshold || n.Type.IsPrimaryEntity()
}
