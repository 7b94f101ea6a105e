package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/force"
)

// SVGSurface streams drawing calls as SVG elements. Coordinates are rounded
// to whole units. Call End once the frame is drawn.
type SVGSurface struct {
	canvas *svg.SVG
	size   force.Size
	ended  bool
}

// NewSVGSurface starts an SVG document of the given size on w.
func NewSVGSurface(w io.Writer, width, height int) *SVGSurface {
	canvas := svg.New(w)
	canvas.Start(width, height)
	return &SVGSurface{
		canvas: canvas,
		size:   force.Size{Width: float64(width), Height: float64(height)},
	}
}

func (s *SVGSurface) Size() force.Size { return s.size }

func (s *SVGSurface) Clear(bg color.Color) {
	s.canvas.Rect(0, 0, int(s.size.Width), int(s.size.Height), "fill:"+hexOf(bg))
}

func (s *SVGSurface) Line(a, b r2.Vec, c color.Color, width float64) {
	s.canvas.Line(round(a.X), round(a.Y), round(b.X), round(b.Y),
		fmt.Sprintf("stroke:%s;stroke-width:%g", hexOf(c), width))
}

func (s *SVGSurface) Circle(center r2.Vec, radius float64, fill, stroke color.Color, strokeWidth float64) {
	s.canvas.Circle(round(center.X), round(center.Y), round(radius),
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g", hexOf(fill), hexOf(stroke), strokeWidth))
}

func (s *SVGSurface) Text(at r2.Vec, text string, c color.Color, size float64) {
	s.canvas.Text(round(at.X), round(at.Y), text,
		fmt.Sprintf("fill:%s;font-size:%gpx;font-family:sans-serif", hexOf(c), size))
}

// End closes the SVG document. It is safe to call more than once.
func (s *SVGSurface) End() {
	if s.ended {
		return
	}
	s.ended = true
	s.canvas.End()
}

func round(v float64) int {
	return int(math.Round(v))
}

func hexOf(c color.Color) string {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return "none"
	}
	return cf.Hex()
}
