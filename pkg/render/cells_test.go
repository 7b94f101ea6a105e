package render

import (
	"image/color"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/model"
)

func plainRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(nil)
	r.SetColorProfile(termenv.Ascii)
	return r
}

func TestCellSurface_Mapping(t *testing.T) {
	s := NewCellSurface(plainRenderer(), force.DefaultSize, 120, 30)
	col, row, ok := s.CellAt(r2.Vec{X: 600, Y: 300})
	if !ok || col != 60 || row != 15 {
		t.Errorf("CellAt(centre) = %d,%d,%v", col, row, ok)
	}
	if _, _, ok := s.CellAt(r2.Vec{X: -1, Y: 0}); ok {
		t.Error("point left of surface mapped inside grid")
	}
	if _, _, ok := s.CellAt(r2.Vec{X: 1200, Y: 0}); ok {
		t.Error("right edge mapped inside grid")
	}
	p := s.PointAt(60, 15)
	if c, r, _ := s.CellAt(p); c != 60 || r != 15 {
		t.Errorf("PointAt round trip gave %d,%d", c, r)
	}
}

func TestCellSurface_PickRadiusReachesWholeCell(t *testing.T) {
	tests := []struct {
		name       string
		cols, rows int
	}{
		{"Wide", 120, 30},
		{"TallCells", 120, 10},
		{"Coarse", 40, 5},
		{"SingleCell", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewCellSurface(plainRenderer(), force.DefaultSize, tt.cols, tt.rows)
			r := s.PickRadius()
			cw := force.DefaultSize.Width / float64(tt.cols)
			ch := force.DefaultSize.Height / float64(tt.rows)
			for _, c := range [][2]int{{0, 0}, {tt.cols / 2, tt.rows / 2}, {tt.cols - 1, tt.rows - 1}} {
				centre := s.PointAt(c[0], c[1])
				x0, y0 := float64(c[0])*cw, float64(c[1])*ch
				for _, corner := range []r2.Vec{{X: x0, Y: y0}, {X: x0 + cw, Y: y0}, {X: x0, Y: y0 + ch}, {X: x0 + cw, Y: y0 + ch}} {
					if d := r2.Norm(r2.Sub(corner, centre)); d >= r {
						t.Errorf("cell %v: corner %v is %.2f from centre, radius %.2f", c, corner, d, r)
					}
				}
			}
		})
	}

	if r := NewCellSurface(plainRenderer(), force.DefaultSize, 0, 0).PickRadius(); r != 0 {
		t.Errorf("empty grid PickRadius = %v, want 0", r)
	}
}

func TestCellSurface_Draws(t *testing.T) {
	st := testState(
		[]model.Node{{ID: "c1", Label: "Case", Type: model.KindConversation, Val: 10}, {ID: "p", Type: "phone"}},
		[]model.Link{{Source: "c1", Target: "p"}},
		r2.Vec{X: 100, Y: 100}, r2.Vec{X: 1000, Y: 100},
	)
	s := NewCellSurface(plainRenderer(), force.DefaultSize, 120, 30)
	Render(st, s, DefaultStyle())

	if s.Rune(10, 5) != GlyphNode {
		t.Errorf("node glyph missing at 10,5: %q", s.Rune(10, 5))
	}
	if s.Rune(100, 5) != GlyphNode {
		t.Errorf("node glyph missing at 100,5: %q", s.Rune(100, 5))
	}
	if s.Rune(50, 5) != GlyphLink {
		t.Errorf("link glyph missing between nodes: %q", s.Rune(50, 5))
	}
	// label "Case" starts 12 units right and 4 down of node c1
	if got := string([]rune{s.Rune(11, 5), s.Rune(12, 5), s.Rune(13, 5), s.Rune(14, 5)}); got != "Case" {
		t.Errorf("label = %q", got)
	}

	lines := strings.Split(s.String(), "\n")
	if len(lines) != 30 {
		t.Fatalf("rendered %d lines, want 30", len(lines))
	}
	if w := lipgloss.Width(lines[5]); w != 120 {
		t.Errorf("line width = %d, want 120", w)
	}
}

func TestCellSurface_TextClipsAndWideRunes(t *testing.T) {
	s := NewCellSurface(plainRenderer(), force.Size{Width: 10, Height: 1}, 10, 1)
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	s.Text(r2.Vec{X: 6, Y: 0}, "abcdefgh", white, 10)
	if got := s.String(); got != "      abcd" {
		t.Errorf("clipped text = %q", got)
	}

	s.Clear(nil)
	s.Text(r2.Vec{X: 0, Y: 0}, "詐欺", white, 10)
	if got := s.String(); lipgloss.Width(got) != 10 || !strings.HasPrefix(got, "詐欺") {
		t.Errorf("wide text = %q (width %d)", got, lipgloss.Width(got))
	}
	s.Circle(r2.Vec{X: 1, Y: 0}, 0.1, white, white, 1)
	if got := s.String(); lipgloss.Width(got) != 10 {
		t.Errorf("overwriting half a wide rune broke the row: %q", got)
	}
}

func TestCellSurface_OffscreenIsClipped(t *testing.T) {
	s := NewCellSurface(plainRenderer(), force.DefaultSize, 40, 10)
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	s.Line(r2.Vec{X: -5000, Y: -5000}, r2.Vec{X: -4000, Y: -100}, white, 1)
	s.Circle(r2.Vec{X: 1e9, Y: 1e9}, 1e6, white, white, 1)
	if strings.TrimSpace(s.String()) != "" {
		t.Errorf("offscreen drawing leaked onto grid:\n%s", s.String())
	}

	s.Line(r2.Vec{X: -600, Y: 300}, r2.Vec{X: 1800, Y: 300}, white, 1)
	for col := 0; col < 40; col++ {
		if s.Rune(col, 5) != GlyphLink {
			t.Fatalf("clipped line missing cell %d", col)
		}
	}
}

func TestCellSurface_Resize(t *testing.T) {
	s := NewCellSurface(nil, force.DefaultSize, 10, 5)
	s.Resize(20, 4)
	if c, r := s.Grid(); c != 20 || r != 4 {
		t.Errorf("Grid() = %d,%d", c, r)
	}
	s.Resize(-1, -1)
	if s.String() != "" {
		t.Error("empty grid rendered content")
	}
}
