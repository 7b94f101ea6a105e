package render

import (
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/force"
)

// Glyphs used by the cell surface.
const (
	GlyphEmpty = ' '
	GlyphLink  = '·'
	GlyphNode  = '●'
	GlyphFill  = '█'
)

type cell struct {
	r  rune
	fg string
	// cont marks the right half of a double-width rune.
	cont bool
}

// CellSurface rasterizes drawing calls onto a terminal cell grid. A logical
// surface of Width×Height units is mapped onto Cols×Rows cells; strokes are
// one cell wide and node outlines are not drawn.
type CellSurface struct {
	renderer *lipgloss.Renderer
	logical  force.Size
	cols     int
	rows     int
	bg       string
	cells    []cell
}

// NewCellSurface returns a cell surface mapping the logical size onto a
// cols×rows grid. A nil renderer uses lipgloss's default renderer.
func NewCellSurface(r *lipgloss.Renderer, logical force.Size, cols, rows int) *CellSurface {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	s := &CellSurface{renderer: r, logical: logical}
	s.Resize(cols, rows)
	return s
}

// Resize changes the grid dimensions and clears it.
func (s *CellSurface) Resize(cols, rows int) {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	s.cols, s.rows = cols, rows
	s.cells = make([]cell, cols*rows)
	s.Clear(nil)
}

// Grid returns the grid dimensions.
func (s *CellSurface) Grid() (cols, rows int) { return s.cols, s.rows }

func (s *CellSurface) Size() force.Size { return s.logical }

// CellAt maps a surface point to its cell; ok is false outside the grid.
func (s *CellSurface) CellAt(p r2.Vec) (col, row int, ok bool) {
	if s.logical.Width <= 0 || s.logical.Height <= 0 {
		return 0, 0, false
	}
	col = int(math.Floor(p.X * float64(s.cols) / s.logical.Width))
	row = int(math.Floor(p.Y * float64(s.rows) / s.logical.Height))
	return col, row, col >= 0 && col < s.cols && row >= 0 && row < s.rows
}

// PointAt maps the centre of a cell back to surface coordinates.
func (s *CellSurface) PointAt(col, row int) r2.Vec {
	if s.cols == 0 || s.rows == 0 {
		return r2.Vec{}
	}
	return r2.Vec{
		X: (float64(col) + 0.5) * s.logical.Width / float64(s.cols),
		Y: (float64(row) + 0.5) * s.logical.Height / float64(s.rows),
	}
}

// pickSlack keeps a cell corner strictly inside PickRadius.
const pickSlack = 0.5

// PickRadius returns the smallest hit radius, in surface units, that reaches
// every point of a cell from the cell's centre.
func (s *CellSurface) PickRadius() float64 {
	if s.cols == 0 || s.rows == 0 {
		return 0
	}
	cw := s.logical.Width / float64(s.cols)
	ch := s.logical.Height / float64(s.rows)
	return math.Hypot(cw, ch)/2 + pickSlack
}

// Rune returns the glyph at a cell, or GlyphEmpty outside the grid.
func (s *CellSurface) Rune(col, row int) rune {
	if col < 0 || col >= s.cols || row < 0 || row >= s.rows {
		return GlyphEmpty
	}
	return s.cells[row*s.cols+col].r
}

func (s *CellSurface) Clear(bg color.Color) {
	if bg != nil {
		s.bg = hexOf(bg)
	}
	for i := range s.cells {
		s.cells[i] = cell{r: GlyphEmpty}
	}
}

func (s *CellSurface) set(col, row int, r rune, fg string) {
	if col < 0 || col >= s.cols || row < 0 || row >= s.rows {
		return
	}
	i := row*s.cols + col
	if s.cells[i].cont && col > 0 {
		s.cells[i-1] = cell{r: GlyphEmpty}
	}
	if col+1 < s.cols && s.cells[i+1].cont {
		s.cells[i+1] = cell{r: GlyphEmpty}
	}
	s.cells[i] = cell{r: r, fg: fg}
}

func (s *CellSurface) Line(a, b r2.Vec, c color.Color, _ float64) {
	a, b, ok := clipLine(a, b, s.logical)
	if !ok {
		return
	}
	x0, y0, _ := s.CellAt(a)
	x1, y1, _ := s.CellAt(b)
	fg := hexOf(c)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if s.Rune(x0, y0) == GlyphEmpty {
			s.set(x0, y0, GlyphLink, fg)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (s *CellSurface) Circle(center r2.Vec, radius float64, fill, _ color.Color, _ float64) {
	col, row, ok := s.CellAt(center)
	if !finite(center) || math.IsNaN(radius) || (!ok && radius <= 0) {
		return
	}
	fg := hexOf(fill)
	rc := radius * float64(s.cols) / s.logical.Width
	rr := radius * float64(s.rows) / s.logical.Height
	if rc < 1 || rr < 1 {
		s.set(col, row, GlyphNode, fg)
		return
	}
	r0, r1 := max(-int(rr), -row), min(int(rr), s.rows-1-row)
	c0, c1 := max(-int(rc), -col), min(int(rc), s.cols-1-col)
	for dr := r0; dr <= r1; dr++ {
		for dc := c0; dc <= c1; dc++ {
			x, y := float64(dc)/rc, float64(dr)/rr
			if x*x+y*y <= 1 {
				s.set(col+dc, row+dr, GlyphFill, fg)
			}
		}
	}
	s.set(col, row, GlyphNode, fg)
}

// Text writes s from the cell containing at, clipped at the right edge.
func (s *CellSurface) Text(at r2.Vec, text string, c color.Color, _ float64) {
	col, row, _ := s.CellAt(at)
	if !finite(at) || row < 0 || row >= s.rows {
		return
	}
	fg := hexOf(c)
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > s.cols {
			return
		}
		if col >= 0 {
			s.set(col, row, r, fg)
			if w == 2 {
				s.cells[row*s.cols+col+1] = cell{cont: true, fg: fg}
			}
		}
		col += w
	}
}

// String renders the grid, one line per row, styling runs of equal colour.
func (s *CellSurface) String() string {
	var b strings.Builder
	base := s.renderer.NewStyle()
	if s.bg != "" {
		base = base.Background(lipgloss.Color(s.bg))
	}
	for row := 0; row < s.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		runFg := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			st := base
			if runFg != "" {
				st = st.Foreground(lipgloss.Color(runFg))
			}
			b.WriteString(st.Render(run.String()))
			run.Reset()
		}
		for col := 0; col < s.cols; col++ {
			c := s.cells[row*s.cols+col]
			if c.cont {
				continue
			}
			if c.fg != runFg {
				flush()
				runFg = c.fg
			}
			run.WriteRune(c.r)
		}
		flush()
	}
	return b.String()
}

// clipLine clips segment ab to the surface rectangle (Liang-Barsky).
func clipLine(a, b r2.Vec, size force.Size) (r2.Vec, r2.Vec, bool) {
	if !finite(a) || !finite(b) {
		return a, b, false
	}
	d := r2.Sub(b, a)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-d.X, a.X},
		{d.X, size.Width - a.X},
		{-d.Y, a.Y},
		{d.Y, size.Height - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return a, b, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	// Keep endpoints strictly inside so they map to a valid cell.
	eps := 1e-9
	clamp := func(p r2.Vec) r2.Vec {
		return r2.Vec{
			X: math.Min(math.Max(p.X, 0), size.Width-eps),
			Y: math.Min(math.Max(p.Y, 0), size.Height-eps),
		}
	}
	return clamp(r2.Add(a, r2.Scale(t0, d))), clamp(r2.Add(a, r2.Scale(t1, d))), true
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
