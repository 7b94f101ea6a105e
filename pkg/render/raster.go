package render

import (
	"image"
	"image/color"
	"io"
	"sync"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/cockroachdb/errors"

	"github.com/scamshield/syndicate/pkg/force"
)

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error
)

func labelFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, errors.Wrap(fontErr, "parse label font")
	}
	face, err := opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create label face")
	}
	return face, nil
}

// RasterSurface draws into an RGBA image.
type RasterSurface struct {
	dc    *gg.Context
	size  force.Size
	faces map[float64]font.Face
}

// NewRasterSurface returns a raster surface of the given pixel size.
func NewRasterSurface(width, height int) *RasterSurface {
	return &RasterSurface{
		dc:    gg.NewContext(width, height),
		size:  force.Size{Width: float64(width), Height: float64(height)},
		faces: make(map[float64]font.Face),
	}
}

func (r *RasterSurface) Size() force.Size { return r.size }

func (r *RasterSurface) Clear(bg color.Color) {
	r.dc.SetColor(bg)
	r.dc.Clear()
}

func (r *RasterSurface) Line(a, b r2.Vec, c color.Color, width float64) {
	r.dc.SetColor(c)
	r.dc.SetLineWidth(width)
	r.dc.DrawLine(a.X, a.Y, b.X, b.Y)
	r.dc.Stroke()
}

func (r *RasterSurface) Circle(center r2.Vec, radius float64, fill, stroke color.Color, strokeWidth float64) {
	r.dc.DrawCircle(center.X, center.Y, radius)
	r.dc.SetColor(fill)
	r.dc.FillPreserve()
	r.dc.SetColor(stroke)
	r.dc.SetLineWidth(strokeWidth)
	r.dc.Stroke()
}

// Text draws s with its baseline at at. Text is dropped when the label font
// cannot be loaded; the rest of the frame still renders.
func (r *RasterSurface) Text(at r2.Vec, s string, c color.Color, size float64) {
	face, ok := r.faces[size]
	if !ok {
		f, err := labelFace(size)
		if err != nil {
			return
		}
		face = f
		r.faces[size] = face
	}
	r.dc.SetFontFace(face)
	r.dc.SetColor(c)
	r.dc.DrawString(s, at.X, at.Y)
}

// Image returns the rendered image.
func (r *RasterSurface) Image() image.Image {
	return r.dc.Image()
}

// EncodePNG writes the rendered image as PNG.
func (r *RasterSurface) EncodePNG(w io.Writer) error {
	if err := r.dc.EncodePNG(w); err != nil {
		return errors.Wrap(err, "encode png")
	}
	return nil
}
