package render

import (
	"image/color"

	"github.com/cockroachdb/errors"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/model"
)

// Style holds the drawing constants of the network view. Colours are hex
// strings so the struct can be loaded from config as-is.
type Style struct {
	Background   string  `yaml:"background"`
	LinkColor    string  `yaml:"link_color"`
	LinkWidth    float64 `yaml:"link_width"`
	OutlineColor string  `yaml:"outline_color"`
	OutlineWidth float64 `yaml:"outline_width"`
	LabelColor   string  `yaml:"label_color"`
	FontSize     float64 `yaml:"font_size"`
	LabelOffset  r2.Vec  `yaml:"-"`

	// RadiusOffset is added to a node's val to get its drawn radius.
	RadiusOffset float64 `yaml:"radius_offset"`
	// LabelThreshold: nodes with val strictly above it are labelled.
	LabelThreshold float64 `yaml:"label_threshold"`
}

// DefaultStyle returns the dashboard's dark-theme drawing constants.
func DefaultStyle() Style {
	return Style{
		Background:     "#020617",
		LinkColor:      "#4b5563",
		LinkWidth:      1,
		OutlineColor:   "#ffffff",
		OutlineWidth:   1.5,
		LabelColor:     "#e5e7eb",
		FontSize:       10,
		LabelOffset:    r2.Vec{X: 12, Y: 4},
		RadiusOffset:   5,
		LabelThreshold: 7,
	}
}

// Validate checks that every colour parses.
func (s Style) Validate() error {
	for name, hex := range map[string]string{
		"background":    s.Background,
		"link_color":    s.LinkColor,
		"outline_color": s.OutlineColor,
		"label_color":   s.LabelColor,
	} {
		if _, err := ParseColor(hex); err != nil {
			return errors.Wrapf(err, "style %s", name)
		}
	}
	if s.LinkWidth < 0 || s.OutlineWidth < 0 {
		return errors.New("style stroke widths must be non-negative")
	}
	return nil
}

// ParseColor parses a "#rrggbb" or "#rgb" colour.
func ParseColor(hex string) (color.RGBA, error) {
	if len(hex) == 4 && hex[0] == '#' {
		hex = string([]byte{'#', hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(err, "parse colour %q", hex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// mustColor falls back to fallback when hex does not parse; node colours
// come from the backend and a bad one must not abort a frame.
func mustColor(hex string, fallback color.RGBA) color.RGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return fallback
	}
	return c
}

// palette is a Style with its colours parsed once per frame.
type palette struct {
	background, link, outline, label color.RGBA
	unknown                          color.RGBA
}

func (s Style) palette() palette {
	d := DefaultStyle()
	return palette{
		background: mustColor(s.Background, mustColor(d.Background, color.RGBA{A: 0xff})),
		link:       mustColor(s.LinkColor, mustColor(d.LinkColor, color.RGBA{A: 0xff})),
		outline:    mustColor(s.OutlineColor, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}),
		label:      mustColor(s.LabelColor, mustColor(d.LabelColor, color.RGBA{A: 0xff})),
		unknown:    mustColor(model.ColorUnknown, color.RGBA{A: 0xff}),
	}
}
