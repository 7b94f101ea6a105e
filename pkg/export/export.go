// Package export renders a settled fraud-network layout to files: a PNG
// snapshot, an SVG and a layout JSON with final positions and network
// statistics.
package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/model"
	"github.com/scamshield/syndicate/pkg/render"
)

// DefaultFrames is the number of physics steps run before export.
const DefaultFrames = 300

// Format is an output format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatJSON Format = "json"
)

// AllFormats lists every supported format.
var AllFormats = []Format{FormatPNG, FormatSVG, FormatJSON}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatSVG, FormatJSON:
		return f, nil
	}
	return "", errors.Newf("unknown export format %q (want png, svg or json)", s)
}

// Options configures an export run
type Options struct {
	Name    string   // filename stem; "" = "syndicate"
	Dir     string   // output directory; "" = current directory
	Formats []Format // nil = AllFormats
	Frames  int      // 0 = DefaultFrames
	Seed    int64    // placement seed; the same seed gives the same layout
	Size    force.Size
	Params  force.Params
	Style   render.Style
	Now     func() time.Time // nil = time.Now
	Logger  *zap.SugaredLogger
}

func (o *Options) withDefaults() {
	if o.Name == "" {
		o.Name = "syndicate"
	}
	if len(o.Formats) == 0 {
		o.Formats = AllFormats
	}
	if o.Frames <= 0 {
		o.Frames = DefaultFrames
	}
	if o.Size.Width <= 0 || o.Size.Height <= 0 {
		o.Size = force.DefaultSize
	}
	if o.Params == (force.Params{}) {
		o.Params = force.DefaultParams()
	}
	if o.Style == (render.Style{}) {
		o.Style = render.DefaultStyle()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
}

// Filename builds an output filename.
// Format: {name}_{YYYYMMDD}_{HHMMSS}.{ext}
func Filename(name string, now time.Time, f Format) string {
	safe := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	safe = strings.ReplaceAll(safe, "/", "_")
	if safe == "" {
		safe = "syndicate"
	}
	return fmt.Sprintf("%s_%s.%s", safe, now.Format("20060102_150405"), f)
}

// Simulate seeds a state from doc and runs frames physics steps headlessly.
func Simulate(doc *model.GraphDocument, size force.Size, p force.Params, seed int64, frames int) *force.State {
	s := force.Initialize(doc, size, force.NewSeededRandom(seed))
	for i := 0; i < frames && !s.Empty(); i++ {
		force.Step(s, p)
	}
	return s
}

func surfaceDims(size force.Size) (int, int) {
	return int(math.Ceil(size.Width)), int(math.Ceil(size.Height))
}

// RenderPNG draws s with the raster surface and encodes it as PNG.
func RenderPNG(w io.Writer, s *force.State, st render.Style) error {
	width, height := surfaceDims(s.Size)
	surf := render.NewRasterSurface(width, height)
	render.Render(s, surf, st)
	return errors.Wrap(surf.EncodePNG(w), "encode png")
}

// RenderSVG draws s as a standalone SVG document.
func RenderSVG(w io.Writer, s *force.State, st render.Style) error {
	width, height := surfaceDims(s.Size)
	surf := render.NewSVGSurface(w, width, height)
	render.Render(s, surf, st)
	surf.End()
	return nil
}

// Result reports one written file.
type Result struct {
	Format Format
	Path   string
}

// Export simulates doc and writes every requested format concurrently.
// On error, files already written are left in place.
func Export(ctx context.Context, doc *model.GraphDocument, opts Options) ([]Result, error) {
	opts.withDefaults()
	if !doc.Complete() {
		return nil, errors.New("graph document is incomplete: nodes and links are required")
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create output directory")
		}
	}

	start := time.Now()
	state := Simulate(doc, opts.Size, opts.Params, opts.Seed, opts.Frames)
	now := opts.Now()
	opts.Logger.Debugw("Simulated layout",
		"nodes", len(state.Nodes),
		"links", len(state.Links),
		"frames", opts.Frames,
		"seed", opts.Seed,
		"elapsed", time.Since(start))

	results := make([]Result, len(opts.Formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range opts.Formats {
		path := filepath.Join(opts.Dir, Filename(opts.Name, now, f))
		results[i] = Result{Format: f, Path: path}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(path, func(w io.Writer) error {
				switch f {
				case FormatPNG:
					return RenderPNG(w, state, opts.Style)
				case FormatSVG:
					return RenderSVG(w, state, opts.Style)
				case FormatJSON:
					return WriteLayoutJSON(w, doc, state, now)
				}
				return errors.Newf("unknown export format %q", f)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	opts.Logger.Infow("Exported graph", "files", len(results), "dir", opts.Dir, "elapsed", time.Since(start))
	return results, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
