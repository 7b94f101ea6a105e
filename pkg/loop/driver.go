package loop

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/model"
)

// Status is the lifecycle state of a Driver.
type Status int

const (
	Idle Status = iota
	Running
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Renderer is the per-frame sink. render.Renderer satisfies it.
type Renderer interface {
	Render(s *force.State)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(s *force.State)

func (f RendererFunc) Render(s *force.State) { f(s) }

// Driver owns one simulation state and the frame loop that advances it.
// Frames, pointer events and Do callbacks are serialized by the driver's
// lock, so none of them observe a half-applied step.
type Driver struct {
	mu       sync.Mutex
	sched    Scheduler
	renderer Renderer
	ctrl     *force.Controller
	params   force.Params
	logger   *zap.SugaredLogger

	onNodeClick func(model.Node)
	clicked     []model.Node

	state  *force.State
	status Status
	handle FrameHandle
	gen    uint64
	frames uint64
}

// Option configures a Driver.
type Option func(*Driver)

// WithParams sets the physics constants.
func WithParams(p force.Params) Option {
	return func(d *Driver) { d.params = p }
}

// WithLogger sets the driver's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHitRadius overrides the controller's pick radius.
func WithHitRadius(r float64) Option {
	return func(d *Driver) { d.ctrl.HitRadius = r }
}

// WithOrigin sets the surface origin in client coordinates.
func WithOrigin(o r2.Vec) Option {
	return func(d *Driver) { d.ctrl.Origin = o }
}

// OnNodeClick sets the inspection callback. It runs synchronously within
// PointerDown, after the driver's lock is released, so it may call back
// into the driver.
func OnNodeClick(fn func(model.Node)) Option {
	return func(d *Driver) { d.onNodeClick = fn }
}

// NewDriver returns an idle driver with an empty state.
func NewDriver(sched Scheduler, r Renderer, opts ...Option) *Driver {
	d := &Driver{
		sched:    sched,
		renderer: r,
		params:   force.DefaultParams(),
		logger:   zap.NewNop().Sugar(),
		state:    force.NewState(force.DefaultSize),
	}
	d.ctrl = force.NewController(func(n force.Node) {
		d.clicked = append(d.clicked, n.Node.Clone())
	})
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load cancels the running loop, seeds a fresh state from doc and starts a
// new loop if the document has any nodes. An incomplete document leaves the
// driver idle with nothing to draw.
func (d *Driver) Load(doc *model.GraphDocument, size force.Size, seed force.Seeder) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.state = force.Initialize(doc, size, seed)
	d.frames = 0
	if d.renderer != nil {
		d.renderer.Render(d.state)
	}
	if d.state.Empty() {
		d.logger.Debugw("Graph document has nothing to simulate", "complete", doc != nil && doc.Complete())
		return
	}
	d.logger.Infow("Graph loaded",
		"nodes", len(d.state.Nodes),
		"links", len(d.state.Links))
	d.startLocked()
}

// Start begins the frame loop. It is a no-op while running or when there
// is nothing to simulate.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status == Running || d.state.Empty() {
		return
	}
	d.startLocked()
}

// Stop cancels the pending frame. A frame already executing completes.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Driver) startLocked() {
	d.status = Running
	d.gen++
	d.schedule(d.gen)
	d.logger.Debugw("Simulation loop started", "generation", d.gen)
}

func (d *Driver) stopLocked() {
	if d.status != Running {
		return
	}
	d.sched.CancelFrame(d.handle)
	d.status = Idle
	d.gen++
	d.logger.Debugw("Simulation loop stopped", "frames", d.frames)
}

func (d *Driver) schedule(gen uint64) {
	d.handle = d.sched.RequestFrame(func(now time.Time) {
		d.frame(gen, now)
	})
}

// frame runs one step and render. A callback from a cancelled generation
// finds a newer generation and does nothing.
func (d *Driver) frame(gen uint64, _ time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != Running || gen != d.gen {
		return
	}
	force.Step(d.state, d.params)
	if d.renderer != nil {
		d.renderer.Render(d.state)
	}
	d.frames++
	d.schedule(gen)
}

// Status reports whether the loop is running.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Frames returns the number of frames run since the last Load.
func (d *Driver) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Snapshot returns a copy of the current state.
func (d *Driver) Snapshot() *force.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

// Do runs fn with exclusive access to the live state, then re-renders.
// fn must not retain s.
func (d *Driver) Do(fn func(s *force.State)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.state)
	if d.renderer != nil {
		d.renderer.Render(d.state)
	}
}

// Redraw renders the current state without stepping it.
func (d *Driver) Redraw() {
	d.Do(func(*force.State) {})
}

// PointerDown hit-tests client and starts a drag on a hit. The inspection
// callback receives a copy of the picked node.
func (d *Driver) PointerDown(client r2.Vec) bool {
	d.mu.Lock()
	hit := d.ctrl.PointerDown(d.state, client)
	clicked := d.clicked
	d.clicked = nil
	if hit && d.renderer != nil {
		d.renderer.Render(d.state)
	}
	d.mu.Unlock()

	if d.onNodeClick != nil {
		for _, n := range clicked {
			d.onNodeClick(n)
		}
	}
	return hit
}

// PointerMove moves the dragged node, if any, to client.
func (d *Driver) PointerMove(client r2.Vec) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.DraggingID() == "" {
		return
	}
	d.ctrl.PointerMove(d.state, client)
	if d.status != Running && d.renderer != nil {
		d.renderer.Render(d.state)
	}
}

// PointerUp releases the drag.
func (d *Driver) PointerUp() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctrl.PointerUp(d.state)
}

// PointerLeave releases the drag.
func (d *Driver) PointerLeave() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctrl.PointerLeave(d.state)
}

// SetHitRadius changes the pick radius, in surface units.
func (d *Driver) SetHitRadius(r float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctrl.HitRadius = r
}

// HitTest returns the id of the node under client, or "".
func (d *Driver) HitTest(client r2.Vec) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.ctrl.HitTest(d.state, d.ctrl.ToSurface(client))
	if i < 0 {
		return ""
	}
	return d.state.Nodes[i].ID
}
