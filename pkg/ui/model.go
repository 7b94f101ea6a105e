package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/scamshield/syndicate/pkg/analysis"
	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/loop"
	"github.com/scamshield/syndicate/pkg/model"
	"github.com/scamshield/syndicate/pkg/render"
)

// Rows taken by the header, legend and footer around the graph.
const (
	headerHeight = 1
	chromeHeight = 3
)

// Zoom step for +/- and the mouse wheel, and pan step for arrow keys in
// surface units.
const (
	zoomStep = 1.25
	panStep  = 40.0
)

// Refresher reloads the document on demand.
type Refresher interface {
	Refresh()
}

// frameMsg drives the manual scheduler.
type frameMsg time.Time

// Options configures the hosting page.
type Options struct {
	Canvas    force.Size
	Params    force.Params
	Style     render.Style
	HitRadius float64
	FPS       int
	// Seeder places nodes on every load; nil = fresh random placement.
	Seeder force.Seeder
	// Source is shown in the header.
	Source    string
	Theme     Theme
	Refresher Refresher
	// Clipboard copies text; nil = the system clipboard.
	Clipboard func(string) error
	// MarkdownStyle is a glamour standard style name; "" = "dark".
	MarkdownStyle string
	Logger        *zap.SugaredLogger
}

// Model is the bubbletea model of the fraud network page: a header, the
// animated graph, an optional node detail panel, the legend and a key bar.
type Model struct {
	opts  Options
	theme Theme

	sched   *loop.ManualScheduler
	driver  *loop.Driver
	surface *render.CellSurface
	clicks  *[]model.Node

	snapshot  *DocumentSnapshot
	inspected *model.Node
	viewport  viewport.Model
	markdown  *glamour.TermRenderer

	showDetails  bool
	paused       bool
	ticking      bool
	ready        bool
	width        int
	height       int
	status       string
	err          error
	unauthorized bool
}

// NewModel creates the hosting page. Documents arrive as DocumentReadyMsg.
func NewModel(opts Options) Model {
	if opts.Canvas.Width <= 0 || opts.Canvas.Height <= 0 {
		opts.Canvas = force.DefaultSize
	}
	if opts.Params == (force.Params{}) {
		opts.Params = force.DefaultParams()
	}
	if opts.Style == (render.Style{}) {
		opts.Style = render.DefaultStyle()
	}
	if opts.HitRadius <= 0 {
		opts.HitRadius = force.DefaultHitRadius
	}
	if opts.FPS <= 0 {
		opts.FPS = loop.DefaultFPS
	}
	if opts.Theme.Renderer == nil {
		opts.Theme = DefaultTheme(nil)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.MarkdownStyle == "" {
		opts.MarkdownStyle = "dark"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	surface := render.NewCellSurface(opts.Theme.Renderer, opts.Canvas, 80, 20)
	clicks := new([]model.Node)
	sched := loop.NewManualScheduler()
	style := opts.Style
	driver := loop.NewDriver(sched,
		loop.RendererFunc(func(s *force.State) { render.Render(s, surface, style) }),
		loop.WithParams(opts.Params),
		loop.WithHitRadius(opts.HitRadius),
		loop.WithLogger(opts.Logger),
		loop.OnNodeClick(func(n model.Node) { *clicks = append(*clicks, n) }),
	)

	m := Model{
		opts:     opts,
		theme:    opts.Theme,
		sched:    sched,
		driver:   driver,
		surface:  surface,
		clicks:   clicks,
		viewport: viewport.New(DetailPanelWidth, 10),
		status:   "Loading network intelligence...",
	}
	m.markdown = m.newMarkdown(DetailPanelWidth - 2)
	return m
}

func (m Model) newMarkdown(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.opts.MarkdownStyle),
		glamour.WithWordWrap(max(width, 10)),
	)
	if err != nil {
		m.opts.Logger.Warnw("Markdown renderer unavailable", "error", err)
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// ensureTicking restarts the frame ticks if the loop runs and no tick is
// outstanding.
func (m *Model) ensureTicking() tea.Cmd {
	if m.ticking || m.driver.Status() != loop.Running {
		return nil
	}
	m.ticking = true
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case frameMsg:
		m.ticking = false
		m.sched.Advance(time.Time(msg))
		cmds = append(cmds, m.ensureTicking())

	case DocumentReadyMsg:
		m.load(msg.Snapshot)
		cmds = append(cmds, m.ensureTicking())

	case DocumentErrorMsg:
		m.err = msg.Err
		m.unauthorized = msg.Unauthorized
		if msg.Unauthorized {
			m.status = "Session expired. Run `syndicate login` to sign in again."
		} else {
			m.status = "Failed to load network intelligence"
		}

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		m = m.handleMouse(msg)
		cmds = append(cmds, m.ensureTicking())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) load(snap *DocumentSnapshot) {
	if snap == nil {
		return
	}
	m.snapshot = snap
	m.err = nil
	m.unauthorized = false
	m.paused = false
	m.driver.Load(snap.Doc, m.opts.Canvas, m.opts.Seeder)

	nodes, links := snap.Doc.Counts()
	if snap.Doc.Complete() {
		m.status = fmt.Sprintf("Loaded %d network nodes", nodes)
	} else {
		m.status = "Graph document is incomplete; nothing to draw"
	}
	m.opts.Logger.Debugw("Mounted graph document", "nodes", nodes, "links", links, "source", snap.Source)

	// keep the panel on the same node if it survived the reload
	if m.inspected != nil {
		m.inspected = m.findNode(m.inspected.ID)
		if m.inspected == nil {
			m.showDetails = false
			m.layout()
		}
	}
	m.updateDetail()
}

func (m Model) findNode(id string) *model.Node {
	if m.snapshot == nil {
		return nil
	}
	for i := range m.snapshot.Doc.Nodes {
		if m.snapshot.Doc.Nodes[i].ID == id {
			n := m.snapshot.Doc.Nodes[i].Clone()
			return &n
		}
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.driver.Stop()
		return m, tea.Quit

	case "esc":
		if m.showDetails {
			m.showDetails = false
			m.inspected = nil
			m.layout()
		}

	case "r":
		if m.opts.Refresher != nil {
			m.status = "Refreshing..."
			m.opts.Refresher.Refresh()
		}

	case " ", "space":
		if m.driver.Status() == loop.Running {
			m.driver.Stop()
			m.paused = true
			m.status = "Paused"
		} else {
			m.driver.Start()
			m.paused = m.driver.Status() != loop.Running
			if !m.paused {
				m.status = "Running"
			}
		}
		return m, m.ensureTicking()

	case "y":
		if m.inspected != nil {
			if err := m.opts.Clipboard(m.inspected.Label); err != nil {
				m.status = fmt.Sprintf("Copy failed: %v", err)
			} else {
				m.status = fmt.Sprintf("Copied %s", m.inspected.Label)
			}
		}

	case "+", "=":
		m.zoom(m.opts.Canvas.Center(), zoomStep)
	case "-", "_":
		m.zoom(m.opts.Canvas.Center(), 1/zoomStep)
	case "0":
		m.driver.Do(func(s *force.State) { s.Transform = force.Identity })

	case "left":
		m.pan(panStep, 0)
	case "right":
		m.pan(-panStep, 0)
	case "up":
		m.pan(0, panStep)
	case "down":
		m.pan(0, -panStep)

	default:
		if m.showDetails {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) zoom(anchor r2.Vec, factor float64) {
	m.driver.Do(func(s *force.State) { s.Transform = s.Transform.ZoomAbout(anchor, factor) })
}

func (m Model) pan(dx, dy float64) {
	m.driver.Do(func(s *force.State) {
		s.Transform.X += dx
		s.Transform.Y += dy
	})
}

// graphGrid returns the cell dimensions of the graph area.
func (m Model) graphGrid() (cols, rows int) {
	cols = m.width
	if m.showDetails && m.width > SplitViewThreshold {
		cols = m.width - DetailPanelWidth - 1
	}
	return max(cols, 0), max(m.height-chromeHeight, 0)
}

// GraphVisible reports whether the graph area is on screen. In narrow
// terminals the detail panel replaces it.
func (m Model) GraphVisible() bool {
	return !m.showDetails || m.width > SplitViewThreshold
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	if !m.ready || !m.GraphVisible() {
		return m
	}
	cols, rows := m.graphGrid()
	col, row := msg.X, msg.Y-headerHeight
	inside := col >= 0 && row >= 0 && col < cols && row < rows
	client := m.surface.PointAt(col, row)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		if inside {
			m.zoom(client, zoomStep)
		}
	case msg.Button == tea.MouseButtonWheelDown:
		if inside {
			m.zoom(client, 1/zoomStep)
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if inside {
			m.driver.PointerDown(client)
			m = m.consumeClicks()
		}
	case msg.Action == tea.MouseActionMotion:
		if inside {
			m.driver.PointerMove(client)
		} else {
			m.driver.PointerLeave()
		}
	case msg.Action == tea.MouseActionRelease:
		m.driver.PointerUp()
	}
	return m
}

// consumeClicks opens the detail panel on the last clicked node.
func (m Model) consumeClicks() Model {
	clicked := *m.clicks
	*m.clicks = (*m.clicks)[:0]
	if len(clicked) == 0 {
		return m
	}
	n := clicked[len(clicked)-1]
	m.inspected = &n
	if !m.showDetails {
		m.showDetails = true
		m.layout()
	}
	m.updateDetail()
	return m
}

// Inspect opens the detail panel on node id, as a click would.
func (m Model) Inspect(id string) Model {
	n := m.findNode(id)
	if n == nil {
		return m
	}
	*m.clicks = append(*m.clicks, *n)
	return m.consumeClicks()
}

func (m *Model) layout() {
	if !m.ready {
		return
	}
	cols, rows := m.graphGrid()
	m.surface.Resize(cols, rows)
	// Clicks land on cell centres, so a coarse grid needs a wider radius to
	// keep every drawn node reachable.
	m.driver.SetHitRadius(math.Max(m.opts.HitRadius, m.surface.PickRadius()))

	panelWidth := DetailPanelWidth
	if m.width <= SplitViewThreshold {
		panelWidth = m.width
	}
	m.viewport = viewport.New(max(panelWidth-2, 1), max(m.height-chromeHeight-2, 1))
	m.markdown = m.newMarkdown(panelWidth - 4)
	m.updateDetail()
	m.driver.Redraw()
}

// Inspected returns the node shown in the detail panel, or nil.
func (m Model) Inspected() *model.Node { return m.inspected }

// Status returns the status line text.
func (m Model) Status() string { return m.status }

// Paused reports whether the user paused the loop.
func (m Model) Paused() bool { return m.paused }

// Driver exposes the loop driver.
func (m Model) Driver() *loop.Driver { return m.driver }

// Surface exposes the cell surface the graph is drawn on.
func (m Model) Surface() *render.CellSurface { return m.surface }

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch {
	case m.showDetails && m.width > SplitViewThreshold:
		panel := m.theme.Renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Border).
			Width(DetailPanelWidth - 2).
			Height(max(m.height-chromeHeight-2, 1)).
			Render(m.viewport.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.graphView(), " ", panel)
	case m.showDetails:
		body = m.viewport.View()
	default:
		body = m.graphView()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		" "+m.theme.Legend(),
		m.renderFooter(),
	)
}

func (m Model) graphView() string {
	cols, rows := m.graphGrid()
	if m.snapshot == nil {
		return m.theme.Renderer.NewStyle().
			Width(cols).Height(rows).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(m.theme.Secondary).
			Render(m.status)
	}
	return m.surface.String()
}

func (m Model) renderHeader() string {
	t := m.theme
	title := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render("◆ Syndicate Brain")
	sub := t.Renderer.NewStyle().Foreground(t.Subtext).Render(" Visual Fraud Network Analysis")

	var counts string
	if m.snapshot != nil {
		nodes, links := m.snapshot.Doc.Counts()
		counts = t.Renderer.NewStyle().Foreground(t.Secondary).
			Render(fmt.Sprintf("  %d nodes · %d links", nodes, links))
	}

	state := "▶"
	if m.driver.Status() != loop.Running {
		state = "⏸"
	}
	statusStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
	if m.err != nil {
		statusStyle = statusStyle.Foreground(t.Danger)
	}
	right := statusStyle.Render(state + " " + m.status)

	left := title + sub + counts
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderFooter() string {
	keyStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Primary).Bold(true)
	descStyle := m.theme.Renderer.NewStyle().Foreground(m.theme.Subtext)

	shortcuts := []struct{ key, desc string }{
		{"q", "quit"},
		{"r", "reload"},
		{"space", "pause"},
	}
	if m.showDetails {
		shortcuts = append(shortcuts, struct{ key, desc string }{"esc", "close"}, struct{ key, desc string }{"y", "copy"})
	}
	shortcuts = append(shortcuts,
		struct{ key, desc string }{"+/-/0", "zoom"},
		struct{ key, desc string }{"←↑↓→", "pan"},
	)

	parts := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		parts = append(parts, keyStyle.Render(s.key)+" "+descStyle.Render(s.desc))
	}
	return " " + strings.Join(parts, "  ")
}

// updateDetail fills the panel for the inspected node.
func (m *Model) updateDetail() {
	if m.inspected == nil {
		m.viewport.SetContent("")
		return
	}
	n := m.inspected
	t := m.theme

	var sb strings.Builder
	sb.WriteString(t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render("Node Intelligence"))
	sb.WriteString("\n\n")
	dot := t.Renderer.NewStyle().Foreground(lipgloss.Color(n.Color)).Render("●")
	sb.WriteString(dot + " " + t.Renderer.NewStyle().Bold(true).Render(n.Label) + "\n")
	sb.WriteString(t.Renderer.NewStyle().Foreground(t.Secondary).Render(strings.ToUpper(n.DisplayCategory())) + "\n\n")

	label := t.Renderer.NewStyle().Foreground(t.Subtext)
	var stats analysis.NodeStats
	var haveStats bool
	if m.snapshot != nil && m.snapshot.Network != nil {
		stats, haveStats = m.snapshot.Network.Stats(n.ID)
	}

	switch n.Type {
	case model.KindConversation:
		scam := strings.ReplaceAll(n.ScamTypeName(), "_", " ")
		if scam == "" {
			scam = "unknown"
		}
		sb.WriteString(label.Render("SCAM TYPE") + "\n" + t.Renderer.NewStyle().Foreground(t.Primary).Render(scam) + "\n\n")
		sb.WriteString(label.Render("RISK SCORE") + "\n")
		if score, ok := n.RiskScore(); ok {
			c := t.Safe
			if score > model.HighRiskThreshold {
				c = t.Danger
			}
			sb.WriteString(t.Renderer.NewStyle().Foreground(c).Bold(true).Render(fmt.Sprintf("%.0f%%", math.Round(score*100))))
		} else {
			sb.WriteString("n/a")
		}
		sb.WriteString("\n")

	case model.KindEntity:
		sb.WriteString(label.Render("CONNECTIONS") + "\n")
		if haveStats {
			sb.WriteString(fmt.Sprintf("%d linked nodes", stats.Degree))
			if stats.SharedAcrossCases() {
				sb.WriteString(fmt.Sprintf("\nActive in multiple cases (%d)", stats.Cases))
			}
		} else {
			sb.WriteString("Active in multiple cases")
		}
		sb.WriteString("\n\n")
		sb.WriteString(t.Renderer.NewStyle().Foreground(t.Warning).Render("⚠ This entity is part of a fraud network."))
		sb.WriteString("\n")
	}

	if haveStats {
		sb.WriteString("\n")
		sb.WriteString(m.renderMarkdown(networkMarkdown(stats)))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoTop()
}

// maxNeighbors caps the neighbour list in the panel.
const maxNeighbors = 20

func networkMarkdown(st analysis.NodeStats) string {
	var sb strings.Builder
	sb.WriteString("### Network\n\n")
	sb.WriteString("| Degree | Cases | Betweenness | Component |\n|---|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %.1f | %d |\n\n", st.Degree, st.Cases, st.Betweenness, st.ComponentSize))
	if len(st.Neighbors) > 0 {
		sb.WriteString("### Linked\n\n")
		for i, nb := range st.Neighbors {
			if i == maxNeighbors {
				sb.WriteString(fmt.Sprintf("- ... and %d more\n", len(st.Neighbors)-maxNeighbors))
				break
			}
			sb.WriteString("- `" + nb + "`\n")
		}
	}
	return sb.String()
}

func (m Model) renderMarkdown(md string) string {
	if m.markdown == nil {
		return md
	}
	out, err := m.markdown.Render(md)
	if err != nil {
		return md
	}
	return out
}
