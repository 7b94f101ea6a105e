package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/scamshield/syndicate/pkg/model"
)

// Layout breakpoints.
const (
	// SplitViewThreshold is the width above which the detail panel sits
	// beside the graph instead of replacing it.
	SplitViewThreshold = 100
	// DetailPanelWidth is the panel width in split view.
	DetailPanelWidth = 40
)

// Theme holds the styles of the hosting page. All styles come from
// Renderer so tests can pin the colour profile.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Safe      lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor

	Base lipgloss.Style
}

// DefaultTheme returns the dashboard's dark-first theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#6d28d9", Dark: "#a78bfa"},
		Secondary: lipgloss.AdaptiveColor{Light: "#4b5563", Dark: "#9ca3af"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#6b7280"},
		Border:    lipgloss.AdaptiveColor{Light: "#d1d5db", Dark: "#334155"},
		Highlight: lipgloss.AdaptiveColor{Light: "#e5e7eb", Dark: "#1e293b"},
		Danger:    lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"},
		Safe:      lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#4ade80"},
		Warning:   lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#fca5a5"},
	}
	t.Base = r.NewStyle()
	return t
}

// legendEntries are the categories shown under the graph.
var legendEntries = []struct {
	name  string
	color string
}{
	{"Conversation", model.ColorConversation},
	{"Phone", model.ColorPhone},
	{"UPI", model.ColorUPI},
	{"Bank", model.ColorBank},
}

// Legend renders "● Conversation | ● Phone | ● UPI | ● Bank".
func (t Theme) Legend() string {
	sep := t.Renderer.NewStyle().Foreground(t.Subtext).Render(" | ")
	label := t.Renderer.NewStyle().Foreground(t.Secondary)
	var out string
	for i, e := range legendEntries {
		if i > 0 {
			out += sep
		}
		dot := t.Renderer.NewStyle().Foreground(lipgloss.Color(e.color)).Render("●")
		out += dot + " " + label.Render(e.name)
	}
	return out
}
