package export

import (
	"io"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"

	"github.com/scamshield/syndicate/pkg/analysis"
	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/model"
)

// layoutNode is a node of the layout JSON: its final position plus the
// network statistics the inspect panel shows.
type layoutNode struct {
	ID          string           `json:"id"`
	Label       string           `json:"label"`
	Type        model.NodeKind   `json:"type"`
	Subtype     model.EntityType `json:"subtype,omitempty"`
	Color       string           `json:"color"`
	Val         float64          `json:"val"`
	X           float64          `json:"x"`
	Y           float64          `json:"y"`
	Degree      int              `json:"degree"`
	Cases       int              `json:"cases"`
	Betweenness float64          `json:"betweenness"`
	Shared      bool             `json:"shared_across_cases"`
}

type layoutLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
}

// Layout is the document written by WriteLayoutJSON.
type Layout struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	NodeCount   int          `json:"node_count"`
	LinkCount   int          `json:"link_count"`
	Nodes       []layoutNode `json:"nodes"`
	Links       []layoutLink `json:"links"`
}

// BuildLayout collects final positions from s and statistics from doc.
// Nodes keep simulation order; only resolvable links are listed.
func BuildLayout(doc *model.GraphDocument, s *force.State, generatedAt time.Time) Layout {
	net := analysis.Compute(doc, analysis.Options{})
	out := Layout{
		GeneratedAt: generatedAt.UTC(),
		Width:       s.Size.Width,
		Height:      s.Size.Height,
		Nodes:       make([]layoutNode, 0, len(s.Nodes)),
		Links:       make([]layoutLink, 0, len(s.Links)),
	}
	for _, n := range s.Nodes {
		ln := layoutNode{
			ID:      n.ID,
			Label:   n.Label,
			Type:    n.Type,
			Subtype: n.Subtype,
			Color:   n.Color,
			Val:     n.Val,
			X:       n.Pos.X,
			Y:       n.Pos.Y,
		}
		if st, ok := net.Stats(n.ID); ok {
			ln.Degree = st.Degree
			ln.Cases = st.Cases
			ln.Betweenness = st.Betweenness
			ln.Shared = st.SharedAcrossCases()
		}
		out.Nodes = append(out.Nodes, ln)
	}

	types := linkTypes(doc)
	for _, l := range s.Links {
		if _, _, ok := s.Resolve(l); !ok {
			continue
		}
		out.Links = append(out.Links, layoutLink{Source: l.Source, Target: l.Target, Type: types[[2]string{l.Source, l.Target}]})
	}
	sort.SliceStable(out.Links, func(i, j int) bool {
		if out.Links[i].Source != out.Links[j].Source {
			return out.Links[i].Source < out.Links[j].Source
		}
		return out.Links[i].Target < out.Links[j].Target
	})
	out.NodeCount = len(out.Nodes)
	out.LinkCount = len(out.Links)
	return out
}

func linkTypes(doc *model.GraphDocument) map[[2]string]string {
	types := make(map[[2]string]string)
	for _, l := range doc.AllLinks() {
		if l.Type != "" {
			types[[2]string{l.Source, l.Target}] = l.Type
		}
	}
	return types
}

// WriteLayoutJSON writes the indented layout of s.
func WriteLayoutJSON(w io.Writer, doc *model.GraphDocument, s *force.State, generatedAt time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(BuildLayout(doc, s, generatedAt)), "encode layout")
}
