package force

import (
	"github.com/scamshield/syndicate/pkg/model"
)

// Initialize builds a fresh simulation state from a graph document. Every
// node gets a position chosen by seed (uniform random when seed is nil) and
// a zero velocity; links are copied as id pairs without validation.
//
// An incomplete document (nodes or links absent) yields an empty state.
// Repeated node ids keep their first occurrence. Nothing from any previous
// state carries over.
func Initialize(doc *model.GraphDocument, size Size, seed Seeder) *State {
	s := NewState(size)
	if !doc.Complete() {
		return s
	}
	if seed == nil {
		seed = RandomSeeder()
	}

	s.Nodes = make([]Node, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		s.add(Node{Node: n.Clone(), Pos: seed.Seed(size)})
	}

	links := doc.AllLinks()
	s.Links = make([]Link, 0, len(links))
	for _, l := range links {
		s.Links = append(s.Links, Link{Source: l.Source, Target: l.Target})
	}
	return s
}
