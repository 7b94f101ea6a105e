// Package analysis computes network statistics of a fraud graph for the
// inspect panel: who an entity connects to, how many cases it appears in
// and how central it is to the ring.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/scamshield/syndicate/pkg/model"
)

// NodeStats summarises one node's place in the network.
type NodeStats struct {
	ID   string
	Kind model.NodeKind

	// Degree counts distinct neighbours over resolvable links.
	Degree int
	// Neighbors are neighbour ids, sorted.
	Neighbors []string
	// Cases counts neighbouring conversation nodes.
	Cases int
	// Betweenness is the node's betweenness centrality.
	Betweenness float64
	// ComponentSize is the node count of its connected component.
	ComponentSize int
}

// SharedAcrossCases reports whether an entity links two or more
// conversations, which is what marks it as part of a fraud network.
func (s NodeStats) SharedAcrossCases() bool {
	return s.Kind == model.KindEntity && s.Cases >= 2
}

// Network is the analysed form of a graph document.
type Network struct {
	stats       map[string]NodeStats
	order       []string
	Betweenness BetweennessResult
}

// Options tunes Compute.
type Options struct {
	// SampleSize is the betweenness pivot count; 0 picks one from the
	// node count.
	SampleSize int
	Seed       int64
}

// Compute analyses doc. Dangling links and self-links are ignored, as are
// repeated node ids after the first.
func Compute(doc *model.GraphDocument, opts Options) *Network {
	net := &Network{stats: make(map[string]NodeStats)}
	if doc == nil {
		return net
	}

	g := simple.NewUndirectedGraph()
	ids := make(map[string]int64, len(doc.Nodes))
	names := make(map[int64]string, len(doc.Nodes))
	kinds := make(map[string]model.NodeKind, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if _, dup := ids[n.ID]; dup {
			continue
		}
		gid := int64(len(ids))
		ids[n.ID] = gid
		names[gid] = n.ID
		kinds[n.ID] = n.Type
		net.order = append(net.order, n.ID)
		g.AddNode(simple.Node(gid))
	}
	for _, l := range doc.AllLinks() {
		a, okA := ids[l.Source]
		b, okB := ids[l.Target]
		if !okA || !okB || a == b {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
	}

	sample := opts.SampleSize
	if sample <= 0 {
		sample = RecommendSampleSize(len(ids))
	}
	net.Betweenness = ApproxBetweenness(g, sample, opts.Seed)

	compSize := make(map[int64]int, len(ids))
	for _, comp := range topo.ConnectedComponents(g) {
		for _, n := range comp {
			compSize[n.ID()] = len(comp)
		}
	}

	for _, id := range net.order {
		gid := ids[id]
		st := NodeStats{
			ID:            id,
			Kind:          kinds[id],
			Betweenness:   net.Betweenness.Scores[gid],
			ComponentSize: compSize[gid],
		}
		it := g.From(gid)
		for it.Next() {
			nb := names[it.Node().ID()]
			st.Neighbors = append(st.Neighbors, nb)
			if kinds[nb] == model.KindConversation {
				st.Cases++
			}
		}
		sort.Strings(st.Neighbors)
		st.Degree = len(st.Neighbors)
		net.stats[id] = st
	}
	return net
}

// Stats returns the statistics of node id.
func (n *Network) Stats(id string) (NodeStats, bool) {
	st, ok := n.stats[id]
	return st, ok
}

// Len returns the number of distinct nodes analysed.
func (n *Network) Len() int { return len(n.order) }

// Central returns up to limit nodes by descending betweenness, ties broken
// by degree then id. limit <= 0 returns all.
func (n *Network) Central(limit int) []NodeStats {
	out := make([]NodeStats, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.stats[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Betweenness != out[j].Betweenness {
			return out[i].Betweenness > out[j].Betweenness
		}
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SharedEntities returns entities linked to two or more conversations,
// most cases first.
func (n *Network) SharedEntities() []NodeStats {
	var out []NodeStats
	for _, id := range n.order {
		if st := n.stats[id]; st.SharedAcrossCases() {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cases != out[j].Cases {
			return out[i].Cases > out[j].Cases
		}
		return out[i].ID < out[j].ID
	})
	return out
}
