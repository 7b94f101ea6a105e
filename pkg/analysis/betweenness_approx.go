package analysis

import (
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// bfsScratch is the per-source working set of Brandes' algorithm, pooled
// across pivots.
type bfsScratch struct {
	sigma map[int64]float64 // shortest-path counts
	dist  map[int64]int     // -1 = unvisited
	delta map[int64]float64 // dependency
	pred  map[int64][]int64
	queue []int64
	order []int64
	adj   []int64
}

var scratchPool = sync.Pool{
	New: func() interface{} {
		return &bfsScratch{
			sigma: make(map[int64]float64, 64),
			dist:  make(map[int64]int, 64),
			delta: make(map[int64]float64, 64),
			pred:  make(map[int64][]int64, 64),
		}
	},
}

func (b *bfsScratch) reset(nodes []graph.Node) {
	if len(b.sigma) > 2*len(nodes) {
		clear(b.sigma)
		clear(b.dist)
		clear(b.delta)
		clear(b.pred)
	}
	for _, n := range nodes {
		id := n.ID()
		b.sigma[id] = 0
		b.dist[id] = -1
		b.delta[id] = 0
		b.pred[id] = b.pred[id][:0]
	}
	b.queue = b.queue[:0]
	b.order = b.order[:0]
	b.adj = b.adj[:0]
}

// BetweennessMode records how scores were computed.
type BetweennessMode string

const (
	BetweennessExact       BetweennessMode = "exact"
	BetweennessApproximate BetweennessMode = "approximate"
)

// BetweennessResult holds betweenness scores keyed by graph node id.
type BetweennessResult struct {
	Scores     map[int64]float64
	Mode       BetweennessMode
	SampleSize int
	TotalNodes int
	Elapsed    time.Duration
}

// ApproxBetweenness estimates betweenness centrality from sampleSize pivot
// sources (Brandes 2001, Bader et al. 2007), falling back to the exact
// computation when the sample would cover every node. The same seed gives
// the same pivots.
func ApproxBetweenness(g *simple.UndirectedGraph, sampleSize int, seed int64) BetweennessResult {
	start := time.Now()
	nodes := graph.NodesOf(g.Nodes())
	n := len(nodes)
	// gonum's node iteration order is map-backed
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })

	if sampleSize < 1 {
		sampleSize = 1
	}
	res := BetweennessResult{
		Scores:     make(map[int64]float64),
		Mode:       BetweennessApproximate,
		SampleSize: sampleSize,
		TotalNodes: n,
	}
	if n == 0 {
		res.Elapsed = time.Since(start)
		return res
	}
	if sampleSize >= n {
		res.Scores = network.Betweenness(g)
		res.Mode = BetweennessExact
		res.SampleSize = n
		res.Elapsed = time.Since(start)
		return res
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, runtime.NumCPU())
	)
	for _, pivot := range pickPivots(nodes, sampleSize, seed) {
		wg.Add(1)
		go func(p graph.Node) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			local := make(map[int64]float64)
			accumulateFrom(g, nodes, p.ID(), local)

			mu.Lock()
			for id, v := range local {
				res.Scores[id] += v
			}
			mu.Unlock()
		}(pivot)
	}
	wg.Wait()

	// Extrapolate by n/k. Like network.Betweenness, scores count ordered
	// source/target pairs.
	scale := float64(n) / float64(sampleSize)
	for id := range res.Scores {
		res.Scores[id] *= scale
	}
	res.Elapsed = time.Since(start)
	return res
}

// pickPivots draws k distinct nodes with a partial Fisher-Yates shuffle.
func pickPivots(nodes []graph.Node, k int, seed int64) []graph.Node {
	if k >= len(nodes) {
		return nodes
	}
	pool := append([]graph.Node(nil), nodes...)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// accumulateFrom adds the dependencies of source on every other node to bc.
func accumulateFrom(g *simple.UndirectedGraph, nodes []graph.Node, source int64, bc map[int64]float64) {
	b := scratchPool.Get().(*bfsScratch)
	defer scratchPool.Put(b)
	b.reset(nodes)

	b.sigma[source] = 1
	b.dist[source] = 0
	b.queue = append(b.queue, source)

	for len(b.queue) > 0 {
		v := b.queue[0]
		b.queue = b.queue[1:]
		b.order = append(b.order, v)

		b.adj = b.adj[:0]
		it := g.From(v)
		for it.Next() {
			b.adj = append(b.adj, it.Node().ID())
		}
		sort.Slice(b.adj, func(i, j int) bool { return b.adj[i] < b.adj[j] })

		for _, w := range b.adj {
			if b.dist[w] < 0 {
				b.dist[w] = b.dist[v] + 1
				b.queue = append(b.queue, w)
			}
			if b.dist[w] == b.dist[v]+1 {
				b.sigma[w] += b.sigma[v]
				b.pred[w] = append(b.pred[w], v)
			}
		}
	}

	for i := len(b.order) - 1; i > 0; i-- {
		w := b.order[i]
		for _, v := range b.pred[w] {
			b.delta[v] += b.sigma[v] / b.sigma[w] * (1 + b.delta[w])
		}
		bc[w] += b.delta[w]
	}
}

// RecommendSampleSize picks a pivot count for a graph of nodeCount nodes:
// exact below 100 nodes, then a sample that keeps inspect latency low.
func RecommendSampleSize(nodeCount int) int {
	switch {
	case nodeCount < 100:
		return nodeCount
	case nodeCount < 500:
		return max(50, nodeCount/5)
	case nodeCount < 2000:
		return 100
	default:
		return 200
	}
}
