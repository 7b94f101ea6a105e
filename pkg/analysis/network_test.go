package analysis

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/scamshield/syndicate/pkg/model"
)

// ring: two conversations sharing a phone, one with its own UPI id.
func ringDoc() *model.GraphDocument {
	d := &model.GraphDocument{
		Nodes: []model.Node{
			{ID: "c1", Type: model.KindConversation},
			{ID: "c2", Type: model.KindConversation},
			{ID: "+911234567890", Type: "phone"},
			{ID: "fraud@upi", Type: "upi"},
		},
		Links: []model.Link{
			{Source: "c1", Target: "+911234567890"},
			{Source: "c2", Target: "+911234567890"},
			{Source: "c1", Target: "fraud@upi"},
			{Source: "c2", Target: "ghost"},
			{Source: "c1", Target: "c1"},
		},
	}
	d.Normalize()
	return d
}

func TestCompute_Stats(t *testing.T) {
	net := Compute(ringDoc(), Options{})
	if net.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", net.Len())
	}

	phone, ok := net.Stats("+911234567890")
	if !ok {
		t.Fatal("phone missing")
	}
	if phone.Degree != 2 || phone.Cases != 2 || !phone.SharedAcrossCases() {
		t.Errorf("phone stats = %+v", phone)
	}

	c1, _ := net.Stats("c1")
	if c1.Degree != 2 {
		t.Errorf("c1 degree = %d, want 2 (self-link ignored)", c1.Degree)
	}
	if c1.Neighbors[0] != "+911234567890" || c1.Neighbors[1] != "fraud@upi" {
		t.Errorf("c1 neighbours = %v", c1.Neighbors)
	}
	if c1.ComponentSize != 4 {
		t.Errorf("component size = %d, want 4", c1.ComponentSize)
	}

	upi, _ := net.Stats("fraud@upi")
	if upi.SharedAcrossCases() {
		t.Error("single-case entity reported as shared")
	}

	if _, ok := net.Stats("ghost"); ok {
		t.Error("dangling endpoint became a node")
	}
}

func TestCompute_Betweenness(t *testing.T) {
	// path c2 - phone - c1 - upi: c1 and phone carry the shortest paths
	net := Compute(ringDoc(), Options{})
	top := net.Central(2)
	if len(top) != 2 {
		t.Fatalf("Central(2) returned %d", len(top))
	}
	got := map[string]bool{top[0].ID: true, top[1].ID: true}
	if !got["c1"] || !got["+911234567890"] {
		t.Errorf("most central = %v, want c1 and the phone", top)
	}
	if leaf, _ := net.Stats("fraud@upi"); leaf.Betweenness != 0 {
		t.Errorf("leaf betweenness = %v", leaf.Betweenness)
	}
}

func TestSharedEntities(t *testing.T) {
	d := ringDoc()
	d.Nodes = append(d.Nodes, model.Node{ID: "c3", Type: model.KindConversation})
	d.Links = append(d.Links, model.Link{Source: "c3", Target: "+911234567890"}, model.Link{Source: "c3", Target: "fraud@upi"})

	shared := Compute(d, Options{}).SharedEntities()
	if len(shared) != 2 {
		t.Fatalf("shared = %+v", shared)
	}
	if shared[0].ID != "+911234567890" || shared[0].Cases != 3 {
		t.Errorf("first shared = %+v", shared[0])
	}
}

func TestCompute_NilAndEmpty(t *testing.T) {
	if Compute(nil, Options{}).Len() != 0 {
		t.Error("nil doc produced nodes")
	}
	net := Compute(&model.GraphDocument{Nodes: []model.Node{}, Links: []model.Link{}}, Options{})
	if len(net.Central(0)) != 0 || len(net.SharedEntities()) != 0 {
		t.Error("empty doc produced stats")
	}
}

func star(leaves int) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := 1; i <= leaves; i++ {
		g.SetEdge(g.NewEdge(simple.Node(0), simple.Node(int64(i))))
	}
	return g
}

func TestApproxBetweenness_ExactFallback(t *testing.T) {
	res := ApproxBetweenness(star(4), 100, 1)
	if res.Mode != BetweennessExact {
		t.Fatalf("mode = %s, want exact", res.Mode)
	}
	if res.Scores[0] <= 0 {
		t.Errorf("centre betweenness = %v, want positive", res.Scores[0])
	}
	for id := int64(1); id <= 4; id++ {
		if res.Scores[id] != 0 {
			t.Errorf("leaf %d betweenness = %v", id, res.Scores[id])
		}
	}
}

func TestApproxBetweenness_Sampled(t *testing.T) {
	g := star(200)
	res := ApproxBetweenness(g, 50, 7)
	if res.Mode != BetweennessApproximate || res.SampleSize != 50 {
		t.Fatalf("mode=%s sample=%d", res.Mode, res.SampleSize)
	}
	for id, v := range res.Scores {
		if id != 0 && v != 0 {
			t.Errorf("leaf %d has betweenness %v", id, v)
		}
	}
	exact := network.Betweenness(g)[0]
	if got := res.Scores[0]; math.Abs(got-exact)/exact > 0.1 {
		t.Errorf("centre estimate %v too far from %v", got, exact)
	}

	again := ApproxBetweenness(g, 50, 7)
	if again.Scores[0] != res.Scores[0] {
		t.Error("same seed gave different estimates")
	}
}

func TestRecommendSampleSize(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{10, 10},
		{150, 50},
		{400, 80},
		{1000, 100},
		{5000, 200},
	}
	for _, tt := range tests {
		if got := RecommendSampleSize(tt.n); got != tt.want {
			t.Errorf("RecommendSampleSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}
