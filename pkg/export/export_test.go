package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/scamshield/syndicate/pkg/force"
	"github.com/scamshield/syndicate/pkg/model"
)

func fraudRing() *model.GraphDocument {
	d := &model.GraphDocument{
		Nodes: []model.Node{
			{ID: "c1", Label: "Case 1", Type: model.KindConversation},
			{ID: "c2", Label: "Case 2", Type: model.KindConversation},
			{ID: "+919876543210", Label: "+919876543210", Type: model.KindEntity, Subtype: model.EntityPhone},
			{ID: "loot@upi", Label: "loot@upi", Type: model.KindEntity, Subtype: model.EntityUPI},
		},
		Links: []model.Link{
			{Source: "c1", Target: "+919876543210", Type: "uses_phone"},
			{Source: "c2", Target: "+919876543210"},
			{Source: "c2", Target: "loot@upi"},
			{Source: "c1", Target: "missing"},
		},
	}
	d.Normalize()
	return d
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		want string
	}{
		{"syndicate", FormatPNG, "syndicate_20240309_140507.png"},
		{"fraud ring/west", FormatSVG, "fraud_ring_west_20240309_140507.svg"},
		{"  ", FormatJSON, "syndicate_20240309_140507.json"},
	}
	for _, tt := range tests {
		if got := Filename(tt.name, fixedNow, tt.f); got != tt.want {
			t.Errorf("Filename(%q, %s) = %q, want %q", tt.name, tt.f, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" PNG "); err != nil || f != FormatPNG {
		t.Errorf("ParseFormat(PNG) = %q, %v", f, err)
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("gif accepted")
	}
}

func TestSimulate_Reproducible(t *testing.T) {
	a := Simulate(fraudRing(), force.DefaultSize, force.DefaultParams(), 42, 50)
	b := Simulate(fraudRing(), force.DefaultSize, force.DefaultParams(), 42, 50)
	for i := range a.Nodes {
		if a.Nodes[i].Pos != b.Nodes[i].Pos {
			t.Fatalf("node %s differs: %v vs %v", a.Nodes[i].ID, a.Nodes[i].Pos, b.Nodes[i].Pos)
		}
	}
	c := Simulate(fraudRing(), force.DefaultSize, force.DefaultParams(), 43, 50)
	if a.Nodes[0].Pos == c.Nodes[0].Pos {
		t.Error("different seeds gave the same layout")
	}
}

func TestExport_AllFormats(t *testing.T) {
	dir := t.TempDir()
	res, err := Export(context.Background(), fraudRing(), Options{
		Name:   "ring",
		Dir:    dir,
		Frames: 20,
		Seed:   1,
		Size:   force.Size{Width: 320, Height: 200},
		Now:    func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("results = %+v", res)
	}

	png, err := os.ReadFile(filepath.Join(dir, "ring_20240309_140507.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("png missing magic bytes")
	}

	svg, err := os.ReadFile(filepath.Join(dir, "ring_20240309_140507.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), `width="320"`) || !strings.HasSuffix(strings.TrimSpace(string(svg)), "</svg>") {
		t.Errorf("svg = %s", svg)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "ring_20240309_140507.json"))
	if err != nil {
		t.Fatal(err)
	}
	var layout Layout
	if err := json.Unmarshal(raw, &layout); err != nil {
		t.Fatal(err)
	}
	if layout.NodeCount != 4 || layout.LinkCount != 3 {
		t.Errorf("counts = %d nodes, %d links", layout.NodeCount, layout.LinkCount)
	}
	if !layout.GeneratedAt.Equal(fixedNow) {
		t.Errorf("generated_at = %v", layout.GeneratedAt)
	}
}

func TestBuildLayout(t *testing.T) {
	doc := fraudRing()
	s := Simulate(doc, force.DefaultSize, force.DefaultParams(), 3, 10)
	l := BuildLayout(doc, s, fixedNow)

	if l.Nodes[0].ID != "c1" || l.Nodes[0].X != s.Nodes[0].Pos.X {
		t.Errorf("first node = %+v", l.Nodes[0])
	}
	phone := l.Nodes[2]
	if phone.Degree != 2 || phone.Cases != 2 || !phone.Shared {
		t.Errorf("phone = %+v", phone)
	}
	for _, ln := range l.Links {
		if ln.Target == "missing" {
			t.Error("dangling link exported")
		}
		if ln.Source == "c1" && ln.Type != "uses_phone" {
			t.Errorf("link type lost: %+v", ln)
		}
	}
}

func TestExport_IncompleteDocument(t *testing.T) {
	doc := &model.GraphDocument{Nodes: []model.Node{{ID: "a"}}}
	if _, err := Export(context.Background(), doc, Options{Dir: t.TempDir()}); err == nil {
		t.Error("incomplete document exported")
	}
}

func TestExport_SelectedFormats(t *testing.T) {
	dir := t.TempDir()
	res, err := Export(context.Background(), fraudRing(), Options{
		Dir:     dir,
		Formats: []Format{FormatJSON},
		Frames:  1,
		Now:     func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Format != FormatJSON {
		t.Fatalf("results = %+v", res)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("wrote %d files, want 1", len(entries))
	}
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Export(ctx, fraudRing(), Options{Dir: t.TempDir(), Frames: 1}); err == nil {
		t.Error("cancelled export succeeded")
	}
}
