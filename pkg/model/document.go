package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// GraphDocument is the node/link document served by the backend.
//
// A nil Nodes or Links slice means the field was absent on the wire; an
// empty slice means it was present but empty. The network-graph endpoint
// names its links "edges", which is accepted as a fallback.
type GraphDocument struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
	Edges []Link `json:"edges,omitempty"`
}

// Complete reports whether both collections were supplied.
func (d *GraphDocument) Complete() bool {
	if d == nil {
		return false
	}
	return d.Nodes != nil && (d.Links != nil || d.Edges != nil)
}

// AllLinks returns links, falling back to edges when links are absent.
func (d *GraphDocument) AllLinks() []Link {
	if d == nil {
		return nil
	}
	if d.Links != nil {
		return d.Links
	}
	return d.Edges
}

// Normalize applies Node.Normalize to every node in place.
func (d *GraphDocument) Normalize() {
	if d == nil {
		return
	}
	for i := range d.Nodes {
		d.Nodes[i].Normalize()
	}
}

// Counts returns the number of nodes and links in the document
func (d *GraphDocument) Counts() (nodes, links int) {
	if d == nil {
		return 0, 0
	}
	return len(d.Nodes), len(d.AllLinks())
}

// DecodeDocument reads and normalizes a graph document.
func DecodeDocument(r io.Reader) (*GraphDocument, error) {
	var doc GraphDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode graph document: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

// LoadDocumentFile decodes a graph document from a JSON file on disk.
func LoadDocumentFile(path string) (*GraphDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph document: %w", err)
	}
	defer f.Close()
	return DecodeDocument(f)
}

// ContentHash returns a stable hash of the document, used to skip reloads
// when nothing changed.
func ContentHash(d *GraphDocument) string {
	if d == nil {
		return ""
	}
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
