package model

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// NodeKind is the semantic category of a graph node. The hosting page uses it
// to decide which detail panel to show when a node is inspected.
type NodeKind string

const (
	KindConversation NodeKind = "conversation"
	KindEntity       NodeKind = "entity"
)

// IsValid returns true if the kind is one of the known categories
func (k NodeKind) IsValid() bool {
	switch k {
	case KindConversation, KindEntity:
		return true
	}
	return false
}

// IsPrimaryEntity reports whether nodes of this kind are always labelled.
func (k NodeKind) IsPrimaryEntity() bool {
	return k == KindEntity
}

// EntityType is the subtype of an extracted entity node
type EntityType string

const (
	EntityPhone EntityType = "phone"
	EntityUPI   EntityType = "upi"
	EntityBank  EntityType = "bank"
	EntityLink  EntityType = "link"
)

// IsValid returns true if the entity type is recognized
func (e EntityType) IsValid() bool {
	switch e {
	case EntityPhone, EntityUPI, EntityBank, EntityLink:
		return true
	}
	return false
}

// Legend colours, matching the dashboard legend
// (Conversation | Phone | UPI | Bank).
const (
	ColorConversation = "#8b5cf6"
	ColorPhone        = "#3b82f6"
	ColorUPI          = "#10b981"
	ColorBank         = "#f59e0b"
	ColorLink         = "#ef4444"
	ColorUnknown      = "#9ca3af"
)

// Default radius weights applied when the backend omits "val".
const (
	DefaultConversationVal = 8
	DefaultEntityVal       = 4
)

// Node is a node record of the backend graph document
type Node struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Val     float64        `json:"val"`
	Color   string         `json:"color,omitempty"`
	Type    NodeKind       `json:"type"`
	Subtype EntityType     `json:"subtype,omitempty"`
	Data    map[string]any `json:"data,omitempty"`

	// ScamType is only sent by the network-graph endpoint; Data carries it
	// for the intelligence graph.
	ScamType string `json:"scamType,omitempty"`

	// valSet records that the decoded record carried "val", so an explicit
	// zero survives Normalize.
	valSet bool
}

// UnmarshalJSON decodes a node record, noting whether "val" was present.
func (n *Node) UnmarshalJSON(data []byte) error {
	type Alias Node
	aux := struct {
		*Alias
		Val *float64 `json:"val"`
	}{Alias: (*Alias)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.valSet = aux.Val != nil
	if aux.Val != nil {
		n.Val = *aux.Val
	}
	return nil
}

// Link connects two nodes by id. Endpoints are not validated.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
}

// Clone creates a deep copy of the node
func (n Node) Clone() Node {
	clone := n
	if n.Data != nil {
		clone.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			clone.Data[k] = v
		}
	}
	return clone
}

// DisplayCategory returns the subtype for entities and the kind otherwise,
// e.g. "upi" or "conversation".
func (n Node) DisplayCategory() string {
	if n.Subtype != "" {
		return string(n.Subtype)
	}
	return string(n.Type)
}

// ScamTypeName returns the scam type of a conversation node, from either the
// data payload or the flat network-graph field.
func (n Node) ScamTypeName() string {
	if s, ok := n.Data["scam_type"].(string); ok && s != "" {
		return s
	}
	return n.ScamType
}

// RiskScore returns the conversation risk score in [0,1], and false if the
// payload carries none.
func (n Node) RiskScore() (float64, bool) {
	switch v := n.Data["risk_score"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Normalize folds the network-graph endpoint's flat entity types into
// Kind/Subtype and fills display defaults for colour and radius weight. A
// decoded "val" is kept even when zero; a zero Val set in code is defaulted.
func (n *Node) Normalize() {
	t := EntityType(strings.ToLower(string(n.Type)))
	if t.IsValid() {
		n.Type = KindEntity
		if n.Subtype == "" {
			n.Subtype = t
		}
	}
	if n.Label == "" {
		n.Label = n.ID
	}
	if n.Val == 0 && !n.valSet {
		if n.Type == KindConversation {
			n.Val = DefaultConversationVal
		} else {
			n.Val = DefaultEntityVal
		}
	}
	if n.Color == "" {
		n.Color = PaletteColor(n.Type, n.Subtype)
	}
}

// PaletteColor returns the legend colour for a node category
func PaletteColor(kind NodeKind, subtype EntityType) string {
	if kind == KindConversation {
		return ColorConversation
	}
	switch subtype {
	case EntityPhone:
		return ColorPhone
	case EntityUPI:
		return ColorUPI
	case EntityBank:
		return ColorBank
	case EntityLink:
		return ColorLink
	}
	return ColorUnknown
}

// Validate checks if the node is usable as a simulation node
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if n.Type != "" && !n.Type.IsValid() {
		return fmt.Errorf("invalid node type: %s", n.Type)
	}
	return nil
}
