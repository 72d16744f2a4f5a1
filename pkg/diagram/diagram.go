package diagram

import "fmt"

// Diagram is the canonical application-side copy of the engine's model:
// ordered node and link collections plus diagram-wide attributes.
//
// The zero value is usable (empty diagram). Diagram is a plain value type;
// it carries no indexes. Key-position bookkeeping belongs to the state
// synchronizer that owns a diagram during an editing session.
type Diagram struct {
	Nodes    []Node `json:"nodes" bson:"nodes"`
	Links    []Link `json:"links" bson:"links"`
	Metadata Attrs  `json:"modelData,omitempty" bson:"modelData,omitempty"`
}

// Clone returns a deep copy of the diagram. The copy shares nothing with
// the original, so either side can be mutated freely.
func (d Diagram) Clone() Diagram {
	out := Diagram{Metadata: d.Metadata.Clone()}
	if d.Nodes != nil {
		out.Nodes = make([]Node, len(d.Nodes))
		for i, n := range d.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if d.Links != nil {
		out.Links = make([]Link, len(d.Links))
		for i, l := range d.Links {
			out.Links[i] = l.Clone()
		}
	}
	return out
}

// Validate checks the key conventions the reconciliation protocol relies on:
// node keys non-negative and unique, link keys negative and unique, and link
// endpoints referencing existing nodes.
func (d Diagram) Validate() error {
	nodeKeys := make(map[int]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Key < 0 {
			return fmt.Errorf("node %d: %w", n.Key, ErrNodeKeyNegative)
		}
		if nodeKeys[n.Key] {
			return fmt.Errorf("node %d: %w", n.Key, ErrDuplicateKey)
		}
		nodeKeys[n.Key] = true
	}

	linkKeys := make(map[int]bool, len(d.Links))
	for _, l := range d.Links {
		if l.Key >= 0 {
			return fmt.Errorf("link %d: %w", l.Key, ErrLinkKeyNonNegative)
		}
		if linkKeys[l.Key] {
			return fmt.Errorf("link %d: %w", l.Key, ErrDuplicateKey)
		}
		linkKeys[l.Key] = true

		if !nodeKeys[l.From] {
			return fmt.Errorf("link %d from %d: %w", l.Key, l.From, ErrUnknownEndpoint)
		}
		if !nodeKeys[l.To] {
			return fmt.Errorf("link %d to %d: %w", l.Key, l.To, ErrUnknownEndpoint)
		}
	}

	return nil
}

// Sample returns the built-in starter diagram used when no file is given.
// It mirrors the kind of static initial data a canvas demo ships with.
func Sample() Diagram {
	return Diagram{
		Nodes: []Node{
			{Key: 0, Attrs: Attrs{"text": "Alpha", "color": "lightblue", "loc": "0 0"}},
			{Key: 1, Attrs: Attrs{"text": "Beta", "color": "orange", "loc": "150 0"}},
			{Key: 2, Attrs: Attrs{"text": "Gamma", "color": "lightgreen", "loc": "0 100"}},
			{Key: 3, Attrs: Attrs{"text": "Delta", "color": "pink", "loc": "150 100"}},
		},
		Links: []Link{
			{Key: -1, From: 0, To: 1},
			{Key: -2, From: 0, To: 2},
			{Key: -3, From: 1, To: 1},
			{Key: -4, From: 2, To: 3},
			{Key: -5, From: 3, To: 0},
		},
		Metadata: Attrs{"canRelink": true},
	}
}
