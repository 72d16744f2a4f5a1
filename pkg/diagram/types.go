package diagram

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeKeyNegative is returned by [Diagram.Validate] when a node
	// carries a negative key. Node keys must be non-negative so that key
	// sign alone identifies the owning collection.
	ErrNodeKeyNegative = errors.New("node key must be non-negative")

	// ErrLinkKeyNonNegative is returned by [Diagram.Validate] when a link
	// carries a non-negative key. Link keys must be negative.
	ErrLinkKeyNonNegative = errors.New("link key must be negative")

	// ErrDuplicateKey is returned by [Diagram.Validate] when two records in
	// the same collection share a key. Keys must be unique per collection.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnknownEndpoint is returned by [Diagram.Validate] when a link's
	// From or To references a node key that does not exist.
	ErrUnknownEndpoint = errors.New("link endpoint references unknown node")
)

// Attrs stores arbitrary string-keyed attributes attached to a node, a link,
// or the diagram itself. Typical keys are "text" (display label), "color"
// (fill color), and "loc" (serialized position, "x y"). Values are kept
// as-is; interpretation is left to consumers.
type Attrs map[string]any

// Clone returns a shallow copy of the attribute map, or nil for a nil map.
// Cloning before mutation keeps live-edit drafts from leaking into records
// owned by someone else.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String returns the attribute value as a string. Non-string values are
// formatted with %v; missing keys yield "".
func (a Attrs) String(key string) string {
	v, ok := a[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Part is a record that lives in one of the diagram's two collections.
// It is implemented by *Node and *Link; key sign tells them apart
// (negative means link).
type Part interface {
	// PartKey returns the record's unique key.
	PartKey() int
	// PartAttrs returns the record's attribute map.
	PartAttrs() Attrs
}

// Node is a vertex on the canvas. The key is immutable once assigned and
// non-negative by convention.
type Node struct {
	Key   int   `json:"key" bson:"key"`
	Attrs Attrs `json:"attrs,omitempty" bson:"attrs,omitempty"`
}

// PartKey implements [Part].
func (n *Node) PartKey() int { return n.Key }

// PartAttrs implements [Part].
func (n *Node) PartAttrs() Attrs { return n.Attrs }

// Clone returns a copy of the node with its own attribute map.
func (n Node) Clone() Node {
	n.Attrs = n.Attrs.Clone()
	return n
}

// Link is a connection between two nodes, referencing them by key.
// The link's own key is negative by convention, disjoint from node keys.
type Link struct {
	Key   int   `json:"key" bson:"key"`
	From  int   `json:"from" bson:"from"`
	To    int   `json:"to" bson:"to"`
	Attrs Attrs `json:"attrs,omitempty" bson:"attrs,omitempty"`
}

// PartKey implements [Part].
func (l *Link) PartKey() int { return l.Key }

// PartAttrs implements [Part].
func (l *Link) PartAttrs() Attrs { return l.Attrs }

// Clone returns a copy of the link with its own attribute map.
func (l Link) Clone() Link {
	l.Attrs = l.Attrs.Clone()
	return l
}

// IsLinkKey reports whether key belongs to the link collection.
// Node keys are non-negative, link keys negative.
func IsLinkKey(key int) bool { return key < 0 }
