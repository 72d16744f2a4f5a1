// Package engine defines the adapter boundary to an external diagramming
// engine.
//
// The engine owns everything interactive: rendering, layout, drag
// guidelines, hit-testing, undo/redo. This package only pins down the
// contract the application core consumes — push canonical state down, and
// observe the engine's incremental change and selection events — so the core
// stays independent of any particular widget or UI lifecycle.
//
// Observers register with OnModelChanged/OnSelectionChanged and receive a
// release function for lifecycle-scoped cleanup; no UI framework hooks are
// involved. [Memory] is an in-process implementation used by the TUI demo
// and in tests; it simulates canvas gestures and emits the same events a
// real engine would.
package engine

import "github.com/kheller/diagrid/pkg/diagram"

// PartKind distinguishes the two entity kinds a selection can reference.
type PartKind int

const (
	// KindNode marks a node selection.
	KindNode PartKind = iota
	// KindLink marks a link selection.
	KindLink
)

// String returns "node" or "link".
func (k PartKind) String() string {
	if k == KindLink {
		return "link"
	}
	return "node"
}

// PartRef identifies a selected entity by key and kind. The kind is
// redundant with the key's sign under the key convention but is carried
// explicitly so adapters never have to assume the convention holds on the
// wire.
type PartRef struct {
	Key  int      `json:"key"`
	Kind PartKind `json:"kind"`
}

// RefForKey builds a PartRef for a key, deriving the kind from its sign.
func RefForKey(key int) PartRef {
	if diagram.IsLinkKey(key) {
		return PartRef{Key: key, Kind: KindLink}
	}
	return PartRef{Key: key, Kind: KindNode}
}

// ModelChangedHandler receives incremental change descriptors after every
// accepted canvas edit.
type ModelChangedHandler func(diagram.ChangeSet)

// SelectionChangedHandler receives the new selection after every canvas
// interaction that changes it. A nil ref means the selection was cleared.
type SelectionChangedHandler func(*PartRef)

// Engine is the contract surface an external diagramming engine adapter
// must expose to the application core.
type Engine interface {
	// Push hands the canonical node array, link array and diagram-wide
	// attributes to the engine for rendering. When skip is set the engine
	// must not re-derive its internal model from the arrays — they already
	// match; when clear it must re-sync from them.
	Push(d diagram.Diagram, skip bool)

	// OnModelChanged registers fn for incremental change events and
	// returns a function that unregisters it.
	OnModelChanged(fn ModelChangedHandler) (release func())

	// OnSelectionChanged registers fn for selection events and returns a
	// function that unregisters it.
	OnSelectionChanged(fn SelectionChangedHandler) (release func())
}
