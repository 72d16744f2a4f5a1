package engine

import (
	"errors"
	"fmt"

	"github.com/kheller/diagrid/pkg/diagram"
)

var (
	// ErrUnknownPart is returned by Memory gestures that reference a key
	// absent from the engine's internal model.
	ErrUnknownPart = errors.New("unknown part key")

	// ErrRelinkDisabled is returned by [Memory.Relink] when the diagram's
	// "canRelink" attribute forbids reconnecting links.
	ErrRelinkDisabled = errors.New("relinking is disabled")
)

// Memory is an in-process Engine used by the TUI demo and in tests. It keeps
// its own copy of the model — the way a real canvas widget does — and
// exposes gesture methods that stand in for user interactions. Each accepted
// gesture mutates the internal model and emits the incremental change
// descriptor a real engine would.
//
// Memory implements no layout, rendering or hit-testing; gestures address
// parts directly by key.
//
// Memory is not safe for concurrent use; like the synchronizer it belongs
// to a single event-dispatch goroutine.
type Memory struct {
	model diagram.Diagram

	selected *PartRef

	nextHandler int
	modelSubs   map[int]ModelChangedHandler
	selSubs     map[int]SelectionChangedHandler
}

// NewMemory creates a memory engine with an empty model. State arrives via
// [Memory.Push].
func NewMemory() *Memory {
	return &Memory{
		modelSubs: make(map[int]ModelChangedHandler),
		selSubs:   make(map[int]SelectionChangedHandler),
	}
}

// Model returns the engine's internal model copy. Test helper; the
// application core should consume events instead.
func (m *Memory) Model() diagram.Diagram { return m.model }

// Selected returns the engine-side selection, or nil.
func (m *Memory) Selected() *PartRef { return m.selected }

// =============================================================================
// Engine interface
// =============================================================================

// Push implements [Engine]. With skip set the internal model is left alone —
// the canonical arrays mirror an edit that originated here. Otherwise the
// internal model is re-derived from the pushed state.
func (m *Memory) Push(d diagram.Diagram, skip bool) {
	if skip {
		return
	}
	m.model = d.Clone()
	if m.selected != nil && !m.hasKey(m.selected.Key) {
		m.selected = nil
	}
}

// OnModelChanged implements [Engine].
func (m *Memory) OnModelChanged(fn ModelChangedHandler) (release func()) {
	id := m.nextHandler
	m.nextHandler++
	m.modelSubs[id] = fn
	return func() { delete(m.modelSubs, id) }
}

// OnSelectionChanged implements [Engine].
func (m *Memory) OnSelectionChanged(fn SelectionChangedHandler) (release func()) {
	id := m.nextHandler
	m.nextHandler++
	m.selSubs[id] = fn
	return func() { delete(m.selSubs, id) }
}

func (m *Memory) emitModel(c diagram.ChangeSet) {
	for _, fn := range m.modelSubs {
		fn(c)
	}
}

func (m *Memory) emitSelection() {
	for _, fn := range m.selSubs {
		fn(m.selected)
	}
}

// =============================================================================
// Simulated canvas gestures
// =============================================================================

// AddNode simulates dropping a new node on the canvas. A fresh non-negative
// key is minted; the returned key identifies the node in later gestures.
func (m *Memory) AddNode(attrs diagram.Attrs) int {
	key := diagram.NextNodeKey(m.model.Nodes)
	n := diagram.Node{Key: key, Attrs: attrs.Clone()}
	m.model.Nodes = append(m.model.Nodes, n)

	m.emitModel(diagram.ChangeSet{
		InsertedNodeKeys: []int{key},
		ModifiedNodes:    []diagram.Node{n.Clone()},
	})
	return key
}

// MoveNode simulates dragging a node to a new position. The position is
// serialized into the node's "loc" attribute as "x y".
func (m *Memory) MoveNode(key int, x, y float64) error {
	i, ok := m.nodePos(key)
	if !ok {
		return fmt.Errorf("move node %d: %w", key, ErrUnknownPart)
	}
	if m.model.Nodes[i].Attrs == nil {
		m.model.Nodes[i].Attrs = diagram.Attrs{}
	}
	m.model.Nodes[i].Attrs["loc"] = fmt.Sprintf("%g %g", x, y)

	m.emitModel(diagram.ChangeSet{
		ModifiedNodes: []diagram.Node{m.model.Nodes[i].Clone()},
	})
	return nil
}

// DeleteNode simulates deleting a node. Links touching the node are deleted
// with it, the way a canvas widget cascades deletions.
func (m *Memory) DeleteNode(key int) error {
	i, ok := m.nodePos(key)
	if !ok {
		return fmt.Errorf("delete node %d: %w", key, ErrUnknownPart)
	}
	m.model.Nodes = append(m.model.Nodes[:i], m.model.Nodes[i+1:]...)

	var removedLinks []int
	kept := m.model.Links[:0:0]
	for _, l := range m.model.Links {
		if l.From == key || l.To == key {
			removedLinks = append(removedLinks, l.Key)
			continue
		}
		kept = append(kept, l)
	}
	m.model.Links = kept

	if m.selected != nil && (m.selected.Key == key || contains(removedLinks, m.selected.Key)) {
		m.selected = nil
		m.emitSelection()
	}

	m.emitModel(diagram.ChangeSet{
		RemovedNodeKeys: []int{key},
		RemovedLinkKeys: removedLinks,
	})
	return nil
}

// Connect simulates drawing a link between two nodes. A fresh negative key
// is minted and returned.
func (m *Memory) Connect(from, to int) (int, error) {
	if _, ok := m.nodePos(from); !ok {
		return 0, fmt.Errorf("connect from %d: %w", from, ErrUnknownPart)
	}
	if _, ok := m.nodePos(to); !ok {
		return 0, fmt.Errorf("connect to %d: %w", to, ErrUnknownPart)
	}

	key := diagram.NextLinkKey(m.model.Links)
	l := diagram.Link{Key: key, From: from, To: to}
	m.model.Links = append(m.model.Links, l)

	m.emitModel(diagram.ChangeSet{
		InsertedLinkKeys: []int{key},
		ModifiedLinks:    []diagram.Link{l.Clone()},
	})
	return key, nil
}

// Relink simulates reconnecting an existing link to new endpoints. Refused
// when the diagram's "canRelink" attribute is false.
func (m *Memory) Relink(key, from, to int) error {
	if b, ok := m.model.Metadata["canRelink"].(bool); ok && !b {
		return ErrRelinkDisabled
	}
	i, ok := m.linkPos(key)
	if !ok {
		return fmt.Errorf("relink %d: %w", key, ErrUnknownPart)
	}
	m.model.Links[i].From = from
	m.model.Links[i].To = to

	m.emitModel(diagram.ChangeSet{
		ModifiedLinks: []diagram.Link{m.model.Links[i].Clone()},
	})
	return nil
}

// DeleteLink simulates deleting a link.
func (m *Memory) DeleteLink(key int) error {
	i, ok := m.linkPos(key)
	if !ok {
		return fmt.Errorf("delete link %d: %w", key, ErrUnknownPart)
	}
	m.model.Links = append(m.model.Links[:i], m.model.Links[i+1:]...)

	if m.selected != nil && m.selected.Key == key {
		m.selected = nil
		m.emitSelection()
	}

	m.emitModel(diagram.ChangeSet{RemovedLinkKeys: []int{key}})
	return nil
}

// SetNodeText simulates an in-place label edit on the canvas.
func (m *Memory) SetNodeText(key int, text string) error {
	i, ok := m.nodePos(key)
	if !ok {
		return fmt.Errorf("edit node %d: %w", key, ErrUnknownPart)
	}
	if m.model.Nodes[i].Attrs == nil {
		m.model.Nodes[i].Attrs = diagram.Attrs{}
	}
	m.model.Nodes[i].Attrs["text"] = text

	m.emitModel(diagram.ChangeSet{
		ModifiedNodes: []diagram.Node{m.model.Nodes[i].Clone()},
	})
	return nil
}

// SetModelAttr simulates a diagram-wide settings toggle on the canvas. The
// emitted descriptor carries the full replacement attribute map.
func (m *Memory) SetModelAttr(field string, value any) {
	md := m.model.Metadata.Clone()
	if md == nil {
		md = diagram.Attrs{}
	}
	md[field] = value
	m.model.Metadata = md

	m.emitModel(diagram.ChangeSet{Metadata: md.Clone()})
}

// Select simulates clicking a part. Returns false when the key is unknown.
func (m *Memory) Select(key int) bool {
	if !m.hasKey(key) {
		return false
	}
	ref := RefForKey(key)
	m.selected = &ref
	m.emitSelection()
	return true
}

// ClearSelection simulates clicking empty canvas.
func (m *Memory) ClearSelection() {
	m.selected = nil
	m.emitSelection()
}

// =============================================================================
// Internal lookups
// =============================================================================

func (m *Memory) nodePos(key int) (int, bool) {
	for i, n := range m.model.Nodes {
		if n.Key == key {
			return i, true
		}
	}
	return 0, false
}

func (m *Memory) linkPos(key int) (int, bool) {
	for i, l := range m.model.Links {
		if l.Key == key {
			return i, true
		}
	}
	return 0, false
}

func (m *Memory) hasKey(key int) bool {
	if diagram.IsLinkKey(key) {
		_, ok := m.linkPos(key)
		return ok
	}
	_, ok := m.nodePos(key)
	return ok
}

func contains(keys []int, key int) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
