package state

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kheller/diagrid/pkg/diagram"
)

var (
	// ErrNoSelection is returned by [Synchronizer.EditSelectedField] when
	// nothing is selected.
	ErrNoSelection = errors.New("no selection")

	// ErrImmutableField is returned when an edit targets the "key" field.
	// Keys identify records across both sides of the protocol and never
	// change once assigned.
	ErrImmutableField = errors.New("field is immutable")

	// ErrInconsistentIndex is returned when a commit references a key that
	// is absent from both key indexes. This indicates the canonical state
	// and the engine's model have desynchronized; the edit is not silently
	// dropped and no partial repair is attempted.
	ErrInconsistentIndex = errors.New("key not present in any index")
)

// Collection names one of the two canonical record collections.
type Collection int

const (
	// Nodes is the node collection.
	Nodes Collection = iota
	// Links is the link collection.
	Links
)

// String returns "nodes" or "links".
func (c Collection) String() string {
	if c == Links {
		return "links"
	}
	return "nodes"
}

// Synchronizer owns the canonical diagram state during an editing session:
// the node and link collections, diagram-wide attributes, current selection,
// and a key → array position index per collection.
//
// The selection holds its own clone of the selected record. Uncommitted
// field edits mutate only the clone; a commit writes the clone back into the
// owning collection at its indexed position. Engine-side modifications to
// the selected key refresh the clone so it never goes stale.
//
// Synchronizer is not safe for concurrent use.
type Synchronizer struct {
	nodes    []diagram.Node
	links    []diagram.Link
	metadata diagram.Attrs

	nodeIndex map[int]int
	linkIndex map[int]int

	selected diagram.Part // *diagram.Node or *diagram.Link clone, nil when none
	skipPush bool
}

// New creates a synchronizer seeded with a deep copy of the initial diagram
// and builds both key indexes. The push flag starts cleared: the engine has
// not seen this state yet.
func New(d diagram.Diagram) *Synchronizer {
	d = d.Clone()
	s := &Synchronizer{
		nodes:    d.Nodes,
		links:    d.Links,
		metadata: d.Metadata,
	}
	s.RebuildIndex(Nodes)
	s.RebuildIndex(Links)
	return s
}

// =============================================================================
// Accessors
// =============================================================================

// Nodes returns the canonical node collection in order.
// The returned slice is owned by the synchronizer and must not be modified.
func (s *Synchronizer) Nodes() []diagram.Node { return s.nodes }

// Links returns the canonical link collection in order.
// The returned slice is owned by the synchronizer and must not be modified.
func (s *Synchronizer) Links() []diagram.Link { return s.links }

// Metadata returns the diagram-wide attributes.
// The returned map is owned by the synchronizer and must not be modified.
func (s *Synchronizer) Metadata() diagram.Attrs { return s.metadata }

// Selected returns the currently selected record clone, or nil when nothing
// is selected.
func (s *Synchronizer) Selected() diagram.Part { return s.selected }

// SkipNextPush reports whether the next push of canonical state to the
// engine should be suppressed because the state already mirrors the engine's
// model.
func (s *Synchronizer) SkipNextPush() bool { return s.skipPush }

// NodePosition returns the array position of the node with the given key.
func (s *Synchronizer) NodePosition(key int) (int, bool) {
	i, ok := s.nodeIndex[key]
	return i, ok
}

// LinkPosition returns the array position of the link with the given key.
func (s *Synchronizer) LinkPosition(key int) (int, bool) {
	i, ok := s.linkIndex[key]
	return i, ok
}

// Snapshot returns a deep copy of the canonical state as a diagram value,
// suitable for serialization or persistence.
func (s *Synchronizer) Snapshot() diagram.Diagram {
	return diagram.Diagram{
		Nodes:    s.nodes,
		Links:    s.links,
		Metadata: s.metadata,
	}.Clone()
}

// =============================================================================
// Engine → State: incremental changes
// =============================================================================

// ApplyChange folds one engine-originated change descriptor into canonical
// state. Per collection, modifications are applied first (overwriting
// records at their indexed positions and refreshing the selection clone when
// its key is touched), then insertions (appending records and extending the
// index), then removals (filtering the collection and rebuilding the index,
// since surviving positions shift).
//
// Insertions are idempotent: a key that is already indexed, or that has no
// matching record in the modified list, is skipped. An already-present
// record's data is deliberately not reconciled with the value delivered
// alongside a duplicate insertion; callers rely on modify-then-insert
// delivery order. Removing an absent key is a no-op. If the selected
// record's key is removed, the selection is cleared.
//
// When the descriptor carries diagram-wide attributes they replace the
// current map wholesale. Afterwards the next push to the engine is
// suppressed: the change originated there, echoing it back is redundant.
//
// The visible state transition is all-or-nothing; no partial index/array
// desync is observable afterwards.
func (s *Synchronizer) ApplyChange(c diagram.ChangeSet) {
	s.applyNodeChanges(c)
	s.applyLinkChanges(c)

	if c.Metadata != nil {
		s.metadata = c.Metadata.Clone()
	}

	s.skipPush = true
}

func (s *Synchronizer) applyNodeChanges(c diagram.ChangeSet) {
	modified := make(map[int]diagram.Node, len(c.ModifiedNodes))
	for _, n := range c.ModifiedNodes {
		modified[n.Key] = n
	}

	// Modifications: overwrite indexed records in place.
	for _, n := range c.ModifiedNodes {
		i, ok := s.nodeIndex[n.Key]
		if !ok {
			continue
		}
		s.nodes[i] = n.Clone()
		s.refreshSelection(n.Key)
	}

	// Insertions: append and extend the index.
	for _, key := range c.InsertedNodeKeys {
		if _, exists := s.nodeIndex[key]; exists {
			continue
		}
		n, ok := modified[key]
		if !ok {
			continue // key carries no data
		}
		s.nodes = append(s.nodes, n.Clone())
		s.nodeIndex[key] = len(s.nodes) - 1
	}

	// Removals: filter and rebuild, positions have shifted.
	if len(c.RemovedNodeKeys) > 0 {
		removed := make(map[int]bool, len(c.RemovedNodeKeys))
		for _, key := range c.RemovedNodeKeys {
			removed[key] = true
		}
		kept := s.nodes[:0:0]
		for _, n := range s.nodes {
			if !removed[n.Key] {
				kept = append(kept, n)
			}
		}
		if len(kept) != len(s.nodes) {
			s.nodes = kept
			s.RebuildIndex(Nodes)
			s.dropRemovedSelection(removed)
		}
	}
}

func (s *Synchronizer) applyLinkChanges(c diagram.ChangeSet) {
	modified := make(map[int]diagram.Link, len(c.ModifiedLinks))
	for _, l := range c.ModifiedLinks {
		modified[l.Key] = l
	}

	for _, l := range c.ModifiedLinks {
		i, ok := s.linkIndex[l.Key]
		if !ok {
			continue
		}
		s.links[i] = l.Clone()
		s.refreshSelection(l.Key)
	}

	for _, key := range c.InsertedLinkKeys {
		if _, exists := s.linkIndex[key]; exists {
			continue
		}
		l, ok := modified[key]
		if !ok {
			continue
		}
		s.links = append(s.links, l.Clone())
		s.linkIndex[key] = len(s.links) - 1
	}

	if len(c.RemovedLinkKeys) > 0 {
		removed := make(map[int]bool, len(c.RemovedLinkKeys))
		for _, key := range c.RemovedLinkKeys {
			removed[key] = true
		}
		kept := s.links[:0:0]
		for _, l := range s.links {
			if !removed[l.Key] {
				kept = append(kept, l)
			}
		}
		if len(kept) != len(s.links) {
			s.links = kept
			s.RebuildIndex(Links)
			s.dropRemovedSelection(removed)
		}
	}
}

// refreshSelection replaces the selection clone with the live record when
// the modified key matches, so the inspector never renders a stale copy.
func (s *Synchronizer) refreshSelection(key int) {
	if s.selected == nil || s.selected.PartKey() != key {
		return
	}
	if diagram.IsLinkKey(key) {
		l := s.links[s.linkIndex[key]].Clone()
		s.selected = &l
		return
	}
	n := s.nodes[s.nodeIndex[key]].Clone()
	s.selected = &n
}

func (s *Synchronizer) dropRemovedSelection(removed map[int]bool) {
	if s.selected != nil && removed[s.selected.PartKey()] {
		s.selected = nil
	}
}

// =============================================================================
// Selection
// =============================================================================

// SetSelection sets the canonical selection to a clone of p, or clears it
// when p is nil. It has no effect on the indexes or the push flag.
func (s *Synchronizer) SetSelection(p diagram.Part) {
	switch v := p.(type) {
	case *diagram.Node:
		n := v.Clone()
		s.selected = &n
	case *diagram.Link:
		l := v.Clone()
		s.selected = &l
	default:
		s.selected = nil
	}
}

// SelectKey resolves key through the owning index (negative means link) and
// selects the record found there. It reports whether the key resolved;
// an unknown key leaves the selection unchanged.
func (s *Synchronizer) SelectKey(key int) bool {
	if diagram.IsLinkKey(key) {
		i, ok := s.linkIndex[key]
		if !ok {
			return false
		}
		l := s.links[i].Clone()
		s.selected = &l
		return true
	}
	i, ok := s.nodeIndex[key]
	if !ok {
		return false
	}
	n := s.nodes[i].Clone()
	s.selected = &n
	return true
}

// ClearSelection clears the canonical selection.
func (s *Synchronizer) ClearSelection() { s.selected = nil }

// =============================================================================
// State → Engine: local edits
// =============================================================================

// EditSelectedField applies a field edit to the selected record's clone.
// Uncommitted edits (commit=false) give live feedback while typing: only
// the clone changes, the owning collection entry stays as it was. A commit
// additionally writes the clone back into the owning collection at its
// indexed position — key sign picks the collection — and clears the push
// suppression flag, since the engine has not seen this edit.
//
// Link endpoint fields ("from", "to") are parsed as node keys; text that
// does not parse is stored as a plain attribute instead, leaving
// interpretation to consumers. The "key" field is immutable.
//
// Returns [ErrNoSelection] without a selection, [ErrImmutableField] for the
// key field, and [ErrInconsistentIndex] when a commit's key is absent from
// both indexes.
func (s *Synchronizer) EditSelectedField(field, value string, commit bool) error {
	if s.selected == nil {
		return ErrNoSelection
	}
	if field == "key" {
		return ErrImmutableField
	}

	switch v := s.selected.(type) {
	case *diagram.Node:
		setAttr(&v.Attrs, field, value)
	case *diagram.Link:
		switch field {
		case "from":
			if key, err := strconv.Atoi(value); err == nil {
				v.From = key
			} else {
				setAttr(&v.Attrs, field, value)
			}
		case "to":
			if key, err := strconv.Atoi(value); err == nil {
				v.To = key
			} else {
				setAttr(&v.Attrs, field, value)
			}
		default:
			setAttr(&v.Attrs, field, value)
		}
	}

	if !commit {
		return nil
	}

	key := s.selected.PartKey()
	if diagram.IsLinkKey(key) {
		i, ok := s.linkIndex[key]
		if !ok {
			return fmt.Errorf("commit link %d: %w", key, ErrInconsistentIndex)
		}
		s.links[i] = s.selected.(*diagram.Link).Clone()
	} else {
		i, ok := s.nodeIndex[key]
		if !ok {
			return fmt.Errorf("commit node %d: %w", key, ErrInconsistentIndex)
		}
		s.nodes[i] = s.selected.(*diagram.Node).Clone()
	}

	s.skipPush = false
	return nil
}

// SetMetadataField sets one diagram-wide attribute. The metadata map is
// replaced copy-on-write rather than mutated, matching the wholesale-replace
// contract for metadata. Local metadata edits always propagate, so the push
// suppression flag is cleared.
func (s *Synchronizer) SetMetadataField(field string, value any) {
	md := s.metadata.Clone()
	if md == nil {
		md = diagram.Attrs{}
	}
	md[field] = value
	s.metadata = md
	s.skipPush = false
}

// =============================================================================
// Index maintenance
// =============================================================================

// RebuildIndex recomputes one key index from scratch by scanning the
// collection in order, assigning position = scan order. It must run after
// every removal and after initial load; pure appends only need the
// incremental extension ApplyChange already performs.
func (s *Synchronizer) RebuildIndex(c Collection) {
	if c == Links {
		s.linkIndex = make(map[int]int, len(s.links))
		for i, l := range s.links {
			s.linkIndex[l.Key] = i
		}
		return
	}
	s.nodeIndex = make(map[int]int, len(s.nodes))
	for i, n := range s.nodes {
		s.nodeIndex[n.Key] = i
	}
}

func setAttr(attrs *diagram.Attrs, field, value string) {
	if *attrs == nil {
		*attrs = diagram.Attrs{}
	}
	(*attrs)[field] = value
}
