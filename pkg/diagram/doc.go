// Package diagram defines the canonical data model shared between the
// application and an external diagramming engine.
//
// A [Diagram] holds three things: an ordered slice of [Node] records, an
// ordered slice of [Link] records, and a diagram-wide [Attrs] map (whether
// relinking is allowed, grid settings, and so on). Records carry an integer
// key and an open-ended attribute map; everything the engine knows about a
// part (label, color, serialized position) lives in the attributes.
//
// # Key convention
//
// Node keys are non-negative, link keys are negative. The two key spaces
// never overlap, so a bare key is enough to tell which collection a part
// belongs to. [NextNodeKey] and [NextLinkKey] mint fresh keys honoring this
// convention.
//
// # Incremental changes
//
// The engine reports edits as a [ChangeSet]: correlated lists of inserted
// keys, modified records, and removed keys per collection, plus an optional
// replacement for the diagram-wide attributes. The JSON field names of
// ChangeSet match the incremental-JSON shape emitted by common canvas
// widgets, so a browser-side engine can post its change events unmodified.
//
// # Serialization
//
// Diagrams round-trip through JSON via [MarshalDiagram], [ReadDiagramFile]
// and friends: load → edit → save → reload produces identical results.
package diagram
