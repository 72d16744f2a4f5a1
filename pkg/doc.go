// Package pkg provides the core libraries for Diagrid state reconciliation.
//
// # Overview
//
// Diagrid keeps an externally owned diagram engine (a browser canvas widget,
// or the in-process fake used by the TUI) and application-owned canonical
// state consistent through incremental change descriptors. The pkg directory
// is organized into five main areas:
//
//  1. [diagram] - Model types (nodes, links, attributes, change descriptors)
//  2. [state] - The synchronizer: canonical arrays, key indexes, selection
//  3. [engine] - The engine boundary and an in-memory fake for tests
//  4. [inspector] - Field rows for the selection inspector form
//  5. [store] - Document persistence (memory, file, Redis, MongoDB)
//
// # Architecture
//
// The typical data flow through Diagrid:
//
//	Engine gesture (move, add, delete, relink)
//	         ↓
//	    incremental change descriptor
//	         ↓
//	    [state] package (merge into canonical arrays, set skip flag)
//	         ↓
//	    [store] package (persist the document)
//	         ↓
//	    push back down to the engine (suppressed when the edit originated there)
//
// Inspector edits flow the opposite way: [inspector] rows feed field edits
// into [state], and committed values push down to the engine.
//
// # Quick Start
//
// Reconcile an engine change and commit an inspector edit:
//
//	import (
//	    "github.com/kheller/diagrid/pkg/diagram"
//	    "github.com/kheller/diagrid/pkg/state"
//	)
//
//	sync := state.New(diagram.Sample())
//
//	// 1. Merge a change reported by the engine
//	sync.ApplyChange(change)
//
//	// 2. Select a part and edit it through the inspector
//	sync.SelectKey(0)
//	_ = sync.EditSelectedField("text", "Renamed", true)
//
//	// 3. Push canonical state back down, honoring the skip flag
//	eng.Push(sync.Snapshot(), sync.SkipNextPush())
//
// Supporting packages: [errors] for coded errors, [render] for Graphviz
// export, [observability] for instrumentation hooks, and [buildinfo] for
// version stamping.
package pkg
