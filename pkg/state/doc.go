// Package state implements the application-side half of the reconciliation
// protocol between canonical diagram state and an external diagramming
// engine.
//
// A [Synchronizer] owns the canonical node and link collections, the
// diagram-wide attributes, the current selection, and two derived key →
// position indexes. Engine-originated edits arrive as
// [github.com/kheller/diagrid/pkg/diagram.ChangeSet] values and are applied
// with [Synchronizer.ApplyChange]; local edits (inspector fields, settings
// toggles) go through [Synchronizer.EditSelectedField] and
// [Synchronizer.SetMetadataField].
//
// # Push suppression
//
// After an engine-originated change is folded into canonical state, pushing
// that state back down to the engine would only echo what the engine already
// has — and risks a feedback loop. [Synchronizer.SkipNextPush] reports
// whether the next push should be suppressed: it turns on after every
// ApplyChange and turns off after every local edit that the engine has not
// yet seen.
//
// # Index invariant
//
// For every key currently present, index[key] == i exactly when
// collection[i] has that key. Appends extend the index incrementally;
// removals shift positions, so the affected index is rebuilt from scratch.
//
// A Synchronizer is not safe for concurrent use. All operations are
// synchronous in-memory transformations meant to run on a single
// event-dispatch goroutine; callers that share one across goroutines must
// serialize access themselves.
package state
