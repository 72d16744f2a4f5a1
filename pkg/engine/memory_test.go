package engine

import (
	"errors"
	"testing"

	"github.com/kheller/diagrid/pkg/diagram"
	"github.com/kheller/diagrid/pkg/state"
)

// newWired builds a memory engine whose change and selection events feed a
// synchronizer, the way the demo app wires them.
func newWired(t *testing.T, d diagram.Diagram) (*Memory, *state.Synchronizer) {
	t.Helper()

	s := state.New(d)
	e := NewMemory()
	e.Push(s.Snapshot(), s.SkipNextPush())

	release := e.OnModelChanged(func(c diagram.ChangeSet) {
		s.ApplyChange(c)
	})
	t.Cleanup(release)

	releaseSel := e.OnSelectionChanged(func(ref *PartRef) {
		if ref == nil {
			s.ClearSelection()
			return
		}
		s.SelectKey(ref.Key)
	})
	t.Cleanup(releaseSel)

	return e, s
}

func TestGesturesReconcile(t *testing.T) {
	e, s := newWired(t, diagram.Sample())

	key := e.AddNode(diagram.Attrs{"text": "Epsilon"})
	if key != 4 {
		t.Errorf("minted node key = %d, want 4", key)
	}
	if i, ok := s.NodePosition(key); !ok || s.Nodes()[i].Attrs.String("text") != "Epsilon" {
		t.Errorf("canonical state missing inserted node %d", key)
	}
	if !s.SkipNextPush() {
		t.Error("engine-originated insert should suppress the next push")
	}

	if err := e.MoveNode(key, 210.5, 40); err != nil {
		t.Fatalf("MoveNode: %v", err)
	}
	i, _ := s.NodePosition(key)
	if got := s.Nodes()[i].Attrs.String("loc"); got != "210.5 40" {
		t.Errorf("loc = %q, want %q", got, "210.5 40")
	}

	linkKey, err := e.Connect(key, 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, ok := s.LinkPosition(linkKey); !ok {
		t.Errorf("canonical state missing inserted link %d", linkKey)
	}

	if err := e.DeleteNode(key); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, ok := s.NodePosition(key); ok {
		t.Error("canonical state still indexes deleted node")
	}
	if _, ok := s.LinkPosition(linkKey); ok {
		t.Error("link attached to deleted node survived the cascade")
	}
}

func TestSelectionEvents(t *testing.T) {
	e, s := newWired(t, diagram.Sample())

	if !e.Select(2) {
		t.Fatal("Select(2) = false, want true")
	}
	if s.Selected() == nil || s.Selected().PartKey() != 2 {
		t.Fatalf("canonical selection = %v, want node 2", s.Selected())
	}

	if !e.Select(-1) {
		t.Fatal("Select(-1) = false, want true")
	}
	if _, ok := s.Selected().(*diagram.Link); !ok {
		t.Errorf("canonical selection = %T, want *diagram.Link", s.Selected())
	}

	e.ClearSelection()
	if s.Selected() != nil {
		t.Errorf("canonical selection = %v after clear, want nil", s.Selected())
	}

	if e.Select(99) {
		t.Error("Select(99) = true for unknown key")
	}
}

func TestDeleteSelectedEmitsClear(t *testing.T) {
	e, s := newWired(t, diagram.Sample())

	e.Select(3)
	if err := e.DeleteNode(3); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	if e.Selected() != nil {
		t.Error("engine selection survived deleting its part")
	}
	if s.Selected() != nil {
		t.Error("canonical selection survived deleting its part")
	}
}

func TestPushHonorsSkipFlag(t *testing.T) {
	e, s := newWired(t, diagram.Sample())

	e.AddNode(diagram.Attrs{"text": "Zeta"})
	internal := len(e.Model().Nodes)

	// The canonical state now mirrors the engine's own edit; pushing with
	// skip set must not disturb the internal model.
	e.Push(s.Snapshot(), s.SkipNextPush())
	if got := len(e.Model().Nodes); got != internal {
		t.Errorf("internal nodes = %d after skipped push, want %d", got, internal)
	}

	// A local edit clears the flag; the next push re-derives.
	s.SelectKey(0)
	if err := s.EditSelectedField("text", "Renamed", true); err != nil {
		t.Fatalf("EditSelectedField: %v", err)
	}
	e.Push(s.Snapshot(), s.SkipNextPush())

	if got := e.Model().Nodes[0].Attrs.String("text"); got != "Renamed" {
		t.Errorf("internal text = %q after push, want %q", got, "Renamed")
	}
}

func TestRelinkRespectsModelAttr(t *testing.T) {
	e, _ := newWired(t, diagram.Sample())

	if err := e.Relink(-1, 1, 2); err != nil {
		t.Fatalf("Relink with canRelink=true: %v", err)
	}

	e.SetModelAttr("canRelink", false)
	if err := e.Relink(-1, 0, 1); !errors.Is(err, ErrRelinkDisabled) {
		t.Errorf("Relink = %v, want ErrRelinkDisabled", err)
	}

	// Only a genuine bool false disables the gesture; values restored in
	// another shape (a JSON consumer writing "false") do not.
	e.SetModelAttr("canRelink", "false")
	if err := e.Relink(-1, 1, 2); err != nil {
		t.Errorf("Relink with non-bool canRelink: %v", err)
	}
}

func TestRelease(t *testing.T) {
	e := NewMemory()
	e.Push(diagram.Sample(), false)

	var events int
	release := e.OnModelChanged(func(diagram.ChangeSet) { events++ })

	e.AddNode(nil)
	release()
	e.AddNode(nil)

	if events != 1 {
		t.Errorf("events = %d after release, want 1", events)
	}
}

func TestUnknownKeysError(t *testing.T) {
	e := NewMemory()
	e.Push(diagram.Sample(), false)

	if err := e.MoveNode(42, 0, 0); !errors.Is(err, ErrUnknownPart) {
		t.Errorf("MoveNode = %v, want ErrUnknownPart", err)
	}
	if _, err := e.Connect(0, 42); !errors.Is(err, ErrUnknownPart) {
		t.Errorf("Connect = %v, want ErrUnknownPart", err)
	}
	if err := e.DeleteLink(-42); !errors.Is(err, ErrUnknownPart) {
		t.Errorf("DeleteLink = %v, want ErrUnknownPart", err)
	}
}
