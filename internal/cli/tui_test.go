package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kheller/diagrid/pkg/diagram"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, m EditorModel, keys ...string) EditorModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		var ok bool
		m, ok = next.(EditorModel)
		if !ok {
			t.Fatalf("Update returned %T, want EditorModel", next)
		}
	}
	return m
}

func TestEditorAddAndSelectNode(t *testing.T) {
	m := NewEditorModel(diagram.Diagram{Metadata: diagram.Attrs{"canRelink": true}})

	m = press(t, m, "n")
	if got := len(m.sync.Nodes()); got != 1 {
		t.Fatalf("nodes = %d, want 1", got)
	}

	m = press(t, m, "enter")
	sel := m.sync.Selected()
	if sel == nil {
		t.Fatal("expected a selection after enter")
	}
	if got, want := sel.PartKey(), 0; got != want {
		t.Errorf("selected key = %d, want %d", got, want)
	}
}

func TestEditorConnectAndDelete(t *testing.T) {
	m := NewEditorModel(diagram.Diagram{Metadata: diagram.Attrs{"canRelink": true}})

	// Two nodes, select the first, move cursor to the second, connect.
	m = press(t, m, "n", "n", "up", "enter", "down", "c")
	if got := len(m.sync.Links()); got != 1 {
		t.Fatalf("links = %d, want 1", got)
	}
	link := m.sync.Links()[0]
	if link.From != 0 || link.To != 1 {
		t.Errorf("link = %d -> %d, want 0 -> 1", link.From, link.To)
	}

	// Deleting the source node cascades to the link.
	m = press(t, m, "up", "up", "enter", "d")
	if got := len(m.sync.Nodes()); got != 1 {
		t.Errorf("nodes = %d, want 1", got)
	}
	if got := len(m.sync.Links()); got != 0 {
		t.Errorf("links = %d, want 0", got)
	}
	if m.sync.Selected() != nil {
		t.Error("selection should clear when its part is deleted")
	}
}

func TestEditorInspectorCommit(t *testing.T) {
	m := NewEditorModel(diagram.Sample())

	// Select the first node and rename it through the inspector. Rows are
	// key, then attributes in sorted order: color, loc, text.
	m = press(t, m, "enter", "tab")
	if m.focus != focusInspector {
		t.Fatal("tab should move focus to the inspector")
	}
	m = press(t, m, "down", "down")

	// Clear the seeded buffer, then type a new value and commit.
	for range m.editBuf {
		m = press(t, m, "backspace")
	}
	m = press(t, m, "R", "e", "n", "a", "m", "e", "d", "enter")

	i, ok := m.sync.NodePosition(0)
	if !ok {
		t.Fatal("node 0 missing from index")
	}
	if got, want := m.sync.Nodes()[i].Attrs.String("text"), "Renamed"; got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
	// Commit also lands in the engine-facing snapshot.
	snap := m.Snapshot()
	if got, want := snap.Nodes[i].Attrs.String("text"), "Renamed"; got != want {
		t.Errorf("snapshot text = %q, want %q", got, want)
	}
}

func TestEditorMetadataToggle(t *testing.T) {
	m := NewEditorModel(diagram.Sample())

	if m.sync.Metadata()["canRelink"] != true {
		t.Fatal("sample should start with canRelink = true")
	}
	m = press(t, m, "t")
	if m.sync.Metadata()["canRelink"] != false {
		t.Error("t should toggle canRelink off")
	}
}

func TestEditorViewRenders(t *testing.T) {
	m := NewEditorModel(diagram.Sample())
	m = press(t, m, "enter")

	view := m.View()
	if !strings.Contains(view, "Diagram") {
		t.Error("view missing parts pane title")
	}
	if !strings.Contains(view, "Inspector") {
		t.Error("view missing inspector pane title")
	}
	if !strings.Contains(view, "key") {
		t.Error("inspector should show the key row for the selection")
	}
}
