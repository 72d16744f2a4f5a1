package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kheller/diagrid/pkg/diagram"
	"github.com/kheller/diagrid/pkg/engine"
	"github.com/kheller/diagrid/pkg/inspector"
	"github.com/kheller/diagrid/pkg/state"
)

// focusArea tracks which pane receives key input.
type focusArea int

const (
	focusCanvas focusArea = iota
	focusInspector
)

// nodeSpacing offsets newly added nodes so they don't stack.
const nodeSpacing = 40

// =============================================================================
// EditorModel - Interactive diagram editing
// =============================================================================

// EditorModel is the bubbletea model for the edit command. The left pane
// lists the diagram's parts and stands in for the canvas; part-level keys
// are forwarded to the in-memory engine as simulated gestures, so state
// flows through the same reconciliation path a real canvas would use. The
// right pane is the inspector form over the current selection.
type EditorModel struct {
	sync *engineSync
	eng  *engine.Memory

	focus       focusArea
	cursor      int
	fieldCursor int
	editBuf     string
	dirty       bool

	status    string
	statusErr bool

	width  int
	height int
}

// engineSync is the synchronizer wrapped with its engine subscriptions.
type engineSync struct {
	*state.Synchronizer
	releases []func()
}

func (s *engineSync) close() {
	for _, release := range s.releases {
		release()
	}
}

// NewEditorModel wires a memory engine to a fresh synchronizer seeded with
// the diagram and returns the model for tea.NewProgram.
func NewEditorModel(d diagram.Diagram) EditorModel {
	sync := &engineSync{Synchronizer: state.New(d)}
	eng := engine.NewMemory()
	eng.Push(sync.Snapshot(), sync.SkipNextPush())

	release := eng.OnModelChanged(func(c diagram.ChangeSet) {
		sync.ApplyChange(c)
	})
	releaseSel := eng.OnSelectionChanged(func(ref *engine.PartRef) {
		if ref == nil {
			sync.ClearSelection()
			return
		}
		sync.SelectKey(ref.Key)
	})
	sync.releases = []func(){release, releaseSel}

	return EditorModel{sync: sync, eng: eng, width: 100, height: 30}
}

// Snapshot returns the canonical diagram, for saving when the program ends.
func (m EditorModel) Snapshot() diagram.Diagram { return m.sync.Snapshot() }

func (m EditorModel) Init() tea.Cmd {
	return nil
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.focus == focusInspector {
			return m.updateInspector(msg)
		}
		return m.updateCanvas(msg)
	}
	return m, nil
}

// =============================================================================
// Canvas pane input
// =============================================================================

func (m EditorModel) updateCanvas(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.sync.close()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.partKeys())-1 {
			m.cursor++
		}

	case "enter", " ":
		if keys := m.partKeys(); len(keys) > 0 {
			m.eng.Select(keys[m.cursor])
			m.setStatus(fmt.Sprintf("selected %d", keys[m.cursor]), false)
		}

	case "esc":
		m.eng.ClearSelection()
		m.setStatus("selection cleared", false)

	case "n":
		key := m.eng.AddNode(diagram.Attrs{
			"text":  fmt.Sprintf("Node %d", diagram.NextNodeKey(m.sync.Nodes())),
			"color": "white",
			"loc":   fmt.Sprintf("%d %d", nodeSpacing*len(m.sync.Nodes()), 0),
		})
		m.pushDown()
		m.setStatus(fmt.Sprintf("added node %d", key), false)

	case "d":
		m.deleteSelected()

	case "c":
		m.connectToCursor()

	case "t":
		relink := m.sync.Metadata()["canRelink"] == true
		m.sync.SetMetadataField("canRelink", !relink)
		m.pushDown()
		m.setStatus(fmt.Sprintf("canRelink = %v", !relink), false)

	case "H", "L", "K", "J":
		m.nudgeSelected(msg.String())

	case "tab":
		if m.sync.Selected() != nil {
			m.focus = focusInspector
			m.fieldCursor = 1 // past the read-only key row
			m.loadFieldBuf()
		}
	}
	return m, nil
}

func (m *EditorModel) deleteSelected() {
	sel := m.sync.Selected()
	if sel == nil {
		m.setStatus("nothing selected", true)
		return
	}

	key := sel.PartKey()
	var err error
	if diagram.IsLinkKey(key) {
		err = m.eng.DeleteLink(key)
	} else {
		err = m.eng.DeleteNode(key)
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}

	if m.cursor >= len(m.partKeys()) && m.cursor > 0 {
		m.cursor--
	}
	m.pushDown()
	m.setStatus(fmt.Sprintf("deleted %d", key), false)
}

func (m *EditorModel) connectToCursor() {
	sel := m.sync.Selected()
	if sel == nil || diagram.IsLinkKey(sel.PartKey()) {
		m.setStatus("select a source node first", true)
		return
	}
	keys := m.partKeys()
	if len(keys) == 0 || diagram.IsLinkKey(keys[m.cursor]) {
		m.setStatus("cursor must be on a node", true)
		return
	}

	key, err := m.eng.Connect(sel.PartKey(), keys[m.cursor])
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.pushDown()
	m.setStatus(fmt.Sprintf("linked %d", key), false)
}

func (m *EditorModel) nudgeSelected(dir string) {
	sel, ok := m.sync.Selected().(*diagram.Node)
	if !ok {
		m.setStatus("select a node to move", true)
		return
	}

	x, y := parseLoc(sel.Attrs.String("loc"))
	switch dir {
	case "H":
		x -= 10
	case "L":
		x += 10
	case "K":
		y -= 10
	case "J":
		y += 10
	}
	if err := m.eng.MoveNode(sel.PartKey(), x, y); err != nil {
		m.setStatus(err.Error(), true)
	}
}

// =============================================================================
// Inspector pane input
// =============================================================================

func (m EditorModel) updateInspector(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := inspector.Rows(m.sync.Selected())
	if len(rows) == 0 {
		m.focus = focusCanvas
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		m.sync.close()
		return m, tea.Quit

	case "tab", "esc":
		m.commitField(rows)
		m.focus = focusCanvas

	case "up":
		m.commitField(rows)
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
		m.loadFieldBuf()

	case "down":
		m.commitField(rows)
		if m.fieldCursor < len(rows)-1 {
			m.fieldCursor++
		}
		m.loadFieldBuf()

	case "enter":
		m.commitField(rows)

	case "backspace":
		if row := rows[m.fieldCursor]; !row.ReadOnly && len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
			m.liveEdit(row.Field)
		}

	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			row := rows[m.fieldCursor]
			if row.ReadOnly {
				m.setStatus("key is read-only", true)
				return m, nil
			}
			m.editBuf += msg.String()
			m.liveEdit(row.Field)
		}
	}
	return m, nil
}

// loadFieldBuf seeds the edit buffer with the stored (unformatted) value of
// the row under the field cursor.
func (m *EditorModel) loadFieldBuf() {
	rows := inspector.Rows(m.sync.Selected())
	if m.fieldCursor >= len(rows) {
		m.fieldCursor = 0
	}
	m.editBuf = rawValue(m.sync.Selected(), rows[m.fieldCursor].Field)
	m.dirty = false
}

// liveEdit reports an uncommitted edit, giving the same keystroke-level
// feedback a canvas-side inspector would.
func (m *EditorModel) liveEdit(field string) {
	if err := m.sync.EditSelectedField(field, m.editBuf, false); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.dirty = true
}

// commitField commits the pending edit, if any, and pushes the committed
// state down to the engine. Losing focus commits, matching blur semantics.
func (m *EditorModel) commitField(rows []inspector.Row) {
	if !m.dirty || rows[m.fieldCursor].ReadOnly {
		return
	}
	field := rows[m.fieldCursor].Field
	if err := m.sync.EditSelectedField(field, m.editBuf, true); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.pushDown()
	m.dirty = false
	m.setStatus(fmt.Sprintf("%s updated", field), false)
}

// =============================================================================
// Shared helpers
// =============================================================================

// pushDown hands canonical state to the engine, honoring push suppression.
func (m *EditorModel) pushDown() {
	m.eng.Push(m.sync.Snapshot(), m.sync.SkipNextPush())
}

func (m *EditorModel) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

// partKeys returns all part keys in list order: nodes first, then links.
func (m EditorModel) partKeys() []int {
	keys := make([]int, 0, len(m.sync.Nodes())+len(m.sync.Links()))
	for _, n := range m.sync.Nodes() {
		keys = append(keys, n.Key)
	}
	for _, l := range m.sync.Links() {
		keys = append(keys, l.Key)
	}
	return keys
}

func parseLoc(s string) (float64, float64) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0, 0
	}
	x, _ := strconv.ParseFloat(parts[0], 64)
	y, _ := strconv.ParseFloat(parts[1], 64)
	return x, y
}

// rawValue returns the stored value of a field without display formatting,
// so editing starts from full precision.
func rawValue(p diagram.Part, field string) string {
	if p == nil {
		return ""
	}
	switch field {
	case "key":
		return strconv.Itoa(p.PartKey())
	case "from":
		if l, ok := p.(*diagram.Link); ok {
			return strconv.Itoa(l.From)
		}
	case "to":
		if l, ok := p.(*diagram.Link); ok {
			return strconv.Itoa(l.To)
		}
	}
	return p.PartAttrs().String(field)
}

// =============================================================================
// View
// =============================================================================

func (m EditorModel) View() string {
	left := m.viewParts()
	right := m.viewInspector()

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		stylePane.Render(left),
		stylePane.Render(right),
	)

	status := styleDim.Render("n add  c connect  d delete  t relink  HJKL move  ⇥ inspector  q quit")
	if m.status != "" {
		if m.statusErr {
			status = styleError.Render(m.status)
		} else {
			status = styleSuccess.Render(m.status)
		}
	}

	return panes + "\n" + status + "\n"
}

func (m EditorModel) viewParts() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Diagram"))
	b.WriteString("\n\n")

	selKey := 0
	hasSel := false
	if sel := m.sync.Selected(); sel != nil {
		selKey = sel.PartKey()
		hasSel = true
	}

	keys := m.partKeys()
	for i, key := range keys {
		cursor := "  "
		if i == m.cursor && m.focus == focusCanvas {
			cursor = "▸ "
		}
		marker := " "
		if hasSel && key == selKey {
			marker = "●"
		}

		line := cursor + marker + " " + m.partLine(key)
		if i == m.cursor && m.focus == focusCanvas {
			b.WriteString(styleSelected.Render(line))
		} else {
			b.WriteString(styleNormal.Render(line))
		}
		b.WriteString("\n")
	}
	if len(keys) == 0 {
		b.WriteString(styleDim.Render("empty diagram — n adds a node"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleDim.Render(fmt.Sprintf("canRelink: %v", m.sync.Metadata()["canRelink"])))
	return b.String()
}

func (m EditorModel) partLine(key int) string {
	if diagram.IsLinkKey(key) {
		i, ok := m.sync.LinkPosition(key)
		if !ok {
			return fmt.Sprintf("%d ?", key)
		}
		l := m.sync.Links()[i]
		return fmt.Sprintf("%d  %d → %d", l.Key, l.From, l.To)
	}

	i, ok := m.sync.NodePosition(key)
	if !ok {
		return fmt.Sprintf("%d ?", key)
	}
	n := m.sync.Nodes()[i]
	return fmt.Sprintf("%d  %-12s %s", n.Key, n.Attrs.String("text"),
		inspector.DisplayValue("loc", n.Attrs.String("loc")))
}

func (m EditorModel) viewInspector() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Inspector"))
	b.WriteString("\n\n")

	rows := inspector.Rows(m.sync.Selected())
	if len(rows) == 0 {
		b.WriteString(styleDim.Render("no selection"))
		return b.String()
	}

	for i, row := range rows {
		cursor := "  "
		if i == m.fieldCursor && m.focus == focusInspector {
			cursor = "▸ "
		}

		value := row.Value
		if i == m.fieldCursor && m.focus == focusInspector && !row.ReadOnly {
			value = m.editBuf + "▏"
		}

		line := fmt.Sprintf("%s%-8s %s", cursor, row.Field, value)
		switch {
		case row.ReadOnly:
			b.WriteString(styleReadOnly.Render(line))
		case i == m.fieldCursor && m.focus == focusInspector:
			b.WriteString(styleSelected.Render(line))
		default:
			b.WriteString(styleNormal.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleDim.Render("type to edit  ⏎ commit  ↑/↓ field  esc back"))
	return b.String()
}
