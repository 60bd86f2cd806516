// tree.go - Collapsible view of the questionnaire hierarchy
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qb/pkg/tree"
)

// treeRow is one visible line of the tree.
type treeRow struct {
	node     tree.Node
	path     tree.Path
	key      string // position identifier, e.g. "topic-0-1-2"
	expanded bool
	// lastAt[i] is true when the ancestor at depth i (or the node itself
	// for the final entry) is the last of its siblings.
	lastAt []bool
}

func (r treeRow) depth() int { return len(r.path) - 1 }

// TreeModel renders a document snapshot and tracks the cursor. It never
// mutates the document; expansion changes go through the session.
type TreeModel struct {
	doc      *tree.Document
	expanded tree.ExpandedSet
	rows     []treeRow
	cursor   int
	offset   int // index of first visible row
	width    int
	height   int
	theme    Theme
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{theme: theme, doc: tree.NewDocument("")}
}

// SetSize updates the available dimensions for the tree view
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureVisible()
}

// Sync rebuilds the visible rows from a snapshot. The cursor stays on the
// same node when it still exists, otherwise it is clamped.
func (t *TreeModel) Sync(doc *tree.Document, expanded tree.ExpandedSet) {
	var selected tree.NodeID
	if n, ok := t.SelectedNode(); ok {
		selected = n.ID
	}

	t.doc = doc
	t.expanded = expanded
	t.rows = nil

	var lastStack []bool
	doc.Walk(func(n tree.Node, p tree.Path) bool {
		siblings := doc.Roots()
		if n.Parent != "" {
			siblings = doc.ChildrenOf(n.Parent)
		}
		last := p[len(p)-1] == len(siblings)-1

		lastStack = append(lastStack[:len(p)-1], last)
		isExpanded := expanded.Contains(n.ID)
		t.rows = append(t.rows, treeRow{
			node:     n,
			path:     p,
			key:      tree.PathIdentifier(p),
			expanded: isExpanded,
			lastAt:   append([]bool(nil), lastStack...),
		})
		return isExpanded
	})

	if selected == "" || !t.SelectByID(selected) {
		t.clampCursor()
	}
	t.ensureVisible()
}

// View renders the visible rows.
func (t *TreeModel) View() string {
	if len(t.rows) == 0 {
		return t.renderEmptyState()
	}

	start, end := t.visibleRange()
	var sb strings.Builder
	for i := start; i < end; i++ {
		line := t.renderRow(t.rows[i])
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	titleStyle := r.NewStyle().Foreground(t.theme.Primary).Bold(true)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Empty questionnaire"))
	sb.WriteString("\n\n")
	sb.WriteString(t.theme.MutedText.Render("Press c to add a category."))
	return sb.String()
}

func (t *TreeModel) renderRow(row treeRow) string {
	r := t.theme.Renderer
	var sb strings.Builder

	prefix := t.buildTreePrefix(row)
	sb.WriteString(prefix)

	indicator := t.expandIndicator(row)
	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(indicator))
	sb.WriteString(" ")

	kind := row.node.Kind
	sb.WriteString(r.NewStyle().Foreground(t.theme.KindColor(kind)).Render(KindIcon(kind)))
	sb.WriteString(" ")

	var badge string
	if kind == tree.KindQuestion {
		badge = " " + AnswerBadge(row.node.AnswerType)
	} else if n := len(row.node.Children); n > 0 && !row.expanded {
		badge = fmt.Sprintf(" (%d)", n)
	}

	used := lipgloss.Width(prefix) + 4 + lipgloss.Width(badge)
	maxName := t.width - used - 2
	if maxName < 10 {
		maxName = 10
	}

	name := truncate(displayName(row.node), maxName)
	if strings.TrimSpace(row.node.Name) == "" {
		sb.WriteString(t.theme.MutedText.Italic(true).Render(name))
	} else {
		sb.WriteString(name)
	}
	if badge != "" {
		sb.WriteString(t.theme.MutedText.Render(badge))
	}
	return sb.String()
}

// buildTreePrefix builds the indentation and branch characters for a row.
func (t *TreeModel) buildTreePrefix(row treeRow) string {
	if row.depth() == 0 {
		return ""
	}
	var parts []string
	for i := 0; i < row.depth()-1; i++ {
		// lastAt[i+1] describes the ancestor at depth i+1
		if row.lastAt[i+1] {
			parts = append(parts, "    ")
		} else {
			parts = append(parts, "│   ")
		}
	}
	if row.lastAt[len(row.lastAt)-1] {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}
	return t.theme.MutedText.Render(strings.Join(parts, ""))
}

func (t *TreeModel) expandIndicator(row treeRow) string {
	if len(row.node.Children) == 0 {
		return "•"
	}
	if row.expanded {
		return "▾"
	}
	return "▸"
}

// SelectedNode returns the node under the cursor.
func (t *TreeModel) SelectedNode() (tree.Node, bool) {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return tree.Node{}, false
	}
	return t.rows[t.cursor].node, true
}

// SelectedPath returns the index path of the node under the cursor.
func (t *TreeModel) SelectedPath() (tree.Path, bool) {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return nil, false
	}
	return t.rows[t.cursor].path, true
}

// SelectedKey returns the position identifier of the selected row.
func (t *TreeModel) SelectedKey() string {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return ""
	}
	return t.rows[t.cursor].key
}

// SelectByID moves the cursor to the row showing id.
// Returns true if found, false otherwise.
func (t *TreeModel) SelectByID(id tree.NodeID) bool {
	for i, row := range t.rows {
		if row.node.ID == id {
			t.cursor = i
			t.ensureVisible()
			return true
		}
	}
	return false
}

// MoveDown moves the cursor down one row.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		t.ensureVisible()
	}
}

// MoveUp moves the cursor up one row.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureVisible()
	}
}

// JumpToTop moves the cursor to the first row.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureVisible()
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeModel) JumpToBottom() {
	if len(t.rows) > 0 {
		t.cursor = len(t.rows) - 1
	}
	t.ensureVisible()
}

// JumpToParent moves the cursor to the parent of the selected row.
func (t *TreeModel) JumpToParent() {
	n, ok := t.SelectedNode()
	if !ok || n.Parent == "" {
		return
	}
	t.SelectByID(n.Parent)
}

// MoveToFirstChild moves the cursor to the first child of an expanded row.
func (t *TreeModel) MoveToFirstChild() bool {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return false
	}
	row := t.rows[t.cursor]
	if !row.expanded || len(row.node.Children) == 0 {
		return false
	}
	return t.SelectByID(row.node.Children[0])
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor += t.pageSize()
	t.clampCursor()
	t.ensureVisible()
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor -= t.pageSize()
	t.clampCursor()
	t.ensureVisible()
}

func (t *TreeModel) pageSize() int {
	if n := t.height / 2; n >= 1 {
		return n
	}
	return 5
}

// RowCount returns the number of visible rows.
func (t *TreeModel) RowCount() int {
	return len(t.rows)
}

// Cursor returns the selected row index.
func (t *TreeModel) Cursor() int {
	return t.cursor
}

func (t *TreeModel) clampCursor() {
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t *TreeModel) viewHeight() int {
	if t.height <= 0 {
		return 20
	}
	return t.height
}

// ensureVisible scrolls so the cursor row is on screen.
func (t *TreeModel) ensureVisible() {
	h := t.viewHeight()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+h {
		t.offset = t.cursor - h + 1
	}
	if limit := len(t.rows) - h; t.offset > limit {
		t.offset = limit
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// visibleRange returns the [start, end) rows that fit the viewport.
func (t *TreeModel) visibleRange() (start, end int) {
	start = t.offset
	end = start + t.viewHeight()
	if end > len(t.rows) {
		end = len(t.rows)
	}
	return start, end
}
