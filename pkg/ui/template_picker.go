package ui

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qb/pkg/model"
)

// PickTemplateMsg is sent when the user chooses a template to start from.
type PickTemplateMsg struct {
	ID string
}

// PickerClosedMsg is sent when the picker is dismissed without a choice.
type PickerClosedMsg struct{}

// TemplatePickerModel lists the user's questionnaires so one can be loaded as
// a starting template. Typing "/" filters by title.
type TemplatePickerModel struct {
	entries     []model.QuestionnaireSummary
	filtered    []int // indices into entries
	cursor      int
	width       int
	height      int
	filterInput textinput.Model
	filtering   bool
	theme       Theme
}

// NewTemplatePicker creates a picker over entries.
func NewTemplatePicker(entries []model.QuestionnaireSummary, theme Theme) TemplatePickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30

	m := TemplatePickerModel{
		entries:     entries,
		filterInput: ti,
		theme:       theme,
	}
	m.applyFilter()
	return m
}

// SetSize updates the picker dimensions.
func (m *TemplatePickerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles keyboard input for the picker.
func (m TemplatePickerModel) Update(msg tea.Msg) (TemplatePickerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.filtering {
			return m.updateFiltering(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m TemplatePickerModel) updateNormal(msg tea.KeyMsg) (TemplatePickerModel, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.filtering = true
		m.filterInput.Focus()
	case "j", "down":
		m.moveDown()
	case "k", "up":
		m.moveUp()
	case "enter":
		return m, m.choose()
	case "esc", "q":
		return m, func() tea.Msg { return PickerClosedMsg{} }
	}
	return m, nil
}

func (m TemplatePickerModel) updateFiltering(msg tea.KeyMsg) (TemplatePickerModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, m.choose()
	case "up":
		m.moveUp()
		return m, nil
	case "down":
		m.moveDown()
		return m, nil
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
}

func (m *TemplatePickerModel) moveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

func (m *TemplatePickerModel) moveDown() {
	if m.cursor < len(m.filtered)-1 {
		m.cursor++
	}
}

func (m TemplatePickerModel) choose() tea.Cmd {
	entry := m.SelectedEntry()
	if entry == nil {
		return nil
	}
	id := entry.ID
	return func() tea.Msg { return PickTemplateMsg{ID: id} }
}

// applyFilter updates the filtered indices based on the current filter input.
func (m *TemplatePickerModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
		m.clampCursor()
		return
	}

	type scored struct {
		index int
		score int
	}
	var matches []scored
	for i, entry := range m.entries {
		if s := fuzzyScore(entry.Title, query); s > 0 {
			matches = append(matches, scored{i, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	m.filtered = make([]int, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.index
	}
	m.clampCursor()
}

func (m *TemplatePickerModel) clampCursor() {
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// fuzzyScore ranks how well query matches label; 0 means no match.
func fuzzyScore(label, query string) int {
	label = strings.ToLower(label)
	query = strings.ToLower(query)

	if label == query {
		return 1000
	}
	if strings.HasPrefix(label, query) {
		return 500 + len(query)
	}
	if strings.Contains(label, query) {
		return 200 + len(query)
	}

	// Subsequence match
	li, qi := 0, 0
	score := 0
	consecutive := 0
	lastMatchIdx := -1

	for li < len(label) && qi < len(query) {
		if label[li] == query[qi] {
			qi++
			matchScore := 10
			if lastMatchIdx == li-1 {
				consecutive++
				matchScore += consecutive * 5
			} else {
				consecutive = 0
			}
			if li == 0 || !unicode.IsLetter(rune(label[li-1])) {
				matchScore += 15
			}
			score += matchScore
			lastMatchIdx = li
		}
		li++
	}

	if qi == len(query) {
		return score
	}
	return 0
}

// View renders the picker as a centered box.
func (m *TemplatePickerModel) View() string {
	if m.width == 0 {
		m.width = 80
	}
	if m.height == 0 {
		m.height = 24
	}
	t := m.theme

	boxWidth := 60
	if m.width < 70 {
		boxWidth = m.width - 10
	}
	if boxWidth < 30 {
		boxWidth = 30
	}

	var lines []string
	title := fmt.Sprintf("Start from template [%d]", len(m.filtered))
	lines = append(lines, t.PrimaryBold.Render(title), "")

	if m.filtering || m.filterInput.Value() != "" {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Primary).Render("/ "+m.filterInput.View()), "")
	}

	if len(m.filtered) == 0 {
		lines = append(lines, t.MutedText.Italic(true).Render("No questionnaires found."))
	}

	maxRows := m.height - 12
	if maxRows < 3 {
		maxRows = 3
	}
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	for i := start; i < len(m.filtered) && i < start+maxRows; i++ {
		entry := m.entries[m.filtered[i]]
		name := entry.Title
		if strings.TrimSpace(name) == "" {
			name = "(untitled)"
		}
		nameWidth := (boxWidth - 8) / 2
		if entry.Description == "" {
			nameWidth = boxWidth - 8
		}
		name = padRight(truncate(name, nameWidth), nameWidth)
		desc := ""
		if entry.Description != "" {
			desc = " " + t.MutedText.Render(truncate(entry.Description, boxWidth-8-nameWidth-1))
		}
		if i == m.cursor {
			lines = append(lines, t.PrimaryBold.Render("> "+name)+desc)
		} else {
			lines = append(lines, t.Base.Render("  "+name)+desc)
		}
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | /: filter | enter: load | esc: close"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// Filtering returns whether the picker is in filter mode.
func (m *TemplatePickerModel) Filtering() bool {
	return m.filtering
}

// FilteredCount returns the number of entries matching the current filter.
func (m *TemplatePickerModel) FilteredCount() int {
	return len(m.filtered)
}

// SelectedEntry returns the highlighted entry, or nil if none.
func (m *TemplatePickerModel) SelectedEntry() *model.QuestionnaireSummary {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	entry := m.entries[m.filtered[m.cursor]]
	return &entry
}
