package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qb/pkg/model"
)

// AnswerTypePickerModel provides a quick answer type selection modal
type AnswerTypePickerModel struct {
	types         []model.AnswerType
	currentType   model.AnswerType // Selected question's answer type
	selectedIndex int              // Which type is highlighted
	width         int
	height        int
	theme         Theme
}

// NewAnswerTypePickerModel creates a new answer type picker
func NewAnswerTypePickerModel(current model.AnswerType, theme Theme) AnswerTypePickerModel {
	types := model.AnswerTypes()

	selectedIdx := 0
	for i, at := range types {
		if at == current {
			selectedIdx = i
			break
		}
	}

	return AnswerTypePickerModel{
		types:         types,
		currentType:   current,
		selectedIndex: selectedIdx,
		theme:         theme,
	}
}

// SetSize updates the picker dimensions
func (m *AnswerTypePickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *AnswerTypePickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *AnswerTypePickerModel) MoveDown() {
	if m.selectedIndex < len(m.types)-1 {
		m.selectedIndex++
	}
}

// Selected returns the highlighted answer type
func (m *AnswerTypePickerModel) Selected() model.AnswerType {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.types) {
		return m.types[m.selectedIndex]
	}
	return model.DefaultAnswerType
}

// View renders the picker overlay
func (m *AnswerTypePickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 35
	if m.width < 45 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render("Answer Type"))
	lines = append(lines, "")

	for i, at := range m.types {
		isSelected := i == m.selectedIndex

		itemStyle := t.Renderer.NewStyle()
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		prefix := "  "
		if isSelected {
			prefix = "> "
		}

		suffix := ""
		if at == m.currentType {
			suffix = " " + t.Renderer.NewStyle().Foreground(t.Secondary).Render("✓")
		}

		lines = append(lines, itemStyle.Render(prefix+at.Label())+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: apply | esc: cancel"))

	content := strings.Join(lines, "\n")

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(content),
	)
}
