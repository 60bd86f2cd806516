package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qb/pkg/model"
	"github.com/vanderheijden86/qb/pkg/tree"
)

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Node kinds
	Category    lipgloss.AdaptiveColor
	SubCategory lipgloss.AdaptiveColor
	Topic       lipgloss.AdaptiveColor
	Question    lipgloss.AdaptiveColor

	// Feedback
	Success lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	MutedText   lipgloss.Style
	PrimaryBold lipgloss.Style
	ErrorText   lipgloss.Style
	SuccessText lipgloss.Style
	KeyText     lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Category:    lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		SubCategory: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Topic:       lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Question:    lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},

		Success: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Error:   lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Warning: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.ErrorText = r.NewStyle().Foreground(t.Error).Bold(true)
	t.SuccessText = r.NewStyle().Foreground(t.Success)
	t.KeyText = r.NewStyle().Foreground(t.SubCategory).Bold(true)

	return t
}

// KindColor returns the accent color for a node kind.
func (t Theme) KindColor(k tree.NodeKind) lipgloss.AdaptiveColor {
	switch k {
	case tree.KindCategory:
		return t.Category
	case tree.KindSubCategory:
		return t.SubCategory
	case tree.KindTopic:
		return t.Topic
	case tree.KindQuestion:
		return t.Question
	default:
		return t.Subtext
	}
}

// KindIcon returns the glyph shown before a node of kind k.
func KindIcon(k tree.NodeKind) string {
	switch k {
	case tree.KindCategory:
		return "■"
	case tree.KindSubCategory:
		return "◆"
	case tree.KindTopic:
		return "●"
	case tree.KindQuestion:
		return "?"
	default:
		return "·"
	}
}

// AnswerBadge returns a short tag for an answer type, e.g. "[y/n]".
func AnswerBadge(a model.AnswerType) string {
	switch a {
	case model.AnswerText:
		return "[text]"
	case model.AnswerYesNo:
		return "[y/n]"
	case model.AnswerScale:
		return "[1-5]"
	case model.AnswerMultipleChoice:
		return "[choice]"
	default:
		return "[" + string(a) + "]"
	}
}
