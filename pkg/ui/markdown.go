package ui

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qb/pkg/export"
	"github.com/vanderheijden86/qb/pkg/model"
)

// MarkdownRenderer renders markdown for the preview pane with glamour.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	useTheme bool
	theme    *Theme
}

// NewMarkdownRenderer creates a renderer using glamour's auto style.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width}
	mr.rebuild()
	return mr
}

// NewMarkdownRendererWithTheme creates a renderer whose colors follow theme.
func NewMarkdownRendererWithTheme(width int, theme Theme) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width, useTheme: true, theme: &theme}
	mr.rebuild()
	return mr
}

func (mr *MarkdownRenderer) rebuild() {
	var opts []glamour.TermRendererOption
	if mr.useTheme && mr.theme != nil {
		opts = append(opts, glamour.WithStyles(buildStyleFromTheme(*mr.theme, mr.IsDarkMode())))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	opts = append(opts, glamour.WithWordWrap(mr.width))

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		mr.renderer = nil
		return
	}
	mr.renderer = r
}

// Render renders markdown. Without a renderer the input is returned as-is.
func (mr *MarkdownRenderer) Render(markdown string) (string, error) {
	if mr.renderer == nil {
		return markdown, nil
	}
	return mr.renderer.Render(markdown)
}

// RenderQuestionnaire renders q through export.GenerateMarkdown.
func (mr *MarkdownRenderer) RenderQuestionnaire(q model.Questionnaire) (string, error) {
	return mr.Render(export.GenerateMarkdown(q))
}

// SetWidth rebuilds the renderer for a new wrap width.
func (mr *MarkdownRenderer) SetWidth(width int) {
	if width <= 0 || width == mr.width {
		return
	}
	mr.width = width
	mr.rebuild()
}

// SetWidthWithTheme switches to theme colors and a new width.
func (mr *MarkdownRenderer) SetWidthWithTheme(width int, theme Theme) {
	if width > 0 {
		mr.width = width
	}
	mr.useTheme = true
	mr.theme = &theme
	mr.rebuild()
}

// IsDarkMode reports whether the terminal background is dark.
func (mr *MarkdownRenderer) IsDarkMode() bool {
	return lipgloss.HasDarkBackground()
}

// RenderMarkdown renders q for a terminal of the given width.
func RenderMarkdown(q model.Questionnaire, width int) (string, error) {
	return NewMarkdownRenderer(width).RenderQuestionnaire(q)
}

func extractHex(c lipgloss.AdaptiveColor, dark bool) string {
	if dark {
		return c.Dark
	}
	return c.Light
}

// buildStyleFromTheme starts from glamour's stock style and recolors
// headings, emphasis, and links with the theme palette.
func buildStyleFromTheme(theme Theme, dark bool) ansi.StyleConfig {
	cfg := styles.LightStyleConfig
	docColor := "#000000"
	if dark {
		cfg = styles.DarkStyleConfig
		docColor = "#f8f8f2"
	}

	primary := extractHex(theme.Primary, dark)
	secondary := extractHex(theme.Secondary, dark)
	topic := extractHex(theme.Topic, dark)
	question := extractHex(theme.Question, dark)

	cfg.Document.Color = &docColor
	cfg.H1.Color = &primary
	cfg.H2.Color = &primary
	cfg.H3.Color = strPtr(extractHex(theme.SubCategory, dark))
	cfg.H4.Color = &topic
	cfg.Emph.Color = &question
	cfg.Link.Color = &secondary
	cfg.Table.Color = &secondary
	return cfg
}

func strPtr(s string) *string { return &s }
