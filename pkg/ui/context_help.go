package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies which part of the editor has focus.
type Context int

const (
	ContextTree Context = iota
	ContextRename
	ContextAnswerPicker
	ContextTemplatePicker
	ContextPreview
	ContextNotify
	ContextHelp
)

func (c Context) String() string {
	switch c {
	case ContextTree:
		return "tree"
	case ContextRename:
		return "rename"
	case ContextAnswerPicker:
		return "answer-type"
	case ContextTemplatePicker:
		return "templates"
	case ContextPreview:
		return "preview"
	case ContextNotify:
		return "notify"
	case ContextHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ContextHelpContent contains compact help content for each context.
// Content should fit on one screen (~20 lines) without scrolling.
var ContextHelpContent = map[Context]string{
	ContextTree:           contextHelpTree,
	ContextRename:         contextHelpRename,
	ContextAnswerPicker:   contextHelpAnswerPicker,
	ContextTemplatePicker: contextHelpTemplatePicker,
	ContextPreview:        contextHelpPreview,
	ContextNotify:         contextHelpNotify,
}

// GetContextHelp returns the help content for a given context.
// Falls back to the tree help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpTree
}

// RenderContextHelp renders the context-specific help modal.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)

	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(theme.Primary)

	contentStyle := r.NewStyle().
		Foreground(theme.Subtext)

	footerStyle := r.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Esc or ? to close"))

	modal := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())

	if width <= 0 || height <= 0 {
		return modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

const contextHelpTree = `## Questionnaire Tree

**Navigation**
  j/k       Move up/down
  g/G       Jump to top/bottom
  h/l       Parent / first child
  Enter     Expand or collapse

**Editing**
  c         Add category
  a         Add child to selection
  r         Rename selection
  t         Answer type (questions)
  O         Options (multiple choice)
  d         Delete selection and subtree

**Questionnaire**
  T         Edit title
  D         Edit description
  s         Save
  p         Preview as markdown
  o         Start from a template
  y         Copy last link
  n         Email the last link
  q         Quit`

const contextHelpRename = `## Rename

  Enter     Apply name
  Esc       Cancel

Category names must be unique.`

const contextHelpAnswerPicker = `## Answer Type

  j/k       Move selection
  Enter     Apply
  Esc       Cancel

**Types**
  text      Free text
  yes_no    Yes / No
  scale     Rating from 1 to 5
  choice    Multiple choice`

const contextHelpTemplatePicker = `## Templates

  j/k       Move selection
  /         Filter by title
  Enter     Load as starting point
  Esc       Close

Loading replaces the current document.`

const contextHelpPreview = `## Preview

  j/k       Scroll
  PgUp/PgDn Page
  Esc/p     Back to tree`

const contextHelpNotify = `## Notify

Type the respondent's email address.

  Enter     Send
  Esc       Cancel`
