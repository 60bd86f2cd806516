package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/qb/pkg/tree"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// truncate truncates s to maxWidth cells with an ellipsis.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// displayName returns the name to show for a node, with a placeholder for
// blank names.
func displayName(n tree.Node) string {
	if strings.TrimSpace(n.Name) != "" {
		return n.Name
	}
	switch n.Kind {
	case tree.KindCategory:
		return "(unnamed category)"
	case tree.KindSubCategory:
		return "(unnamed subcategory)"
	case tree.KindTopic:
		return "(unnamed topic)"
	case tree.KindQuestion:
		return "(empty question)"
	default:
		return "(unnamed)"
	}
}

func kindLabel(k tree.NodeKind) string {
	switch k {
	case tree.KindSubCategory:
		return "Subcategory"
	case tree.KindTopic:
		return "Topic"
	case tree.KindQuestion:
		return "Question"
	default:
		return "Category"
	}
}
