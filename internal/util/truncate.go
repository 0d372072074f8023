// Package util holds small helpers shared across the engine's host
// surfaces.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Truncate clamps s to width visual columns, appending "..." when
// anything was trimmed. Styled input is safe: ANSI escape sequences are
// preserved rather than counted, and wide characters count by their
// display width. Widths of 3 or less leave room for nothing but the
// ellipsis.
func Truncate(s string, width int) string {
	if width <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	// ansi.Truncate counts the tail toward the final width.
	return ansi.Truncate(s, width, "...")
}
