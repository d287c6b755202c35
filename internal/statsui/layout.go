package statsui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
)

// frame clips s to height lines and pads each line to width columns.
func frame(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[:min(len(lines), height)]
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lo.Map(lines, func(line string, _ int) string {
		if gap := width - lipgloss.Width(line); gap > 0 {
			return line + strings.Repeat(" ", gap)
		}
		return line
	}), "\n")
}

func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// confirmWidth sizes the delete dialog: 40 to 80 columns.
func confirmWidth(termWidth int) int {
	return max(40, min(termWidth-4, 80))
}
