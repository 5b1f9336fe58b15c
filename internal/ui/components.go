package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/pulse/internal/player"
)

const indent = "  "

// Rows above the blob: blank, header, blank. Rows below it: blank, the
// controller rows, blank, help.
const (
	rowsAbove      = 3
	rowsBelowFixed = 3
)

func renderHeader(meta player.Metadata, loading string) string {
	s := headerStyle.Render("pulse")
	if meta.Title != "" {
		s += "  " + titleStyle.Render(meta.Title)
	}
	if meta.Artist != "" {
		s += "  " + artistStyle.Render(meta.Artist)
	}
	if loading != "" {
		s += "  " + statusStyle.Render(loading)
	}
	return s
}

func indentBlock(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// padToHeight appends empty lines until s spans height rows.
func padToHeight(s string, height int) string {
	if missing := height - lipgloss.Height(s); missing > 0 {
		s += strings.Repeat("\n", missing)
	}
	return s
}

func windowTitle(title string, playing bool) string {
	if title == "" {
		title = "pulse"
	} else {
		title += " · pulse"
	}
	if playing {
		return "▶ " + title
	}
	return "⏸ " + title
}
