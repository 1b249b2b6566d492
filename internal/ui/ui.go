// Package ui provides shared rendering helpers for the devbox shell.
package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/abdullathedruid/devbox/internal/config"
	"github.com/abdullathedruid/devbox/internal/workspace"
)

// Colors and styles for the TUI
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
)

// Tree glyphs.
const (
	iconCollapsed = "▸ "
	iconExpanded  = "▾ "
	iconLeaf      = "  "
)

// TreeRow renders one visible tree row: indentation, an expand marker for
// directories, then the name, padded or truncated to width.
func TreeRow(r workspace.Row, width int) string {
	icon := iconLeaf
	if !r.IsLeaf {
		icon = iconCollapsed
		if r.Expanded {
			icon = iconExpanded
		}
	}
	name := r.Name
	if !r.IsLeaf {
		name += "/"
	}
	return PadRight(strings.Repeat("  ", r.Depth)+icon+name, width)
}

// EmptyTreeText is shown when the root has no entries.
const EmptyTreeText = "\n  Empty workspace.\n\n  Press 'a' to create\n  a file."

// Truncate shortens a string to fit in the given width.
func Truncate(s string, width int) string {
	return truncate(s, width)
}

// truncate is the internal version of Truncate.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

// TruncateLeft keeps the end of s, which is the informative part of a path.
func TruncateLeft(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.TruncateLeft(s, runewidth.StringWidth(s)-width, "")
	}
	return runewidth.TruncateLeft(s, runewidth.StringWidth(s)-width+3, "...")
}

// PadRight pads a string to the right.
func PadRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return runewidth.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// Center centers a string in the given width.
func Center(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return runewidth.Truncate(s, width, "")
	}
	padding := (width - sw) / 2
	return strings.Repeat(" ", padding) + s + strings.Repeat(" ", width-sw-padding)
}

// StatusBar lays out left and right segments across width, truncating the
// left segment first.
func StatusBar(left, right string, width int) string {
	rw := runewidth.StringWidth(right)
	if rw >= width {
		return runewidth.Truncate(right, width, "")
	}
	room := width - rw - 1
	left = truncate(left, room)
	return PadRight(left, room) + " " + right
}

// HelpText returns the help screen content for the configured keys.
func HelpText(k config.KeyBindings) string {
	return fmt.Sprintf(`devbox - remote workspace

Global
  %-12s Quit
  %-12s Cycle focus
  %-12s Focus tree / editor / terminal
  %-12s Save now
  %-12s Show unsaved changes

Tree
  up/down      Move
  enter        Open file or enter folder
  right/left   Expand / collapse
  %-12s New file
  %-12s New folder
  %-12s Rename
  %-12s Delete
  %-12s Refresh

Editor
  Changes save automatically after a short pause.

Terminal
  Keys go to the remote shell. ctrl+l clears the screen.

Press esc to close this help.`,
		k.Quit, k.FocusNext, k.FocusTree+" "+k.FocusEditor+" "+k.FocusTerminal,
		k.Save, k.Diff,
		k.NewFile, k.NewFolder, k.Rename, k.Delete, k.Refresh)
}

// WrapText wraps text to fit within the given width.
func WrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			lines = append(lines, line)
			continue
		}

		// Wrap long lines
		for runewidth.StringWidth(line) > width {
			breakIdx := 0
			currentWidth := 0
			lastSpace := -1
			for i, r := range line {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakIdx = i + len(string(r))
				if r == ' ' {
					lastSpace = breakIdx
				}
			}
			if lastSpace > 0 {
				breakIdx = lastSpace
			}
			lines = append(lines, line[:breakIdx])
			line = strings.TrimSpace(line[breakIdx:])
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

// ColorizeDiff colors unified diff lines for display.
func ColorizeDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = ColorBold + l + ColorReset
		case strings.HasPrefix(l, "@@"):
			lines[i] = ColorCyan + l + ColorReset
		case strings.HasPrefix(l, "+"):
			lines[i] = ColorGreen + l + ColorReset
		case strings.HasPrefix(l, "-"):
			lines[i] = ColorRed + l + ColorReset
		}
	}
	return strings.Join(lines, "\n")
}
