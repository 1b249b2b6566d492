package ui

import (
	"fmt"
	"strings"

	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/devbox/internal/terminal"
)

var (
	heavyFrame   = []rune{'━', '┃', '┏', '┓', '┗', '┛'}
	regularFrame = []rune{'─', '│', '┌', '┐', '└', '┘'}
)

// RenderTerminal renders a terminal screen's content to a gocui view.
// Recovers from panics that can occur during resize race conditions.
func RenderTerminal(v *gocui.View, screen *terminal.Screen) {
	defer func() {
		if r := recover(); r != nil {
			// Silently ignore - will redraw on next update
		}
	}()

	var sb strings.Builder
	if err := screen.Render(&sb); err != nil {
		return
	}
	fmt.Fprint(v, sb.String())
}

// ConfigurePanelView styles a workspace panel. The focused panel gets a heavy
// frame in the focus color.
func ConfigurePanelView(v *gocui.View, title string, focused bool, focusColor gocui.Attribute) {
	v.Title = " " + title + " "
	v.Frame = true
	v.Wrap = false
	if focused {
		v.FrameRunes = heavyFrame
		v.FrameColor = focusColor
	} else {
		v.FrameRunes = regularFrame
		v.FrameColor = gocui.ColorDefault
	}
}

// ConfigureInputModal sets up the prompt modal view.
func ConfigureInputModal(v *gocui.View, label, inputBuffer string) {
	v.Title = " " + label + " (Enter=confirm, Esc=cancel) "
	v.Frame = true
	v.FrameRunes = heavyFrame
	v.FrameColor = gocui.ColorYellow
	v.Editable = true
	v.Clear()
	fmt.Fprintf(v, " %s", inputBuffer)
}

// ConfigureConfirmModal sets up the yes/no modal view.
func ConfigureConfirmModal(v *gocui.View, question string) {
	v.Title = " Confirm "
	v.Frame = true
	v.FrameRunes = heavyFrame
	v.FrameColor = gocui.ColorRed
	v.Editable = true
	v.Wrap = true
	v.Clear()
	fmt.Fprintf(v, " %s\n\n %s[y]%s yes   %s[n]%s no", question, ColorBold, ColorReset, ColorBold, ColorReset)
}

// ModalDimensions calculates centered modal dimensions.
func ModalDimensions(maxX, maxY, width, height int) (x0, y0, x1, y1 int) {
	if width > maxX-2 {
		width = maxX - 2
	}
	if height > maxY-2 {
		height = maxY - 2
	}
	x0 = (maxX - width) / 2
	y0 = (maxY - height) / 2
	x1 = x0 + width
	y1 = y0 + height
	return
}

// ColorAttribute maps a theme color name to a gocui attribute. Unknown
// names map to the default color.
func ColorAttribute(name string) gocui.Attribute {
	switch strings.ToLower(name) {
	case "black":
		return gocui.ColorBlack
	case "red":
		return gocui.ColorRed
	case "green":
		return gocui.ColorGreen
	case "yellow":
		return gocui.ColorYellow
	case "blue":
		return gocui.ColorBlue
	case "magenta":
		return gocui.ColorMagenta
	case "cyan":
		return gocui.ColorCyan
	case "white":
		return gocui.ColorWhite
	default:
		return gocui.ColorDefault
	}
}
