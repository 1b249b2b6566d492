package controller

import (
	"fmt"

	"github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/rs/zerolog/log"

	"github.com/abdullathedruid/devbox/internal/pane"
	"github.com/abdullathedruid/devbox/internal/terminal"
	"github.com/abdullathedruid/devbox/internal/ui"
)

const terminalViewName = "terminal"

// TerminalController manages the terminal panel. Keys are translated to
// the bytes a terminal would send and written to the session.
type TerminalController struct {
	ctx *Context

	lastWidth, lastHeight int
}

// NewTerminalController creates a new terminal controller.
func NewTerminalController(ctx *Context) *TerminalController {
	return &TerminalController{ctx: ctx}
}

// Name returns the view name.
func (c *TerminalController) Name() string {
	return terminalViewName
}

// Layout sets up the terminal view and resizes the screen whenever the
// panel's interior changed.
func (c *TerminalController) Layout(g *gocui.Gui, l pane.Layout, focused bool) error {
	v, err := setView(g, terminalViewName, l.X0, l.Y0, l.X1, l.Y1)
	if err != nil {
		return err
	}
	s := c.ctx.Terminal
	title := fmt.Sprintf("Terminal · %s (%s)", s.ContainerID(), s.State())
	ui.ConfigurePanelView(v, title, focused, ui.ColorAttribute(c.ctx.Theme.FocusFrame))
	v.Editable = true
	v.Editor = gocui.EditorFunc(c.Edit)

	if w, h := l.Width(), l.Height(); w != c.lastWidth || h != c.lastHeight {
		c.lastWidth, c.lastHeight = w, h
		s.Resize(w, h)
	}
	return nil
}

// Keybindings sets up terminal keybindings.
// Note: Key handling is done via the custom Editor interface instead.
func (c *TerminalController) Keybindings(g *gocui.Gui) error {
	return nil
}

// Render renders the emulator screen.
func (c *TerminalController) Render(g *gocui.Gui) error {
	v, err := g.View(terminalViewName)
	if err != nil {
		return err
	}
	v.Clear()
	ui.RenderTerminal(v, c.ctx.Terminal.Screen())
	return nil
}

// Cursor returns the emulator cursor and whether it should be shown.
func (c *TerminalController) Cursor() (x, y int, visible bool) {
	screen := c.ctx.Terminal.Screen()
	x, y = screen.Cursor()
	return x, y, screen.CursorVisible()
}

// Edit forwards key input to the terminal session.
func (c *TerminalController) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	if c.ctx.Keys.Global(key, ch, mod) {
		return false
	}
	data := KeyBytes(key, ch, mod)
	if data == nil {
		return false
	}
	if err := c.ctx.Terminal.Input(data); err != nil {
		if !errors.Is(err, terminal.ErrNotOpen) {
			log.Warn().Err(err).Msg("terminal input failed")
		}
	}
	return true
}

// KeyBytes translates a key event to the byte sequence an xterm sends for
// it, or nil for keys with no mapping.
func KeyBytes(key gocui.Key, ch rune, mod gocui.Modifier) []byte {
	if ch != 0 {
		if mod == gocui.ModAlt {
			return append([]byte{0x1b}, string(ch)...)
		}
		return []byte(string(ch))
	}

	// Named keys first: several share values with ctrl letters
	// (backspace is ctrl+h, tab is ctrl+i, enter is ctrl+m).
	if seq, ok := keySequences[key]; ok {
		return []byte(seq)
	}
	if key == gocui.KeySpace {
		return []byte{' '}
	}
	if key == gocui.KeyBackspace2 {
		return []byte{0x7f}
	}
	if key == gocui.KeyEsc {
		return []byte{0x1b}
	}
	if key >= gocui.KeyCtrlA && key <= gocui.KeyCtrlZ {
		return []byte{byte(key-gocui.KeyCtrlA) + 1}
	}
	if key == gocui.KeyCtrlSpace {
		return []byte{0}
	}
	if key == gocui.KeyCtrlBackslash {
		return []byte{0x1c}
	}
	return nil
}

// keySequences holds keys that send escape sequences.
var keySequences = map[gocui.Key]string{
	gocui.KeyArrowUp:    "\x1b[A",
	gocui.KeyArrowDown:  "\x1b[B",
	gocui.KeyArrowRight: "\x1b[C",
	gocui.KeyArrowLeft:  "\x1b[D",
	gocui.KeyHome:       "\x1b[H",
	gocui.KeyEnd:        "\x1b[F",
	gocui.KeyInsert:     "\x1b[2~",
	gocui.KeyDelete:     "\x1b[3~",
	gocui.KeyPgup:       "\x1b[5~",
	gocui.KeyPgdn:       "\x1b[6~",
	gocui.KeyF1:         "\x1bOP",
	gocui.KeyF2:         "\x1bOQ",
	gocui.KeyF3:         "\x1bOR",
	gocui.KeyF4:         "\x1bOS",
	gocui.KeyF5:         "\x1b[15~",
	gocui.KeyF6:         "\x1b[17~",
	gocui.KeyF7:         "\x1b[18~",
	gocui.KeyF8:         "\x1b[19~",
	gocui.KeyF9:         "\x1b[20~",
	gocui.KeyF10:        "\x1b[21~",
	gocui.KeyF11:        "\x1b[23~",
	gocui.KeyF12:        "\x1b[24~",
}
