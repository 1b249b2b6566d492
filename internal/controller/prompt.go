package controller

import (
	"github.com/jesseduffield/gocui"
	"github.com/mattn/go-runewidth"

	"github.com/abdullathedruid/devbox/internal/input"
	"github.com/abdullathedruid/devbox/internal/ui"
)

const (
	promptViewName  = "prompt"
	confirmViewName = "confirm"
)

// PromptController shows the name prompt and the yes/no confirmation while
// the input handler is in one of those modes.
type PromptController struct {
	ctx *Context
}

// NewPromptController creates a new prompt controller.
func NewPromptController(ctx *Context) *PromptController {
	return &PromptController{ctx: ctx}
}

// View returns the name of the modal view that should have focus, or "".
func (c *PromptController) View() string {
	switch c.ctx.Input.Mode() {
	case input.ModePrompt:
		return promptViewName
	case input.ModeConfirm:
		return confirmViewName
	}
	return ""
}

// Layout creates the active modal and deletes the inactive one.
func (c *PromptController) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	active := c.View()

	if active != promptViewName {
		g.DeleteView(promptViewName)
	}
	if active != confirmViewName {
		g.DeleteView(confirmViewName)
	}

	switch active {
	case promptViewName:
		x0, y0, x1, y1 := ui.ModalDimensions(maxX, maxY, 60, 2)
		v, err := setView(g, promptViewName, x0, y0, x1, y1)
		if err != nil {
			return err
		}
		buf := c.ctx.Input.InputBuffer()
		ui.ConfigureInputModal(v, c.ctx.Input.Label(), buf)
		v.Editor = gocui.EditorFunc(c.editPrompt)
		if _, err := g.SetViewOnTop(promptViewName); err != nil {
			return err
		}
		v.SetCursor(runewidth.StringWidth(buf)+1, 0)
	case confirmViewName:
		x0, y0, x1, y1 := ui.ModalDimensions(maxX, maxY, 60, 5)
		v, err := setView(g, confirmViewName, x0, y0, x1, y1)
		if err != nil {
			return err
		}
		ui.ConfigureConfirmModal(v, c.ctx.Input.Label())
		v.Editor = gocui.EditorFunc(c.editConfirm)
		if _, err := g.SetViewOnTop(confirmViewName); err != nil {
			return err
		}
	}
	return nil
}

func (c *PromptController) editPrompt(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	switch {
	case key == gocui.KeyEnter:
		c.ctx.Input.Submit()
	case key == gocui.KeyEsc:
		c.ctx.Input.Cancel()
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		c.ctx.Input.Backspace()
	case key == gocui.KeySpace:
		c.ctx.Input.Append(' ')
	case ch != 0 && mod == gocui.ModNone:
		c.ctx.Input.Append(ch)
	case c.ctx.Keys.Quit.Matches(key, ch, mod):
		return false
	}
	return true
}

func (c *PromptController) editConfirm(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	switch {
	case ch == 'y' || ch == 'Y':
		c.ctx.Input.Answer(true)
	case ch == 'n' || ch == 'N' || key == gocui.KeyEsc:
		c.ctx.Input.Answer(false)
	case c.ctx.Keys.Quit.Matches(key, ch, mod):
		return false
	}
	return true
}
