package controller

import (
	"fmt"
	"strings"

	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/devbox/internal/pane"
	"github.com/abdullathedruid/devbox/internal/status"
	"github.com/abdullathedruid/devbox/internal/ui"
	"github.com/abdullathedruid/devbox/internal/version"
)

const statusBarViewName = "statusbar"

// StatusBarController manages the status bar at the bottom.
type StatusBarController struct {
	ctx *Context
}

// NewStatusBarController creates a new status bar controller.
func NewStatusBarController(ctx *Context) *StatusBarController {
	return &StatusBarController{ctx: ctx}
}

// Name returns the view name.
func (c *StatusBarController) Name() string {
	return statusBarViewName
}

// Layout sets up the status bar view.
func (c *StatusBarController) Layout(g *gocui.Gui, l pane.Layout, focused bool) error {
	v, err := setView(g, statusBarViewName, l.X0, l.Y0, l.X1, l.Y1)
	if err != nil {
		return err
	}

	v.Frame = false
	v.Wrap = false
	v.BgColor = ui.ColorAttribute(c.ctx.Theme.StatusBarBg)
	v.FgColor = ui.ColorAttribute(c.ctx.Theme.StatusBarFg) | gocui.AttrBold

	return nil
}

// Keybindings sets up status bar keybindings (none needed).
func (c *StatusBarController) Keybindings(g *gocui.Gui) error {
	return nil
}

// Render renders the status bar content.
func (c *StatusBarController) Render(g *gocui.Gui) error {
	v, err := g.View(statusBarViewName)
	if err != nil {
		return err
	}

	v.Clear()
	width, _ := v.Size()

	left := c.summary()
	if n, ok := c.ctx.Status.Current(); ok {
		left = n.Text
		if n.Level == status.LevelError {
			left = "✗ " + left
			v.FgColor = ui.ColorAttribute(c.ctx.Theme.ErrorFg) | gocui.AttrBold
		}
	}
	fmt.Fprint(v, " "+ui.StatusBar(left, "devbox "+version.Short()+" ", width-1))
	return nil
}

// summary describes mode, focus, the open file and the terminal.
func (c *StatusBarController) summary() string {
	parts := []string{
		c.ctx.Input.Mode().String(),
		c.ctx.Focus.Active().String(),
	}
	if b := c.ctx.Editor.Current(); b != nil {
		parts = append(parts, fmt.Sprintf("%s (%s)", ui.TruncateLeft(b.Path(), 40), b.State()))
	}
	parts = append(parts, "term: "+c.ctx.Terminal.State().String())
	return strings.Join(parts, " │ ")
}
