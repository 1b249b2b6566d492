package controller

import (
	"fmt"

	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/devbox/internal/editor"
	"github.com/abdullathedruid/devbox/internal/ui"
)

const diffViewName = "diff"

// DiffController shows the unsaved changes of the open buffer.
type DiffController struct {
	ctx     *Context
	visible bool
	text    string
	origin  int
}

// NewDiffController creates a new diff controller.
func NewDiffController(ctx *Context) *DiffController {
	return &DiffController{ctx: ctx}
}

// Name returns the view name.
func (c *DiffController) Name() string {
	return diffViewName
}

// IsVisible returns whether the diff is visible.
func (c *DiffController) IsVisible() bool {
	return c.visible
}

// Show captures the diff of b at this moment and opens the modal.
func (c *DiffController) Show(g *gocui.Gui, b *editor.Buffer) error {
	diff := editor.UnsavedDiff(b)
	switch {
	case b == nil:
		c.text = "No file open."
	case diff == "":
		c.text = "No unsaved changes in " + b.Path() + "."
	default:
		c.text = ui.ColorizeDiff(diff)
	}
	c.origin = 0
	c.visible = true
	return c.Layout(g)
}

// Hide hides the diff modal.
func (c *DiffController) Hide(g *gocui.Gui) error {
	c.visible = false
	return g.DeleteView(diffViewName)
}

// Layout sets up the diff view.
func (c *DiffController) Layout(g *gocui.Gui) error {
	if !c.visible {
		return nil
	}

	maxX, maxY := g.Size()
	x0, y0, x1, y1 := ui.ModalDimensions(maxX, maxY, maxX*4/5, maxY*4/5)
	v, err := setView(g, diffViewName, x0, y0, x1, y1)
	if err != nil {
		return err
	}
	v.Title = " Unsaved changes (esc to close) "
	v.Frame = true
	v.Wrap = false

	if _, err := g.SetViewOnTop(diffViewName); err != nil {
		return err
	}
	return c.Render(g)
}

// Keybindings sets up diff-specific keybindings.
func (c *DiffController) Keybindings(g *gocui.Gui) error {
	for _, key := range []any{gocui.KeyEsc, gocui.KeyEnter, 'q'} {
		if err := g.SetKeybinding(diffViewName, key, gocui.ModNone, c.close); err != nil {
			return err
		}
	}
	scroll := []struct {
		key   any
		delta int
	}{
		{gocui.KeyArrowDown, 1}, {'j', 1}, {gocui.KeyPgdn, 10},
		{gocui.KeyArrowUp, -1}, {'k', -1}, {gocui.KeyPgup, -10},
	}
	for _, s := range scroll {
		delta := s.delta
		if err := g.SetKeybinding(diffViewName, s.key, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
			c.origin += delta
			if c.origin < 0 {
				c.origin = 0
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// Render renders the captured diff.
func (c *DiffController) Render(g *gocui.Gui) error {
	v, err := g.View(diffViewName)
	if err != nil {
		return err
	}
	v.Clear()
	fmt.Fprint(v, c.text)
	v.SetOrigin(0, c.origin)
	return nil
}

func (c *DiffController) close(g *gocui.Gui, v *gocui.View) error {
	return c.Hide(g)
}
