package controller

import (
	"context"
	"fmt"

	"github.com/jesseduffield/gocui"
	"github.com/rs/zerolog/log"

	"github.com/abdullathedruid/devbox/internal/pane"
	"github.com/abdullathedruid/devbox/internal/ui"
	"github.com/abdullathedruid/devbox/internal/workspace"
)

const treeViewName = "tree"

// TreeController manages the file tree panel. The cursor is independent of
// the tree's selection; enter or space selects the node under the cursor.
type TreeController struct {
	ctx *Context

	cursor    int
	cursorKey string
	origin    int
}

// NewTreeController creates a new tree controller.
func NewTreeController(ctx *Context) *TreeController {
	return &TreeController{ctx: ctx}
}

// Name returns the view name.
func (c *TreeController) Name() string {
	return treeViewName
}

// Layout sets up the tree view.
func (c *TreeController) Layout(g *gocui.Gui, l pane.Layout, focused bool) error {
	v, err := setView(g, treeViewName, l.X0, l.Y0, l.X1, l.Y1)
	if err != nil {
		return err
	}
	ui.ConfigurePanelView(v, "Files", focused, ui.ColorAttribute(c.ctx.Theme.FocusFrame))
	v.Highlight = focused
	v.SelBgColor = ui.ColorAttribute(c.ctx.Theme.SelectionBg)
	v.SelFgColor = ui.ColorAttribute(c.ctx.Theme.SelectionFg)
	return nil
}

// Keybindings sets up tree-specific keybindings.
func (c *TreeController) Keybindings(g *gocui.Gui) error {
	k := c.ctx.Keys
	bindings := []struct {
		key     any
		mod     gocui.Modifier
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyArrowDown, gocui.ModNone, c.cursorDown},
		{gocui.KeyArrowUp, gocui.ModNone, c.cursorUp},
		{'j', gocui.ModNone, c.cursorDown},
		{'k', gocui.ModNone, c.cursorUp},
		{gocui.KeyEnter, gocui.ModNone, c.selectNode},
		{gocui.KeySpace, gocui.ModNone, c.selectNode},
		{gocui.KeyArrowRight, gocui.ModNone, c.expand},
		{gocui.KeyArrowLeft, gocui.ModNone, c.collapse},
		{k.NewFile.Value, k.NewFile.Mod, c.newFile},
		{k.NewFolder.Value, k.NewFolder.Mod, c.newFolder},
		{k.Rename.Value, k.Rename.Mod, c.rename},
		{k.Delete.Value, k.Delete.Mod, c.delete},
		{k.Refresh.Value, k.Refresh.Mod, c.refresh},
	}
	for _, b := range bindings {
		if err := g.SetKeybinding(treeViewName, b.key, b.mod, b.handler); err != nil {
			return err
		}
	}
	return nil
}

// Render renders the visible rows and keeps the cursor on screen.
func (c *TreeController) Render(g *gocui.Gui) error {
	v, err := g.View(treeViewName)
	if err != nil {
		return err
	}
	v.Clear()

	rows := c.ctx.Tree.Rows()
	if len(rows) == 0 {
		c.cursor, c.cursorKey, c.origin = 0, "", 0
		fmt.Fprint(v, ui.EmptyTreeText)
		return nil
	}

	c.cursor = followCursor(rows, c.cursorKey, c.cursor)
	c.cursorKey = rows[c.cursor].Key

	width, height := v.Size()
	c.origin = scrollOrigin(c.origin, c.cursor, height)

	selected, hasSelection := c.ctx.Tree.Selected()
	for _, r := range rows {
		line := ui.TreeRow(r, width)
		if hasSelection && r.Key == selected.Key {
			line = ui.ColorBold + line + ui.ColorReset
		}
		fmt.Fprintln(v, line)
	}
	v.SetOrigin(0, c.origin)
	v.SetCursor(0, c.cursor-c.origin)
	return nil
}

// followCursor returns the row index for the key under the cursor, or the
// previous index clamped to the rows when that node is gone.
func followCursor(rows []workspace.Row, key string, prev int) int {
	if key != "" {
		for i, r := range rows {
			if r.Key == key {
				return i
			}
		}
	}
	if prev >= len(rows) {
		prev = len(rows) - 1
	}
	if prev < 0 {
		prev = 0
	}
	return prev
}

// scrollOrigin returns the first visible row so that cursor is within a
// window of height rows.
func scrollOrigin(origin, cursor, height int) int {
	if height < 1 {
		height = 1
	}
	if cursor < origin {
		return cursor
	}
	if cursor >= origin+height {
		return cursor - height + 1
	}
	return origin
}

// current returns the row under the cursor.
func (c *TreeController) current() (workspace.Row, bool) {
	rows := c.ctx.Tree.Rows()
	if len(rows) == 0 {
		return workspace.Row{}, false
	}
	i := followCursor(rows, c.cursorKey, c.cursor)
	return rows[i], true
}

func (c *TreeController) move(delta int) {
	rows := c.ctx.Tree.Rows()
	if len(rows) == 0 {
		return
	}
	i := followCursor(rows, c.cursorKey, c.cursor) + delta
	if i < 0 {
		i = 0
	}
	if i >= len(rows) {
		i = len(rows) - 1
	}
	c.cursor = i
	c.cursorKey = rows[i].Key
}

func (c *TreeController) cursorDown(g *gocui.Gui, v *gocui.View) error {
	c.move(1)
	return nil
}

func (c *TreeController) cursorUp(g *gocui.Gui, v *gocui.View) error {
	c.move(-1)
	return nil
}

func (c *TreeController) selectNode(g *gocui.Gui, v *gocui.View) error {
	row, ok := c.current()
	if !ok {
		return nil
	}
	op := "open " + row.Path
	if !row.IsLeaf {
		op = "list " + row.Path
	}
	c.ctx.Go(op, func(ctx context.Context) error {
		return c.ctx.Tree.Select(ctx, row.Key)
	})
	return nil
}

func (c *TreeController) expand(g *gocui.Gui, v *gocui.View) error {
	row, ok := c.current()
	if !ok || row.IsLeaf {
		return nil
	}
	c.ctx.Go("expand "+row.Path, func(ctx context.Context) error {
		return c.ctx.Tree.Expand(ctx, row.Key)
	})
	return nil
}

// collapse closes an expanded directory, or moves to the parent otherwise.
func (c *TreeController) collapse(g *gocui.Gui, v *gocui.View) error {
	row, ok := c.current()
	if !ok {
		return nil
	}
	if !row.IsLeaf && row.Expanded {
		if err := c.ctx.Tree.Collapse(row.Key); err != nil {
			log.Debug().Err(err).Str("path", row.Path).Msg("collapse skipped")
		}
		return nil
	}
	if row.ParentKey != "" {
		c.cursorKey = row.ParentKey
	}
	return nil
}

func (c *TreeController) newFile(g *gocui.Gui, v *gocui.View) error {
	return c.create(workspace.KindFile)
}

func (c *TreeController) newFolder(g *gocui.Gui, v *gocui.View) error {
	return c.create(workspace.KindFolder)
}

func (c *TreeController) create(kind workspace.Kind) error {
	label := fmt.Sprintf("New %s in /%s", kind, c.ctx.Tree.TargetDir())
	c.ctx.Input.BeginPrompt(label, "", func(name string) {
		c.ctx.Go("create "+kind.String(), func(ctx context.Context) error {
			path, err := c.ctx.Tree.Create(ctx, kind, name)
			if err != nil {
				return err
			}
			c.ctx.Status.Info("created %s", path)
			return nil
		})
	})
	return nil
}

func (c *TreeController) rename(g *gocui.Gui, v *gocui.View) error {
	row, ok := c.current()
	if !ok {
		return nil
	}
	c.ctx.Input.BeginPrompt("Rename "+row.Name, row.Name, func(name string) {
		// The tree may have changed while the prompt was open.
		cur, ok := c.ctx.Tree.Lookup(row.Key)
		if !ok {
			c.ctx.Status.Error("rename "+row.Path, workspace.ErrStaleNode)
			return
		}
		if name == cur.Name {
			return
		}
		c.ctx.Go("rename "+cur.Path, func(ctx context.Context) error {
			newPath, err := c.ctx.Tree.Rename(ctx, cur.Key, name)
			if err != nil {
				return err
			}
			c.ctx.Status.Info("renamed %s to %s", cur.Path, newPath)
			return nil
		})
	})
	return nil
}

// delete runs off the UI loop because the tree blocks on the confirmation.
func (c *TreeController) delete(g *gocui.Gui, v *gocui.View) error {
	row, ok := c.current()
	if !ok {
		return nil
	}
	c.ctx.Go("delete "+row.Path, func(ctx context.Context) error {
		if err := c.ctx.Tree.Delete(ctx, row.Key); err != nil {
			return err
		}
		c.ctx.Status.Info("deleted %s", row.Path)
		return nil
	})
	return nil
}

func (c *TreeController) refresh(g *gocui.Gui, v *gocui.View) error {
	c.ctx.Go("refresh", func(ctx context.Context) error {
		return c.ctx.Tree.Refresh(ctx)
	})
	return nil
}
