package app

import (
	"context"

	"github.com/jesseduffield/gocui"

	"github.com/abdullathedruid/devbox/internal/config"
	"github.com/abdullathedruid/devbox/internal/pane"
)

// setupKeybindings configures all keyboard handlers.
//
// gocui tries view bindings first, then the current view's Editor, then
// global bindings. The editor and terminal panels are editable and pass the
// global keys through, so globals should be keys those panels never type.
func (a *App) setupKeybindings() error {
	g := a.gui
	k := a.cctx.Keys

	// modalOpen blocks panel navigation while a modal owns the keyboard.
	modalOpen := func() bool {
		return a.input.Mode().IsModal() || a.help.IsVisible() || a.diff.IsVisible()
	}

	focus := func(p pane.Panel) func(*gocui.Gui, *gocui.View) error {
		return func(g *gocui.Gui, v *gocui.View) error {
			if !modalOpen() {
				a.focus.Set(p)
			}
			return nil
		}
	}

	globals := []struct {
		key     config.Key
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{k.Quit, func(g *gocui.Gui, v *gocui.View) error {
			return gocui.ErrQuit
		}},
		{k.FocusNext, func(g *gocui.Gui, v *gocui.View) error {
			if !modalOpen() {
				a.focus.Next()
			}
			return nil
		}},
		{k.FocusTree, focus(pane.PanelTree)},
		{k.FocusEditor, focus(pane.PanelEditor)},
		{k.FocusTerminal, focus(pane.PanelTerminal)},
		{k.Save, func(g *gocui.Gui, v *gocui.View) error {
			if b := a.editorView.Buffer(); b != nil {
				a.cctx.Go("save "+b.Path(), func(context.Context) error {
					a.editor.SaveNow()
					return nil
				})
			}
			return nil
		}},
		{k.Diff, func(g *gocui.Gui, v *gocui.View) error {
			if modalOpen() {
				return nil
			}
			return a.diff.Show(g, a.editorView.Buffer())
		}},
	}
	for _, b := range globals {
		if err := g.SetKeybinding("", b.key.Value, b.key.Mod, b.handler); err != nil {
			return err
		}
	}

	// ?: help, from the tree where runes are not text input.
	if err := g.SetKeybinding(a.treeView.Name(), '?', gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
		return a.help.Toggle(g)
	}); err != nil {
		return err
	}

	if err := a.treeView.Keybindings(g); err != nil {
		return err
	}
	if err := a.editorView.Keybindings(g); err != nil {
		return err
	}
	if err := a.terminalView.Keybindings(g); err != nil {
		return err
	}
	if err := a.help.Keybindings(g); err != nil {
		return err
	}
	return a.diff.Keybindings(g)
}
