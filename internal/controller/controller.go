// Package controller provides the panel and modal controllers for the devbox shell.
package controller

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/rs/zerolog/log"

	"github.com/abdullathedruid/devbox/internal/config"
	"github.com/abdullathedruid/devbox/internal/editor"
	"github.com/abdullathedruid/devbox/internal/input"
	"github.com/abdullathedruid/devbox/internal/pane"
	"github.com/abdullathedruid/devbox/internal/status"
	"github.com/abdullathedruid/devbox/internal/terminal"
	"github.com/abdullathedruid/devbox/internal/workspace"
)

// Controller is the interface for the workspace panels.
type Controller interface {
	// Name returns the view name for this controller.
	Name() string
	// Layout places the view at l.
	Layout(g *gocui.Gui, l pane.Layout, focused bool) error
	// Keybindings sets up view-specific keybindings.
	Keybindings(g *gocui.Gui) error
	// Render renders the view content.
	Render(g *gocui.Gui) error
}

// Context provides shared state for all controllers.
type Context struct {
	Tree        *workspace.Manager
	Editor      *editor.Session
	Terminal    *terminal.Session
	Highlighter *editor.Highlighter
	Focus       *pane.Focus
	Input       *input.Handler
	Status      *status.Board
	Keys        Keys
	Bindings    config.KeyBindings
	Theme       config.ThemeColors

	gui *gocui.Gui
	ctx context.Context
}

// NewContext creates a controller context bound to a gui. Background
// operations started with Go use ctx.
func NewContext(ctx context.Context, g *gocui.Gui) *Context {
	return &Context{ctx: ctx, gui: g}
}

// Redraw schedules a layout pass on the UI loop.
func (c *Context) Redraw() {
	if c.gui == nil {
		return
	}
	c.gui.Update(func(*gocui.Gui) error { return nil })
}

// Go runs fn off the UI loop. A failure is posted to the status board
// unless the user canceled; the screen is redrawn either way.
func (c *Context) Go(op string, fn func(ctx context.Context) error) {
	go func() {
		err := fn(c.ctx)
		switch {
		case err == nil:
		case errors.Is(err, workspace.ErrCanceled), errors.Is(err, context.Canceled):
			log.Debug().Str("op", op).Msg("canceled")
		default:
			log.Warn().Err(err).Str("op", op).Msg("operation failed")
			if c.Status != nil {
				c.Status.Error(op, err)
			}
		}
		c.Redraw()
	}()
}

// Keys holds the parsed global and tree bindings.
type Keys struct {
	Quit, FocusNext, FocusTree, FocusEditor, FocusTerminal config.Key
	NewFile, NewFolder, Rename, Delete, Refresh            config.Key
	Save, Diff                                             config.Key
}

// NewKeys parses validated key bindings.
func NewKeys(kb config.KeyBindings) Keys {
	return Keys{
		Quit:          config.MustParseKey(kb.Quit),
		FocusNext:     config.MustParseKey(kb.FocusNext),
		FocusTree:     config.MustParseKey(kb.FocusTree),
		FocusEditor:   config.MustParseKey(kb.FocusEditor),
		FocusTerminal: config.MustParseKey(kb.FocusTerminal),
		NewFile:       config.MustParseKey(kb.NewFile),
		NewFolder:     config.MustParseKey(kb.NewFolder),
		Rename:        config.MustParseKey(kb.Rename),
		Delete:        config.MustParseKey(kb.Delete),
		Refresh:       config.MustParseKey(kb.Refresh),
		Save:          config.MustParseKey(kb.Save),
		Diff:          config.MustParseKey(kb.Diff),
	}
}

// Global reports whether an event belongs to a shell-wide binding. Editable
// views must not consume these.
func (k Keys) Global(key gocui.Key, ch rune, mod gocui.Modifier) bool {
	for _, g := range []config.Key{k.Quit, k.FocusNext, k.FocusTree, k.FocusEditor, k.FocusTerminal, k.Save, k.Diff} {
		if g.Matches(key, ch, mod) {
			return true
		}
	}
	return false
}

// setView creates or updates a view, tolerating the unknown-view error
// returned on first creation.
func setView(g *gocui.Gui, name string, x0, y0, x1, y1 int) (*gocui.View, error) {
	v, err := g.SetView(name, x0, y0, x1, y1, 0)
	if err != nil && !errors.Is(err, gocui.ErrUnknownView) && err.Error() != "unknown view" {
		return nil, err
	}
	return v, nil
}
