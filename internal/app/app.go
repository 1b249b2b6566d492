// Package app provides the main application orchestration for devbox.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/rs/zerolog/log"

	"github.com/abdullathedruid/devbox/internal/backend"
	"github.com/abdullathedruid/devbox/internal/config"
	"github.com/abdullathedruid/devbox/internal/controller"
	"github.com/abdullathedruid/devbox/internal/editor"
	"github.com/abdullathedruid/devbox/internal/input"
	"github.com/abdullathedruid/devbox/internal/pane"
	"github.com/abdullathedruid/devbox/internal/status"
	"github.com/abdullathedruid/devbox/internal/terminal"
	"github.com/abdullathedruid/devbox/internal/workspace"
)

// App is the workspace shell: file tree, editor and terminal side by side.
type App struct {
	gui    *gocui.Gui
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc

	client   *backend.Client
	tree     *workspace.Manager
	editor   *editor.Session
	terminal *terminal.Session
	focus    *pane.Focus
	input    *input.Handler
	status   *status.Board
	watcher  *config.Watcher
	cctx     *controller.Context

	// Controllers
	treeView     *controller.TreeController
	editorView   *controller.EditorController
	terminalView *controller.TerminalController
	statusBar    *controller.StatusBarController
	prompt       *controller.PromptController
	help         *controller.HelpController
	diff         *controller.DiffController

	// noticeShown is set while the status bar shows a notice, so the
	// background refresh can clear it once it expires.
	noticeShown atomic.Bool
}

// New creates the shell and starts connecting the terminal.
func New(cfg *config.Config) (*App, error) {
	g, err := gocui.NewGui(gocui.NewGuiOpts{
		OutputMode: gocui.OutputTrue,
	})
	if err != nil {
		return nil, errors.WrapPrefix(err, "initializing GUI", 0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		gui:    g,
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		input:  input.NewHandler(),
	}

	a.client = backend.New(backend.Config{BaseURL: cfg.BackendURL, Timeout: cfg.RequestTimeout()})
	a.status = status.NewBoard(status.DefaultTTL, a.redraw)
	a.focus = pane.NewFocus(func(from, to pane.Panel) {
		log.Debug().Stringer("from", from).Stringer("to", to).Msg("focus changed")
	})
	a.editor = editor.NewSession(ctx, a.client, editor.SessionOptions{
		Delay:   cfg.AutosaveDelay(),
		OnSaved: a.onSaved,
		OnState: a.redraw,
	})
	a.tree = workspace.NewManager(a.client, workspace.ConfirmFunc(a.confirm), workspace.Callbacks{
		OnFileOpened: a.onFileOpened,
		OnChange:     a.redraw,
		OnPathMoved:  a.editor.PathMoved,
		OnPathRemoved: func(path string) {
			if a.editor.PathRemoved(path) {
				a.status.Info("closed %s", path)
			}
		},
	})

	maxX, maxY := g.Size()
	l := pane.CalculateWorkspaceLayout(maxX, maxY, cfg.SidebarPercent, cfg.EditorPercent)
	rows, cols := l.Terminal.Height(), l.Terminal.Width()
	a.terminal = terminal.Dial(ctx, terminal.Options{
		URL:         cfg.TerminalURL,
		ContainerID: cfg.ContainerID,
		Rows:        rows,
		Cols:        cols,
		OnOutput:    a.redraw,
		OnState:     a.onTerminalState,
	})

	a.cctx = controller.NewContext(ctx, g)
	a.cctx.Tree = a.tree
	a.cctx.Editor = a.editor
	a.cctx.Terminal = a.terminal
	a.cctx.Highlighter = editor.NewHighlighter(cfg.SyntaxStyle)
	a.cctx.Focus = a.focus
	a.cctx.Input = a.input
	a.cctx.Status = a.status
	a.cctx.Keys = controller.NewKeys(cfg.Keys)
	a.cctx.Bindings = cfg.Keys
	a.cctx.Theme = cfg.Theme.Colors

	a.treeView = controller.NewTreeController(a.cctx)
	a.editorView = controller.NewEditorController(a.cctx)
	a.terminalView = controller.NewTerminalController(a.cctx)
	a.statusBar = controller.NewStatusBarController(a.cctx)
	a.prompt = controller.NewPromptController(a.cctx)
	a.help = controller.NewHelpController(a.cctx)
	a.diff = controller.NewDiffController(a.cctx)

	return a, nil
}

// Run starts the main event loop and blocks until the user quits.
func (a *App) Run() error {
	defer a.Close()

	a.gui.SetManagerFunc(a.layout)

	if err := a.setupKeybindings(); err != nil {
		return errors.WrapPrefix(err, "setting up keybindings", 0)
	}

	a.cctx.Go("load workspace", a.tree.Mount)
	a.watchConfig()

	// Handle SIGINT/SIGTERM for clean exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			a.gui.Update(func(g *gocui.Gui) error {
				return gocui.ErrQuit
			})
		case <-a.ctx.Done():
		}
	}()

	go a.backgroundRefresh()

	if err := a.gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) && err.Error() != "quit" {
		return errors.WrapPrefix(err, "main loop", 0)
	}
	return nil
}

// Close saves unsaved text, then releases the terminal, watcher and gui.
func (a *App) Close() {
	if b := a.editor.Current(); b != nil && b.Dirty() {
		log.Info().Str("path", b.Path()).Msg("saving before exit")
		b.SaveNow()
	}
	a.cancel()
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.terminal.Close()
	a.editor.Close()
	a.gui.Close()
}

// redraw schedules a layout pass. Safe from any goroutine.
func (a *App) redraw() {
	a.gui.Update(func(*gocui.Gui) error { return nil })
}

// backgroundRefresh redraws periodically while a notice is visible so it
// disappears when it expires.
func (a *App) backgroundRefresh() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if a.noticeShown.Load() {
				a.redraw()
			}
		}
	}
}

// onFileOpened hands a file to the editor session on the UI loop.
func (a *App) onFileOpened(f workspace.FileOpened) {
	a.gui.Update(func(*gocui.Gui) error {
		b := a.editor.Open(editor.Document{Path: f.Path, Content: f.Content, Language: f.Language})
		a.editorView.Load(b)
		log.Info().Str("path", f.Path).Int("bytes", len(f.Content)).Msg("file opened")
		return nil
	})
}

func (a *App) onSaved(r editor.SaveResult) {
	if r.Err != nil {
		a.status.Error("save "+r.Path, r.Err)
		return
	}
	a.status.Info("saved %s", r.Path)
}

func (a *App) onTerminalState(s terminal.State, err error) {
	switch {
	case err != nil:
		a.status.Error("terminal "+s.String(), err)
	case s == terminal.StateClosed:
		a.status.Info("terminal closed")
	}
	a.redraw()
}

// confirm asks a yes/no question through the confirm modal and blocks until
// it is answered or the app shuts down.
func (a *App) confirm(ctx context.Context, prompt string) bool {
	answer := make(chan bool, 1)
	a.gui.Update(func(*gocui.Gui) error {
		a.input.BeginConfirm(prompt, func(yes bool) { answer <- yes })
		return nil
	})
	select {
	case yes := <-answer:
		return yes
	case <-ctx.Done():
		return false
	}
}

// watchConfig applies config file edits while running. Key bindings are
// registered once and need a restart.
func (a *App) watchConfig() {
	if err := a.config.EnsureDataDir(); err != nil {
		log.Warn().Err(err).Msg("config directory unavailable, hot reload disabled")
		return
	}
	w, err := config.Watch(a.config.ConfigFile(), func(cfg *config.Config) {
		a.gui.Update(func(*gocui.Gui) error {
			a.applyConfig(cfg)
			return nil
		})
	}, func(err error) {
		a.status.Error("config", err)
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watch failed")
		return
	}
	a.watcher = w
}

func (a *App) applyConfig(cfg *config.Config) {
	a.editor.SetDelay(cfg.AutosaveDelay())
	a.cctx.Highlighter.SetStyle(cfg.SyntaxStyle)
	a.editorView.Restyle()
	a.config.SidebarPercent = cfg.SidebarPercent
	a.config.EditorPercent = cfg.EditorPercent
	a.cctx.Theme = cfg.Theme.Colors
	log.Info().Str("path", cfg.Path).Msg("config reloaded")
	a.status.Info("config reloaded")
}

// layout is the gocui manager function.
func (a *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	l := pane.CalculateWorkspaceLayout(maxX, maxY, a.config.SidebarPercent, a.config.EditorPercent)
	active := a.focus.Active()

	panels := []struct {
		panel  pane.Panel
		ctl    controller.Controller
		layout pane.Layout
	}{
		{pane.PanelTree, a.treeView, l.Tree},
		{pane.PanelEditor, a.editorView, l.Editor},
		{pane.PanelTerminal, a.terminalView, l.Terminal},
	}
	for _, p := range panels {
		if err := p.ctl.Layout(g, p.layout, p.panel == active); err != nil {
			return err
		}
		if err := p.ctl.Render(g); err != nil {
			return err
		}
	}

	if err := a.statusBar.Layout(g, l.Status, false); err != nil {
		return err
	}
	if err := a.statusBar.Render(g); err != nil {
		return err
	}
	_, shown := a.status.Current()
	a.noticeShown.Store(shown)

	// Overlays, topmost last.
	if err := a.help.Layout(g); err != nil {
		return err
	}
	if err := a.diff.Layout(g); err != nil {
		return err
	}
	if err := a.prompt.Layout(g); err != nil {
		return err
	}

	return a.setFocus(g)
}

// setFocus gives the current view to the topmost modal, or to the focused
// panel, and places the cursor.
func (a *App) setFocus(g *gocui.Gui) error {
	modal := a.prompt.View()
	switch {
	case modal != "":
	case a.diff.IsVisible():
		modal = a.diff.Name()
	case a.help.IsVisible():
		modal = a.help.Name()
	}
	if modal != "" {
		if _, err := g.SetCurrentView(modal); err != nil {
			return err
		}
		g.Cursor = a.input.Mode() == input.ModePrompt
		return nil
	}

	switch a.focus.Active() {
	case pane.PanelEditor:
		v, err := g.SetCurrentView(a.editorView.Name())
		if err != nil {
			return err
		}
		g.Cursor = a.editorView.Buffer() != nil
		x, y := a.editorView.Cursor(v.Size())
		v.SetCursor(x, y)
	case pane.PanelTerminal:
		v, err := g.SetCurrentView(a.terminalView.Name())
		if err != nil {
			return err
		}
		x, y, visible := a.terminalView.Cursor()
		g.Cursor = visible
		v.SetCursor(x, y)
	default:
		if _, err := g.SetCurrentView(a.treeView.Name()); err != nil {
			return err
		}
		g.Cursor = false
	}
	return nil
}
