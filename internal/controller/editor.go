package controller

import (
	"fmt"
	"strings"

	"github.com/jesseduffield/gocui"
	"github.com/mattn/go-runewidth"

	"github.com/abdullathedruid/devbox/internal/editor"
	"github.com/abdullathedruid/devbox/internal/pane"
	"github.com/abdullathedruid/devbox/internal/ui"
)

const editorViewName = "editor"

// EditorController manages the editor panel. The text area holds the live
// text; every change is handed to the editor session, which owns autosave.
type EditorController struct {
	ctx  *Context
	text *editor.TextArea
	buf  *editor.Buffer

	height int

	// Highlighting cache, keyed on the source text and style generation.
	hlSrc    string
	hlGen    int
	hlLines  []string
	styleGen int
}

// NewEditorController creates a new editor controller.
func NewEditorController(ctx *Context) *EditorController {
	return &EditorController{
		ctx:  ctx,
		text: editor.NewTextArea(""),
	}
}

// Name returns the view name.
func (c *EditorController) Name() string {
	return editorViewName
}

// Load shows b, replacing whatever was shown.
func (c *EditorController) Load(b *editor.Buffer) {
	c.buf = b
	c.text.SetText(b.Content())
	c.hlLines = nil
}

// Restyle drops cached highlighting after the syntax style changed.
func (c *EditorController) Restyle() {
	c.styleGen++
}

// Buffer returns the shown buffer, or nil when none is open.
func (c *EditorController) Buffer() *editor.Buffer {
	if c.buf == nil || c.buf.Closed() {
		return nil
	}
	return c.buf
}

// Cursor returns the cursor position inside the view.
func (c *EditorController) Cursor(width, height int) (x, y int) {
	_, _, x, y = c.text.Scroll(width, height)
	return x, y
}

// Layout sets up the editor view.
func (c *EditorController) Layout(g *gocui.Gui, l pane.Layout, focused bool) error {
	v, err := setView(g, editorViewName, l.X0, l.Y0, l.X1, l.Y1)
	if err != nil {
		return err
	}
	ui.ConfigurePanelView(v, c.title(), focused, ui.ColorAttribute(c.ctx.Theme.FocusFrame))
	v.Editable = true
	v.Editor = gocui.EditorFunc(c.Edit)
	c.height = l.Height()
	return nil
}

// Keybindings sets up editor keybindings.
// Note: Key handling is done via the custom Editor interface instead.
func (c *EditorController) Keybindings(g *gocui.Gui) error {
	return nil
}

func (c *EditorController) title() string {
	b := c.Buffer()
	if b == nil {
		return "Editor"
	}
	marker := ""
	switch b.State() {
	case editor.StateDirty:
		marker = " ●"
	case editor.StateSaving:
		marker = " ⟳"
	case editor.StateFailed:
		marker = " !"
	}
	return fmt.Sprintf("%s [%s]%s", b.Path(), editor.LanguageName(b.Language()), marker)
}

// Render renders the visible window of the text.
func (c *EditorController) Render(g *gocui.Gui) error {
	v, err := g.View(editorViewName)
	if err != nil {
		return err
	}
	v.Clear()

	b := c.Buffer()
	if b == nil {
		fmt.Fprint(v, "\n  No file open.\n\n  Select a file in the tree.")
		return nil
	}

	width, height := v.Size()
	left, top, _, _ := c.text.Scroll(width, height)
	lines := c.highlighted(b)
	for y := top; y < top+height && y < c.text.Lines(); y++ {
		if left == 0 && y < len(lines) {
			fmt.Fprintln(v, lines[y])
			continue
		}
		plain := editor.ExpandTabs(c.text.Line(y))
		plain = runewidth.TruncateLeft(plain, left, "")
		fmt.Fprintln(v, runewidth.Truncate(plain, width, ""))
	}
	return nil
}

// highlighted returns the colored lines of the current text, recomputed only
// when the text or the style changed.
func (c *EditorController) highlighted(b *editor.Buffer) []string {
	src := c.text.Text()
	if c.hlLines != nil && c.hlSrc == src && c.hlGen == c.styleGen {
		return c.hlLines
	}
	expanded := make([]string, c.text.Lines())
	for i := range expanded {
		expanded[i] = editor.ExpandTabs(c.text.Line(i))
	}
	c.hlLines = c.ctx.Highlighter.HighlightLines(b.Path(), b.Language(), strings.Join(expanded, "\n"))
	c.hlSrc = src
	c.hlGen = c.styleGen
	return c.hlLines
}

// Edit handles key input for the editor panel.
func (c *EditorController) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	if c.ctx.Keys.Global(key, ch, mod) {
		return false
	}
	if c.Buffer() == nil {
		return ch != 0
	}
	before := c.text.Text()
	if !c.apply(key, ch, mod) {
		return false
	}
	if after := c.text.Text(); after != before {
		c.ctx.Editor.Edit(after)
	}
	return true
}

// apply performs one key on the text area and reports whether it was consumed.
func (c *EditorController) apply(key gocui.Key, ch rune, mod gocui.Modifier) bool {
	t := c.text
	page := c.height - 1
	if page < 1 {
		page = 1
	}
	switch {
	case ch != 0 && mod == gocui.ModNone:
		t.Insert(ch)
	case key == gocui.KeySpace:
		t.Insert(' ')
	case key == gocui.KeyTab:
		t.Insert('\t')
	case key == gocui.KeyEnter:
		t.Newline()
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		t.Backspace()
	case key == gocui.KeyDelete:
		t.Delete()
	case key == gocui.KeyArrowLeft:
		t.MoveLeft()
	case key == gocui.KeyArrowRight:
		t.MoveRight()
	case key == gocui.KeyArrowUp:
		t.MoveVertical(-1)
	case key == gocui.KeyArrowDown:
		t.MoveVertical(1)
	case key == gocui.KeyPgup:
		t.MoveVertical(-page)
	case key == gocui.KeyPgdn:
		t.MoveVertical(page)
	case key == gocui.KeyHome:
		t.Home()
	case key == gocui.KeyEnd:
		t.End()
	default:
		return false
	}
	return true
}
