// Package terminal streams a remote shell over a websocket into a local
// emulator screen.
package terminal

import (
	"strings"
	"sync"

	"github.com/vito/midterm"
)

const (
	// DefaultRows and DefaultCols size a screen before the first resize.
	DefaultRows = 10
	DefaultCols = 80

	// ClearScreen is the form feed byte (Ctrl+L). It is handled locally.
	ClearScreen byte = 0x0c
)

// clearSequence homes the cursor and erases the display and scrollback.
var clearSequence = []byte("\x1b[H\x1b[2J\x1b[3J")

// Screen wraps midterm.Terminal with a mutex for thread-safe access.
// All reads and writes to the emulator must go through this wrapper.
type Screen struct {
	mu       sync.Mutex
	term     *midterm.Terminal
	disposed bool
}

// NewScreen creates a screen with the given dimensions.
func NewScreen(rows, cols int) *Screen {
	if rows <= 0 {
		rows = DefaultRows
	}
	if cols <= 0 {
		cols = DefaultCols
	}
	return &Screen{term: midterm.NewTerminal(rows, cols)}
}

// Write feeds raw output bytes to the emulator. Writes after Dispose are dropped.
func (s *Screen) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return len(data), nil
	}
	return s.term.Write(data)
}

// Clear erases the visible screen and moves the cursor home.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.term.Write(clearSequence)
}

// Resize changes the emulator dimensions. It reports whether they changed.
func (s *Screen) Resize(rows, cols int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || rows <= 0 || cols <= 0 {
		return false
	}
	if rows == s.term.Height && cols == s.term.Width {
		return false
	}
	s.term.Resize(rows, cols)
	return true
}

// Render writes the screen content with ANSI styling to w.
func (s *Screen) Render(w *strings.Builder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.term.Height <= 0 || s.term.Width <= 0 {
		return nil
	}
	return s.term.Render(w)
}

// Text returns the screen content without styling, one line per row with
// trailing blanks trimmed.
func (s *Screen) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ""
	}
	lines := make([]string, 0, len(s.term.Content))
	for _, row := range s.term.Content {
		lines = append(lines, strings.TrimRight(string(row), " \x00"))
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// Cursor returns the current cursor position.
func (s *Screen) Cursor() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term.Cursor.X, s.term.Cursor.Y
}

// Dimensions returns the screen size.
func (s *Screen) Dimensions() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term.Height, s.term.Width
}

// CursorVisible reports whether the remote program wants the cursor shown.
func (s *Screen) CursorVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term.CursorVisible && !s.disposed
}

// Dispose releases the emulator. Further writes and renders are no-ops.
func (s *Screen) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
}

// Geometry converts an area measured in some unit (pixels, or cells when
// both cell sizes are 1) to rows and columns.
type Geometry struct {
	CellWidth  int
	CellHeight int
}

// Fit returns the rows and columns that fit in width x height, at least 1x1.
func (g Geometry) Fit(width, height int) (rows, cols int) {
	cw, ch := g.CellWidth, g.CellHeight
	if cw <= 0 {
		cw = 1
	}
	if ch <= 0 {
		ch = 1
	}
	rows, cols = height/ch, width/cw
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}
