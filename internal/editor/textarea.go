package editor

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TabWidth is the display width of a tab stop.
const TabWidth = 4

// TextArea is a line-based editing model with a cursor and a scroll window.
// It is not safe for concurrent use; the UI loop owns it.
type TextArea struct {
	lines [][]rune
	cx    int // rune index in the current line
	cy    int
	want  int // preferred display column for vertical moves
	top   int
	left  int
}

// NewTextArea creates a text area holding s with the cursor at the start.
func NewTextArea(s string) *TextArea {
	t := &TextArea{}
	t.SetText(s)
	return t
}

// SetText replaces the content and resets cursor and scroll.
func (t *TextArea) SetText(s string) {
	parts := strings.Split(s, "\n")
	t.lines = make([][]rune, len(parts))
	for i, p := range parts {
		t.lines[i] = []rune(p)
	}
	t.cx, t.cy, t.want, t.top, t.left = 0, 0, 0, 0, 0
}

// Text returns the content joined with newlines.
func (t *TextArea) Text() string {
	var sb strings.Builder
	for i, l := range t.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(string(l))
	}
	return sb.String()
}

// Lines returns the number of lines.
func (t *TextArea) Lines() int {
	return len(t.lines)
}

// Line returns line i as a string.
func (t *TextArea) Line(i int) string {
	if i < 0 || i >= len(t.lines) {
		return ""
	}
	return string(t.lines[i])
}

// Cursor returns the cursor as (rune column, line).
func (t *TextArea) Cursor() (int, int) {
	return t.cx, t.cy
}

// SetCursor moves the cursor, clamping to the content.
func (t *TextArea) SetCursor(x, y int) {
	t.cy = clamp(y, 0, len(t.lines)-1)
	t.cx = clamp(x, 0, len(t.lines[t.cy]))
	t.want = t.displayCol(t.cy, t.cx)
}

// Insert types r at the cursor.
func (t *TextArea) Insert(r rune) {
	line := t.lines[t.cy]
	nl := make([]rune, 0, len(line)+1)
	nl = append(nl, line[:t.cx]...)
	nl = append(nl, r)
	nl = append(nl, line[t.cx:]...)
	t.lines[t.cy] = nl
	t.cx++
	t.want = t.displayCol(t.cy, t.cx)
}

// Newline splits the line at the cursor, carrying over leading indentation.
func (t *TextArea) Newline() {
	line := t.lines[t.cy]
	head := append([]rune(nil), line[:t.cx]...)
	tail := line[t.cx:]

	indent := 0
	for indent < len(head) && (head[indent] == ' ' || head[indent] == '\t') {
		indent++
	}
	next := append(append([]rune(nil), head[:indent]...), tail...)

	t.lines[t.cy] = head
	t.lines = append(t.lines[:t.cy+1], append([][]rune{next}, t.lines[t.cy+1:]...)...)
	t.cy++
	t.cx = indent
	t.want = t.displayCol(t.cy, t.cx)
}

// Backspace deletes the rune before the cursor, joining lines at column 0.
// It reports whether anything changed.
func (t *TextArea) Backspace() bool {
	switch {
	case t.cx > 0:
		line := t.lines[t.cy]
		t.lines[t.cy] = append(line[:t.cx-1:t.cx-1], line[t.cx:]...)
		t.cx--
	case t.cy > 0:
		prev := t.lines[t.cy-1]
		t.cx = len(prev)
		t.lines[t.cy-1] = append(prev[:len(prev):len(prev)], t.lines[t.cy]...)
		t.lines = append(t.lines[:t.cy], t.lines[t.cy+1:]...)
		t.cy--
	default:
		return false
	}
	t.want = t.displayCol(t.cy, t.cx)
	return true
}

// Delete removes the rune under the cursor, joining the next line at EOL.
// It reports whether anything changed.
func (t *TextArea) Delete() bool {
	line := t.lines[t.cy]
	switch {
	case t.cx < len(line):
		t.lines[t.cy] = append(line[:t.cx:t.cx], line[t.cx+1:]...)
	case t.cy < len(t.lines)-1:
		t.lines[t.cy] = append(line[:len(line):len(line)], t.lines[t.cy+1]...)
		t.lines = append(t.lines[:t.cy+1], t.lines[t.cy+2:]...)
	default:
		return false
	}
	return true
}

// MoveLeft moves one rune back, wrapping to the previous line.
func (t *TextArea) MoveLeft() {
	if t.cx > 0 {
		t.cx--
	} else if t.cy > 0 {
		t.cy--
		t.cx = len(t.lines[t.cy])
	}
	t.want = t.displayCol(t.cy, t.cx)
}

// MoveRight moves one rune forward, wrapping to the next line.
func (t *TextArea) MoveRight() {
	if t.cx < len(t.lines[t.cy]) {
		t.cx++
	} else if t.cy < len(t.lines)-1 {
		t.cy++
		t.cx = 0
	}
	t.want = t.displayCol(t.cy, t.cx)
}

// MoveVertical moves n lines (negative is up), keeping the preferred column.
func (t *TextArea) MoveVertical(n int) {
	t.cy = clamp(t.cy+n, 0, len(t.lines)-1)
	t.cx = t.runeAt(t.cy, t.want)
}

// Home moves to the first non-blank rune, or column 0 if already there.
func (t *TextArea) Home() {
	line := t.lines[t.cy]
	first := 0
	for first < len(line) && (line[first] == ' ' || line[first] == '\t') {
		first++
	}
	if t.cx == first {
		first = 0
	}
	t.cx = first
	t.want = t.displayCol(t.cy, t.cx)
}

// End moves to the end of the line.
func (t *TextArea) End() {
	t.cx = len(t.lines[t.cy])
	t.want = t.displayCol(t.cy, t.cx)
}

// Scroll adjusts the window so the cursor is visible in a width x height
// viewport and returns the window origin and the cursor's position in it.
func (t *TextArea) Scroll(width, height int) (left, top, curX, curY int) {
	if height < 1 {
		height = 1
	}
	if width < 1 {
		width = 1
	}
	if t.cy < t.top {
		t.top = t.cy
	}
	if t.cy >= t.top+height {
		t.top = t.cy - height + 1
	}
	col := t.displayCol(t.cy, t.cx)
	if col < t.left {
		t.left = col
	}
	if col >= t.left+width {
		t.left = col - width + 1
	}
	return t.left, t.top, col - t.left, t.cy - t.top
}

// ExpandTabs renders a line for display with tabs expanded to stops.
func ExpandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := TabWidth - col%TabWidth
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	return sb.String()
}

// displayCol converts a rune index to a screen column.
func (t *TextArea) displayCol(y, x int) int {
	col := 0
	for _, r := range t.lines[y][:x] {
		if r == '\t' {
			col += TabWidth - col%TabWidth
		} else {
			col += runewidth.RuneWidth(r)
		}
	}
	return col
}

// runeAt converts a screen column to the nearest rune index on line y.
func (t *TextArea) runeAt(y, want int) int {
	col := 0
	for i, r := range t.lines[y] {
		w := runewidth.RuneWidth(r)
		if r == '\t' {
			w = TabWidth - col%TabWidth
		}
		if col+w > want {
			return i
		}
		col += w
	}
	return len(t.lines[y])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
