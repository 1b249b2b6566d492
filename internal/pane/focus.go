package pane

import "sync"

// Panel identifies one of the focusable workspace panels.
type Panel int

const (
	PanelTree Panel = iota
	PanelEditor
	PanelTerminal
)

// ring is the Next/Prev order.
var ring = []Panel{PanelTree, PanelEditor, PanelTerminal}

func (p Panel) String() string {
	switch p {
	case PanelTree:
		return "tree"
	case PanelEditor:
		return "editor"
	case PanelTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Focus tracks the active panel with thread-safe operations.
type Focus struct {
	mu        sync.RWMutex
	activeIdx int
	onChange  func(from, to Panel)
}

// NewFocus creates a focus ring starting on the tree. onChange, if set, is
// called after every change with the lock released.
func NewFocus(onChange func(from, to Panel)) *Focus {
	return &Focus{onChange: onChange}
}

// Active returns the focused panel.
func (f *Focus) Active() Panel {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return ring[f.activeIdx]
}

// Set focuses p. Unknown panels are ignored.
func (f *Focus) Set(p Panel) {
	for i, r := range ring {
		if r == p {
			f.move(func(int) int { return i })
			return
		}
	}
}

// Next moves focus to the next panel (wraps around).
func (f *Focus) Next() {
	f.move(func(i int) int { return (i + 1) % len(ring) })
}

// Prev moves focus to the previous panel (wraps around).
func (f *Focus) Prev() {
	f.move(func(i int) int { return (i - 1 + len(ring)) % len(ring) })
}

func (f *Focus) move(next func(int) int) {
	f.mu.Lock()
	from := ring[f.activeIdx]
	f.activeIdx = next(f.activeIdx)
	to := ring[f.activeIdx]
	f.mu.Unlock()

	if from != to && f.onChange != nil {
		f.onChange(from, to)
	}
}
