// Package pane computes the workspace layout and tracks which panel has focus.
package pane

// StatusBarHeight is the height reserved for the status bar at the bottom.
const StatusBarHeight = 2

const (
	minSidebarWidth   = 12
	minEditorHeight   = 5
	minTerminalHeight = 4
)

// Layout represents the position and size of a pane in screen coordinates.
type Layout struct {
	X0, Y0, X1, Y1 int
}

// Width returns the interior width (excluding borders).
func (l Layout) Width() int {
	w := l.X1 - l.X0 - 1
	if w < 1 {
		return 1
	}
	return w
}

// Height returns the interior height (excluding borders).
func (l Layout) Height() int {
	h := l.Y1 - l.Y0 - 1
	if h < 1 {
		return 1
	}
	return h
}

// WorkspaceLayout holds the four regions of the shell.
type WorkspaceLayout struct {
	Tree     Layout
	Editor   Layout
	Terminal Layout
	Status   Layout
}

// CalculateWorkspaceLayout splits the screen:
//
//	[ tree ][      editor      ]
//	[      ][     terminal     ]
//	[          status          ]
//
// sidebarPercent is the tree's share of the width and editorPercent the
// editor's share of the right column's height.
func CalculateWorkspaceLayout(maxX, maxY, sidebarPercent, editorPercent int) WorkspaceLayout {
	// Bottom row index of the body panels; the status bar sits below.
	bottom := maxY - StatusBarHeight
	if bottom < minEditorHeight+minTerminalHeight {
		bottom = minEditorHeight + minTerminalHeight
	}

	sidebarWidth := maxX * sidebarPercent / 100
	if sidebarWidth > maxX/2 {
		sidebarWidth = maxX / 2
	}
	if sidebarWidth < minSidebarWidth {
		sidebarWidth = minSidebarWidth
	}

	editorBottom := bottom * editorPercent / 100
	if editorBottom > bottom-minTerminalHeight {
		editorBottom = bottom - minTerminalHeight
	}
	if editorBottom < minEditorHeight {
		editorBottom = minEditorHeight
	}

	return WorkspaceLayout{
		Tree:     Layout{0, 0, sidebarWidth - 1, bottom},
		Editor:   Layout{sidebarWidth, 0, maxX - 1, editorBottom - 1},
		Terminal: Layout{sidebarWidth, editorBottom, maxX - 1, bottom},
		Status:   Layout{0, maxY - StatusBarHeight, maxX - 1, maxY},
	}
}
