package editor

import (
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// UnsavedDiff returns a unified diff from the saved text to the live text of
// b, or "" when there is nothing unsaved.
func UnsavedDiff(b *Buffer) string {
	if b == nil {
		return ""
	}
	saved, live := b.SavedContent(), b.Content()
	if saved == live {
		return ""
	}
	path := b.Path()
	edits := myers.ComputeEdits(span.URIFromPath(path), saved, live)
	unified := gotextdiff.ToUnified(path+" (saved)", path+" (buffer)", saved, edits)
	return fmt.Sprint(unified)
}
