// Package editor holds the open file's buffer and persists it after edits settle.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Saver persists file content.
type Saver interface {
	Update(ctx context.Context, path, content string) error
}

// State describes a buffer relative to what the backend holds.
type State int

const (
	StateClean State = iota
	StateDirty
	StateSaving
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "modified"
	case StateSaving:
		return "saving"
	case StateFailed:
		return "save failed"
	default:
		return "saved"
	}
}

// SaveResult reports one completed save.
type SaveResult struct {
	Path string
	Err  error
}

// Buffer is the content of one open file. Each edit restarts a single
// trailing-edge timer; when it fires the current content is sent. Saves for a
// buffer never overlap: a timer that fires mid-save queues one follow-up.
type Buffer struct {
	ctx     context.Context
	saver   Saver
	delay   time.Duration
	onSaved func(SaveResult)
	onState func()

	mu       sync.Mutex
	path     string
	language string
	content  string
	saved    string
	timer    *time.Timer
	gen      uint64
	saving   bool
	pending  bool
	closed   bool
	lastErr  error
}

func newBuffer(ctx context.Context, s Saver, delay time.Duration, path, language, content string, onSaved func(SaveResult), onState func()) *Buffer {
	return &Buffer{
		ctx:      ctx,
		saver:    s,
		delay:    delay,
		onSaved:  onSaved,
		onState:  onState,
		path:     path,
		language: language,
		content:  content,
		saved:    content,
	}
}

// Path returns the remote path the buffer saves to.
func (b *Buffer) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Language returns the extension hint the buffer was opened with.
func (b *Buffer) Language() string {
	return b.language
}

// Content returns the live text.
func (b *Buffer) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content
}

// SavedContent returns the last text the backend acknowledged.
func (b *Buffer) SavedContent() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saved
}

// Dirty reports whether the live text differs from the saved text.
func (b *Buffer) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content != b.saved
}

// State summarizes the buffer for display.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.saving:
		return StateSaving
	case b.content == b.saved:
		return StateClean
	case b.lastErr != nil:
		return StateFailed
	default:
		return StateDirty
	}
}

// Closed reports whether the buffer was replaced or discarded.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Edit replaces the live text and restarts the autosave timer. Text equal to
// the saved content cancels a pending save instead.
func (b *Buffer) Edit(content string) {
	b.mu.Lock()
	if b.closed || content == b.content {
		b.mu.Unlock()
		return
	}
	b.content = content
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if content != b.saved {
		gen := b.gen
		b.timer = time.AfterFunc(b.delay, func() { b.fire(gen) })
	}
	b.mu.Unlock()
	b.stateChanged()
}

// SaveNow skips the remaining quiet period and blocks until the save
// finishes. If a save is already running a follow-up is queued instead.
func (b *Buffer) SaveNow() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	gen := b.gen
	b.mu.Unlock()
	b.fire(gen)
}

// fire runs when the quiet period for generation gen ends.
func (b *Buffer) fire(gen uint64) {
	b.mu.Lock()
	if b.closed || gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	if b.saving {
		b.pending = true
		b.mu.Unlock()
		return
	}
	if b.content == b.saved {
		b.mu.Unlock()
		return
	}
	b.saving = true
	path, snapshot := b.path, b.content
	b.mu.Unlock()
	b.stateChanged()

	for {
		err := b.saver.Update(b.ctx, path, snapshot)

		b.mu.Lock()
		if b.closed {
			b.saving = false
			b.pending = false
			b.mu.Unlock()
			log.Debug().Str("path", path).Msg("ignoring save completion for closed buffer")
			return
		}
		if err == nil {
			b.saved = snapshot
		}
		b.lastErr = err
		donePath, doneBytes := path, len(snapshot)
		again := b.pending && b.content != b.saved
		b.pending = false
		if again {
			path, snapshot = b.path, b.content
		} else {
			b.saving = false
		}
		b.mu.Unlock()

		if err != nil {
			log.Warn().Err(err).Str("path", donePath).Msg("autosave failed")
		} else {
			log.Debug().Str("path", donePath).Int("bytes", doneBytes).Msg("autosaved")
		}
		if b.onSaved != nil {
			b.onSaved(SaveResult{Path: donePath, Err: err})
		}
		b.stateChanged()

		if !again {
			return
		}
	}
}

// retarget points the buffer at a new remote path after a rename.
func (b *Buffer) retarget(path string) {
	b.mu.Lock()
	b.path = path
	b.mu.Unlock()
}

// close cancels the pending timer. An in-flight save is left to finish but
// its result is ignored.
func (b *Buffer) close() {
	b.mu.Lock()
	b.closed = true
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()
}

func (b *Buffer) stateChanged() {
	if b.onState != nil {
		b.onState()
	}
}
