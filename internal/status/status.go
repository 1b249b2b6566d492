// Package status keeps short-lived notices for the status bar. Posting a
// notice never blocks the caller.
package status

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 4 * time.Second

// maxNotices bounds the history kept for the status bar.
const maxNotices = 20

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notice is one message for the user.
type Notice struct {
	Level Level
	Text  string
	At    time.Time
}

// Board holds recent notices.
type Board struct {
	mu       sync.Mutex
	ttl      time.Duration
	notices  []Notice
	now      func() time.Time
	onChange func()
}

// NewBoard creates a board whose notices expire after ttl. onChange, if set,
// is called after every post with the lock released.
func NewBoard(ttl time.Duration, onChange func()) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, now: time.Now, onChange: onChange}
}

// Info posts an informational notice.
func (b *Board) Info(format string, args ...any) {
	b.post(LevelInfo, fmt.Sprintf(format, args...))
}

// Error posts an error notice with a short prefix describing what failed.
func (b *Board) Error(prefix string, err error) {
	if err == nil {
		return
	}
	text := err.Error()
	if prefix != "" {
		text = prefix + ": " + text
	}
	b.post(LevelError, text)
}

func (b *Board) post(level Level, text string) {
	b.mu.Lock()
	b.notices = append(b.notices, Notice{Level: level, Text: text, At: b.now()})
	if len(b.notices) > maxNotices {
		b.notices = b.notices[len(b.notices)-maxNotices:]
	}
	b.mu.Unlock()
	if b.onChange != nil {
		b.onChange()
	}
}

// Current returns the newest notice that has not expired.
func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.notices) == 0 {
		return Notice{}, false
	}
	n := b.notices[len(b.notices)-1]
	if b.now().Sub(n.At) > b.ttl {
		return Notice{}, false
	}
	return n, true
}

// History returns all kept notices, oldest first.
func (b *Board) History() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notice(nil), b.notices...)
}
