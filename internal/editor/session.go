package editor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Document is a file ready to be edited.
type Document struct {
	Path     string
	Content  string
	Language string
}

// Session owns the single active buffer. Opening a document replaces the
// buffer wholesale; the old buffer's timer is cancelled and its in-flight
// save, if any, is ignored when it completes.
type Session struct {
	ctx     context.Context
	saver   Saver
	onSaved func(SaveResult)
	onState func()

	mu    sync.Mutex
	delay time.Duration
	buf   *Buffer
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Delay   time.Duration
	OnSaved func(SaveResult)
	OnState func()
}

// NewSession creates a session with no buffer. ctx bounds every save.
func NewSession(ctx context.Context, s Saver, opts SessionOptions) *Session {
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}
	return &Session{
		ctx:     ctx,
		saver:   s,
		delay:   opts.Delay,
		onSaved: opts.OnSaved,
		onState: opts.OnState,
	}
}

// Open discards the current buffer and starts a new one for doc.
func (s *Session) Open(doc Document) *Buffer {
	b := newBuffer(s.ctx, s.saver, s.Delay(), doc.Path, doc.Language, doc.Content, s.onSaved, s.onState)

	s.mu.Lock()
	old := s.buf
	s.buf = b
	s.mu.Unlock()

	if old != nil {
		if old.Dirty() {
			log.Warn().Str("path", old.Path()).Msg("discarding unsaved edits on file switch")
		}
		old.close()
	}
	log.Debug().Str("path", doc.Path).Str("language", doc.Language).Msg("opened buffer")
	return b
}

// Current returns the active buffer, or nil.
func (s *Session) Current() *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// Edit applies content to the active buffer.
func (s *Session) Edit(content string) {
	if b := s.Current(); b != nil {
		b.Edit(content)
	}
}

// SaveNow flushes the active buffer.
func (s *Session) SaveNow() {
	if b := s.Current(); b != nil {
		b.SaveNow()
	}
}

// Delay returns the debounce window used for newly opened buffers.
func (s *Session) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// SetDelay changes the debounce window for buffers opened from now on.
func (s *Session) SetDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// PathMoved follows a rename of the open file or one of its directories.
func (s *Session) PathMoved(oldPath, newPath string) {
	b := s.Current()
	if b == nil {
		return
	}
	p := b.Path()
	if rest, ok := underPath(p, oldPath); ok {
		b.retarget(newPath + rest)
		log.Debug().Str("from", p).Str("to", newPath+rest).Msg("buffer retargeted")
	}
}

// PathRemoved closes the buffer if its file was deleted, so no save
// recreates it.
func (s *Session) PathRemoved(path string) bool {
	s.mu.Lock()
	b := s.buf
	if b == nil {
		s.mu.Unlock()
		return false
	}
	if _, ok := underPath(b.Path(), path); !ok {
		s.mu.Unlock()
		return false
	}
	s.buf = nil
	s.mu.Unlock()

	b.close()
	log.Debug().Str("path", path).Msg("buffer closed after delete")
	return true
}

// Close discards the active buffer.
func (s *Session) Close() {
	s.mu.Lock()
	b := s.buf
	s.buf = nil
	s.mu.Unlock()
	if b != nil {
		b.close()
	}
}

// underPath reports whether p is dir or inside it, returning the remainder.
func underPath(p, dir string) (string, bool) {
	if p == dir {
		return "", true
	}
	for _, sep := range []string{"/", `\`} {
		if strings.HasPrefix(p, dir+sep) {
			return p[len(dir):], true
		}
	}
	return "", false
}
