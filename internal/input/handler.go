package input

import (
	"sync"
)

// Handler manages mode state and the prompt buffer. Only one prompt or
// confirmation is active at a time; starting another replaces it, and the
// replaced confirmation is answered "no".
type Handler struct {
	mode   Mode
	label  string
	buffer []rune
	submit func(string)
	answer func(bool)
	mu     sync.RWMutex
}

// NewHandler creates a new input handler in normal mode.
func NewHandler() *Handler {
	return &Handler{
		mode: ModeNormal,
	}
}

// Mode returns the current input mode.
func (h *Handler) Mode() Mode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

// Label returns the prompt label or confirmation question.
func (h *Handler) Label() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.label
}

// BeginPrompt switches to prompt mode with an initial buffer. submit is
// called with the buffer when the prompt is submitted, not when canceled.
func (h *Handler) BeginPrompt(label, initial string, submit func(string)) {
	h.mu.Lock()
	prev := h.answer
	h.mode = ModePrompt
	h.label = label
	h.buffer = []rune(initial)
	h.submit = submit
	h.answer = nil
	h.mu.Unlock()
	if prev != nil {
		prev(false)
	}
}

// BeginConfirm switches to confirm mode. answer is called exactly once.
func (h *Handler) BeginConfirm(question string, answer func(bool)) {
	h.mu.Lock()
	prev := h.answer
	h.mode = ModeConfirm
	h.label = question
	h.buffer = nil
	h.submit = nil
	h.answer = answer
	h.mu.Unlock()
	if prev != nil {
		prev(false)
	}
}

// InputBuffer returns the current prompt buffer contents.
func (h *Handler) InputBuffer() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return string(h.buffer)
}

// Append adds a character to the prompt buffer.
func (h *Handler) Append(ch rune) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode == ModePrompt {
		h.buffer = append(h.buffer, ch)
	}
}

// Backspace removes the last character from the buffer.
func (h *Handler) Backspace() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) > 0 {
		h.buffer = h.buffer[:len(h.buffer)-1]
	}
}

// Submit ends the prompt and passes the buffer to its callback.
func (h *Handler) Submit() {
	h.mu.Lock()
	if h.mode != ModePrompt {
		h.mu.Unlock()
		return
	}
	text, fn := string(h.buffer), h.submit
	h.reset()
	h.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

// Answer ends the confirmation with the given answer.
func (h *Handler) Answer(yes bool) {
	h.mu.Lock()
	if h.mode != ModeConfirm {
		h.mu.Unlock()
		return
	}
	fn := h.answer
	h.reset()
	h.mu.Unlock()
	if fn != nil {
		fn(yes)
	}
}

// Cancel abandons a prompt, or answers a confirmation "no".
func (h *Handler) Cancel() {
	h.mu.Lock()
	fn := h.answer
	h.reset()
	h.mu.Unlock()
	if fn != nil {
		fn(false)
	}
}

func (h *Handler) reset() {
	h.mode = ModeNormal
	h.label = ""
	h.buffer = nil
	h.submit = nil
	h.answer = nil
}
