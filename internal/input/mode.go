// Package input tracks the shell's modal input state: normal navigation, a
// one-line text prompt, or a yes/no confirmation.
package input

// Mode represents the current input mode.
type Mode int

const (
	// ModeNormal is the default mode; keys go to the focused panel.
	ModeNormal Mode = iota
	// ModePrompt collects a line of text (e.g. a new file name).
	ModePrompt
	// ModeConfirm waits for a yes/no answer.
	ModeConfirm
)

// String returns the human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModePrompt:
		return "PROMPT"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

// IsNormal returns true if the mode is normal (navigation) mode.
func (m Mode) IsNormal() bool {
	return m == ModeNormal
}

// IsModal returns true if a prompt or confirmation owns the keyboard.
func (m Mode) IsModal() bool {
	return m == ModePrompt || m == ModeConfirm
}
