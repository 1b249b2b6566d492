package config

import (
	"strings"

	"github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
)

// Key represents a parsed key binding.
type Key struct {
	Value any // rune for single chars, gocui.Key for special keys
	Mod   gocui.Modifier
}

// ParseKey parses a key string into a gocui-compatible key value.
// Supported formats:
//   - Single character: "q", "?", "/" (case preserved, "A" is shift+a)
//   - Special keys: "enter", "space", "esc", "tab", "backspace", "f1".."f12"
//   - Arrow keys: "up", "down", "left", "right"
//   - Ctrl combinations: "ctrl+q", "ctrl+s"
//   - Alt combinations: "alt+x"
func ParseKey(s string) (Key, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Key{}, errors.New("empty key string")
	}
	lower := strings.ToLower(trimmed)

	if char, found := strings.CutPrefix(lower, "ctrl+"); found {
		if ctrlKey, ok := ctrlKeys()[char]; ok {
			return Key{Value: ctrlKey, Mod: gocui.ModNone}, nil
		}
		return Key{}, errors.Errorf("invalid ctrl combination: %s", s)
	}

	if _, found := strings.CutPrefix(lower, "alt+"); found {
		rest := trimmed[len("alt+"):]
		inner, err := ParseKey(rest)
		if err != nil || !inner.IsRune() {
			return Key{}, errors.Errorf("invalid alt combination: %s", s)
		}
		return Key{Value: inner.Value, Mod: gocui.ModAlt}, nil
	}

	if key, ok := specialKeys()[lower]; ok {
		return Key{Value: key, Mod: gocui.ModNone}, nil
	}

	runes := []rune(trimmed)
	if len(runes) == 1 {
		return Key{Value: runes[0], Mod: gocui.ModNone}, nil
	}

	return Key{}, errors.Errorf("unknown key: %s", s)
}

// MustParseKey is ParseKey for keys already checked by ValidateKeys.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// IsRune returns true if the key is a rune (single character).
func (k Key) IsRune() bool {
	_, ok := k.Value.(rune)
	return ok
}

// Rune returns the key as a rune, or 0 if not a rune.
func (k Key) Rune() rune {
	if r, ok := k.Value.(rune); ok {
		return r
	}
	return 0
}

// GocuiKey returns the key as a gocui.Key, or 0 if not a special key.
func (k Key) GocuiKey() gocui.Key {
	if key, ok := k.Value.(gocui.Key); ok {
		return key
	}
	return 0
}

// Matches reports whether an editor event (key, ch, mod) is this binding.
func (k Key) Matches(key gocui.Key, ch rune, mod gocui.Modifier) bool {
	if k.IsRune() {
		return ch == k.Rune() && mod == k.Mod
	}
	return ch == 0 && key == k.GocuiKey()
}

// String converts a Key back to its string representation.
func (k Key) String() string {
	if k.IsRune() {
		if k.Mod == gocui.ModAlt {
			return "alt+" + string(k.Rune())
		}
		return string(k.Rune())
	}

	gKey := k.GocuiKey()
	for _, name := range specialKeyNames {
		if specialKeys()[name] == gKey {
			return name
		}
	}
	for c := 'a'; c <= 'z'; c++ {
		if ctrlKeys()[string(c)] == gKey {
			return "ctrl+" + string(c)
		}
	}
	return ""
}

// specialKeyNames lists the canonical names first so String prefers them over aliases.
var specialKeyNames = []string{
	"enter", "space", "esc", "tab", "backspace", "delete", "insert", "home", "end",
	"pgup", "pgdn", "up", "down", "left", "right",
	"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12",
	"escape", "pageup", "pagedown",
}

// specialKeys maps string names to gocui special keys.
func specialKeys() map[string]gocui.Key {
	m := map[string]gocui.Key{}
	m["enter"] = gocui.KeyEnter
	m["space"] = gocui.KeySpace
	m["esc"] = gocui.KeyEsc
	m["escape"] = gocui.KeyEsc
	m["tab"] = gocui.KeyTab
	m["backspace"] = gocui.KeyBackspace2
	m["delete"] = gocui.KeyDelete
	m["insert"] = gocui.KeyInsert
	m["home"] = gocui.KeyHome
	m["end"] = gocui.KeyEnd
	m["pgup"] = gocui.KeyPgup
	m["pageup"] = gocui.KeyPgup
	m["pgdn"] = gocui.KeyPgdn
	m["pagedown"] = gocui.KeyPgdn
	m["up"] = gocui.KeyArrowUp
	m["down"] = gocui.KeyArrowDown
	m["left"] = gocui.KeyArrowLeft
	m["right"] = gocui.KeyArrowRight
	fkeys := []gocui.Key{
		gocui.KeyF1, gocui.KeyF2, gocui.KeyF3, gocui.KeyF4, gocui.KeyF5, gocui.KeyF6,
		gocui.KeyF7, gocui.KeyF8, gocui.KeyF9, gocui.KeyF10, gocui.KeyF11, gocui.KeyF12,
	}
	for i, k := range fkeys {
		m["f"+itoa(i+1)] = k
	}
	return m
}

// ctrlKeys maps single letters to their ctrl+key equivalents.
// gocui.KeyCtrlA..KeyCtrlZ are the contiguous values 0x01..0x1a.
func ctrlKeys() map[string]gocui.Key {
	m := make(map[string]gocui.Key, 26)
	for c := 'a'; c <= 'z'; c++ {
		m[string(c)] = gocui.KeyCtrlA + gocui.Key(c-'a')
	}
	return m
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return "1" + string(rune('0'+n-10))
}
