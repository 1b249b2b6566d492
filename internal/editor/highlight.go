package editor

import (
	"bytes"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// languageNames maps extension hints to the language shown in the editor title.
var languageNames = map[string]string{
	"js":   "javascript",
	"jsx":  "javascript",
	"mjs":  "javascript",
	"ts":   "typescript",
	"tsx":  "typescript",
	"py":   "python",
	"java": "java",
	"c":    "c",
	"h":    "c",
	"cc":   "cpp",
	"cpp":  "cpp",
	"hpp":  "cpp",
	"html": "html",
	"htm":  "html",
	"css":  "css",
	"json": "json",
	"xml":  "xml",
	"md":   "markdown",
	"rs":   "rust",
	"php":  "php",
	"sql":  "sql",
	"yaml": "yaml",
	"yml":  "yaml",
	"go":   "go",
	"sh":   "bash",
	"toml": "toml",
	"txt":  "plaintext",
}

// LanguageName returns a display name for an extension hint.
func LanguageName(hint string) string {
	if name, ok := languageNames[strings.ToLower(hint)]; ok {
		return name
	}
	return hint
}

// Highlighter renders buffer text as 256-color ANSI for the editor panel.
type Highlighter struct {
	mu     sync.Mutex
	style  *chroma.Style
	lexers map[string]chroma.Lexer
}

// NewHighlighter creates a highlighter using the named chroma style.
func NewHighlighter(style string) *Highlighter {
	h := &Highlighter{lexers: map[string]chroma.Lexer{}}
	h.SetStyle(style)
	return h
}

// SetStyle switches the color scheme; unknown names fall back to chroma's default.
func (h *Highlighter) SetStyle(name string) {
	s := styles.Get(name)
	if s == nil {
		s = styles.Fallback
	}
	h.mu.Lock()
	h.style = s
	h.mu.Unlock()
}

// Lexer picks a lexer by file name first, then by language hint.
func (h *Highlighter) Lexer(path, hint string) chroma.Lexer {
	key := path + "\x00" + hint
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.lexers[key]; ok {
		return l
	}

	l := lexers.Match(path)
	if l == nil && hint != "" {
		l = lexers.Get(LanguageName(hint))
	}
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)
	h.lexers[key] = l
	return l
}

// Highlight returns src with ANSI color escapes. Lines are preserved one to
// one so the caller can window them. On failure src is returned unchanged.
func (h *Highlighter) Highlight(path, hint, src string) string {
	lexer := h.Lexer(path, hint)
	h.mu.Lock()
	style := h.style
	h.mu.Unlock()

	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}
	var buf bytes.Buffer
	if err := formatters.TTY256.Format(&buf, style, it); err != nil {
		return src
	}
	return buf.String()
}

// HighlightLines highlights src and splits the result into lines. Color state
// is re-established at the start of every line.
func (h *Highlighter) HighlightLines(path, hint, src string) []string {
	lexer := h.Lexer(path, hint)
	h.mu.Lock()
	style := h.style
	h.mu.Unlock()

	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return strings.Split(src, "\n")
	}

	// Split tokens on newlines so each line is formatted on its own and
	// carries its own escapes.
	var lines []string
	var current []chroma.Token
	flush := func() {
		var buf bytes.Buffer
		if err := formatters.TTY256.Format(&buf, style, chroma.Literator(current...)); err != nil {
			var plain strings.Builder
			for _, t := range current {
				plain.WriteString(t.Value)
			}
			lines = append(lines, plain.String())
		} else {
			lines = append(lines, buf.String())
		}
		current = current[:0]
	}
	for tok := it(); tok != chroma.EOF; tok = it() {
		parts := strings.Split(tok.Value, "\n")
		for i, p := range parts {
			if i > 0 {
				flush()
			}
			if p != "" {
				current = append(current, chroma.Token{Type: tok.Type, Value: p})
			}
		}
	}
	flush()

	// Lexers usually emit a trailing newline token; keep the line count of src.
	want := strings.Count(src, "\n") + 1
	for len(lines) < want {
		lines = append(lines, "")
	}
	return lines[:want]
}
