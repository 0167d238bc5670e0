package format

import (
	"html"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the Telegram limit for a single text message.
const MaxMessageLength = 4096

// EscapeHTML escapes user-provided text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Bold wraps text in a <b> span.
func Bold(text string) string {
	return "<b>" + text + "</b>"
}

// Code wraps text in a <code> span.
func Code(text string) string {
	return "<code>" + text + "</code>"
}

// Pre wraps text in a <pre> block.
func Pre(text string) string {
	return "<pre>" + text + "</pre>"
}

// Chunk splits text into consecutive segments of at most limit characters.
// Segments are cut on rune boundaries; an empty text yields no chunks.
func Chunk(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var b strings.Builder
	n := 0
	for _, r := range text {
		b.WriteRune(r)
		n++
		if n == limit {
			chunks = append(chunks, b.String())
			b.Reset()
			n = 0
		}
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// Center pads s with spaces to width, putting the odd space on the right.
func Center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	pad := width - n
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// PadLeft right-aligns s within width.
func PadLeft(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}
