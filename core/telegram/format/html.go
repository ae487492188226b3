package format

import (
	"fmt"
	"html"
	"strings"
)

// textEscaper covers the three characters Telegram HTML mode requires escaped in text.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return textEscaper.Replace(text)
}

// EscapeAttr escapes a value placed inside a double-quoted HTML attribute.
func EscapeAttr(value string) string {
	return html.EscapeString(value)
}

// Link renders an anchor with an escaped label.
func Link(href, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, EscapeAttr(href), EscapeHTML(label))
}

// Italic wraps escaped text in <i>.
func Italic(text string) string {
	return "<i>" + EscapeHTML(text) + "</i>"
}
