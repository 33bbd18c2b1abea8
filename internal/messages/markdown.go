package messages

import "strings"

// markdownV2Special is the set of characters Telegram requires escaped in
// MarkdownV2 text.
const markdownV2Special = "_[]()~`>#+-=|{}.!*<\\"

// Escape escapes Telegram MarkdownV2 special characters.
func Escape(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Bold wraps text in MarkdownV2 bold markers, escaping the content.
func Bold(text string) string {
	return "*" + Escape(text) + "*"
}

// Italic wraps text in MarkdownV2 italic markers, escaping the content.
func Italic(text string) string {
	return "_" + Escape(text) + "_"
}
