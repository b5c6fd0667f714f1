// Package markup prepares text for Telegram's MarkdownV2 parse mode.
package markup

import "strings"

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeForMarkdown escapes every character MarkdownV2 treats as syntax.
// Telegram accepts a backslash before any ASCII character, so the result is
// valid in running text and inside inline link URLs alike.
func EscapeForMarkdown(src string) string {
	return markdownEscaper.Replace(src)
}
