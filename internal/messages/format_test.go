package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"a.b!c", `a\.b\!c`},
		{"look after (care for)", `look after \(care for\)`},
		{"1+1=2", `1\+1\=2`},
		{"*bold*", `\*bold\*`},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Escape(tc.in))
	}
}

func TestBoldAndItalicEscapeContent(t *testing.T) {
	assert.Equal(t, `*a\.b*`, Bold("a.b"))
	assert.Equal(t, `_a\.b_`, Italic("a.b"))
}

func TestFormatAssignment(t *testing.T) {
	examples := `[{"text":"She picked up Spanish quickly.","translation":"Она быстро освоила испанский."}]`
	got := FormatAssignment("pick up", "подобрать", "Выучить по ходу дела.", examples)

	assert.Contains(t, got.Markdown, "pick up")
	assert.Contains(t, got.Markdown, "She picked up Spanish quickly")
	assert.Contains(t, got.Markdown, `\.`, "dots must be escaped for MarkdownV2")

	assert.Contains(t, got.Plain, "pick up")
	assert.Contains(t, got.Plain, "She picked up Spanish quickly.")
	assert.NotContains(t, got.Plain, `\`, "plain rendition feeds TTS, no escapes")
}

func TestFormatAssignmentToleratesBrokenExamples(t *testing.T) {
	for _, examples := range []string{"", "not json", "[{]"} {
		got := FormatAssignment("pick up", "подобрать", "Выучить по ходу дела.", examples)
		assert.Contains(t, got.Markdown, "pick up")
		assert.NotEmpty(t, got.Plain)
	}
}

func TestFormatReminderMentionsVerb(t *testing.T) {
	got := FormatReminder("give up")
	assert.Contains(t, got, "give up")
	assert.Contains(t, got, `\.`, "reminder is MarkdownV2")
}
