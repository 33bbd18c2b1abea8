package messages

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ForWorkCodes/learn-en-bot/internal/domain/content"
)

// Formatted is a deliverable payload: Markdown for the chat message and a
// plain rendition used as speech-synthesis input.
type Formatted struct {
	Markdown string
	Plain    string
}

// FormatAssignment builds the lesson message from stored assignment fields.
// examplesJSON is the persisted examples array; malformed JSON degrades to an
// example-free message rather than failing the delivery.
func FormatAssignment(verb, translation, explanation, examplesJSON string) Formatted {
	var examples []content.Example
	if examplesJSON != "" {
		_ = json.Unmarshal([]byte(examplesJSON), &examples)
	}

	var md strings.Builder
	md.WriteString(fmt.Sprintf("%s: %s — %s\n", Bold("Фразовый глагол дня"), Escape(verb), Escape(translation)))
	md.WriteString(fmt.Sprintf("%s: %s\n", Bold("Пояснение"), Escape(strings.TrimSpace(explanation))))

	var plain strings.Builder
	plain.WriteString(fmt.Sprintf("%s. %s. ", verb, translation))
	plain.WriteString(strings.TrimSpace(explanation))

	if len(examples) > 0 {
		md.WriteString("\n" + Bold("Примеры") + ":\n")
		for _, ex := range examples {
			if strings.TrimSpace(ex.Text) == "" {
				continue
			}
			md.WriteString("• " + Escape(ex.Text))
			if ex.Translation != "" {
				md.WriteString(" — " + Italic(ex.Translation))
			}
			md.WriteString("\n")
			plain.WriteString(" " + ex.Text)
		}
	}

	md.WriteString("\n" + Escape("Составь своё предложение с этим глаголом — я помогу его проверить."))
	return Formatted{Markdown: md.String(), Plain: plain.String()}
}

// FormatReminder builds the follow-up nudge referencing the target verb.
func FormatReminder(verb string) string {
	return fmt.Sprintf("%s: %s «%s»\\. %s",
		Bold("Напоминание"),
		Escape("вернись к фразовому глаголу"),
		Escape(verb),
		Escape("Составь ещё одно короткое предложение — я подскажу, всё ли верно."))
}
