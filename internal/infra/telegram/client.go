// internal/infra/telegram/client.go
package telegram

import (
	"bytes"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // Learners are direct user chats
	_, err := tba.bot.Send(recipient, text, options)
	return err
}

// SendAudio uploads an in-memory audio clip as a regular audio message.
func (tba *TelebotAdapter) SendAudio(recipientChatID int64, audio []byte, filename string) error {
	recipient := &telebot.User{ID: recipientChatID}
	clip := &telebot.Audio{
		File:     telebot.FromReader(bytes.NewReader(audio)),
		FileName: filename,
	}
	_, err := tba.bot.Send(recipient, clip)
	return err
}
