package telegram

import "gopkg.in/telebot.v3"

// Client defines an interface for sending messages via a Telegram bot.
// This helps in decoupling the application logic from the specific bot library.
// Failures are reported as errors, not retried inside the client; the caller
// decides what a failure means.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
	// SendAudio delivers a synthesized clip. Callers treat failures as
	// best-effort and swallow them after logging.
	SendAudio(recipientChatID int64, audio []byte, filename string) error
}
