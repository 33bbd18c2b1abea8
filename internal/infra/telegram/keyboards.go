// internal/infra/telegram/keyboards.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

const (
	setTimeButton      = "Настроить время"
	getVerbNowButton   = "Напомнить фразовый глагол"
	getNewVerbButton   = "Новый фразовый глагол"
	audioDisableButton = "Отключить аудио"
	audioEnableButton  = "Включить аудио"
	cancelButton       = "Отмена"

	setTimeCallback    = "menu:set_time"
	getVerbNowCallback = "menu:get_now"
	getNewVerbCallback = "menu:get_new"
	audioOffCallback   = "menu:audio_off"
	audioOnCallback    = "menu:audio_on"
	cancelTimeCallback = "menu:cancel_time"
)

func baseMenuRows(sendAudio bool) [][]telebot.InlineButton {
	rows := [][]telebot.InlineButton{
		{
			{Text: setTimeButton, Data: setTimeCallback},
			{Text: getVerbNowButton, Data: getVerbNowCallback},
		},
		{
			{Text: getNewVerbButton, Data: getNewVerbCallback},
		},
	}

	audioButton := telebot.InlineButton{Text: audioEnableButton, Data: audioOnCallback}
	if sendAudio {
		audioButton = telebot.InlineButton{Text: audioDisableButton, Data: audioOffCallback}
	}
	rows = append(rows, []telebot.InlineButton{audioButton})
	return rows
}

// MainMenu is the inline menu attached to lesson messages. The audio button
// reflects the user's current voice preference.
func MainMenu(sendAudio bool) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: baseMenuRows(sendAudio)}
}

// timeSettingsMenu is shown while the bot waits for a HH:MM reply; it adds a
// cancel row above the regular menu.
func timeSettingsMenu(sendAudio bool) *telebot.ReplyMarkup {
	rows := [][]telebot.InlineButton{
		{{Text: cancelButton, Data: cancelTimeCallback}},
	}
	rows = append(rows, baseMenuRows(sendAudio)...)
	return &telebot.ReplyMarkup{InlineKeyboard: rows}
}
