// internal/infra/telegram/bot_commands_handler_test.go
package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDailyTime(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "09:30", hour: 9, minute: 30},
		{in: "9:30", hour: 9, minute: 30},
		{in: "00:00", hour: 0, minute: 0},
		{in: "23:59", hour: 23, minute: 59},
		{in: " 10:05 ", hour: 10, minute: 5},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "-1:30", wantErr: true},
		{in: "12", wantErr: true},
		{in: "12:3:4", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			hour, minute, err := parseDailyTime(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.hour, hour)
			assert.Equal(t, tc.minute, minute)
		})
	}
}

func TestMenusCarryExpectedCallbacks(t *testing.T) {
	menu := MainMenu(false)
	var data []string
	for _, row := range menu.InlineKeyboard {
		for _, btn := range row {
			data = append(data, btn.Data)
		}
	}
	assert.Contains(t, data, setTimeCallback)
	assert.Contains(t, data, getVerbNowCallback)
	assert.Contains(t, data, getNewVerbCallback)
	assert.Contains(t, data, audioOnCallback)
	assert.NotContains(t, data, audioOffCallback)

	menu = MainMenu(true)
	data = data[:0]
	for _, row := range menu.InlineKeyboard {
		for _, btn := range row {
			data = append(data, btn.Data)
		}
	}
	assert.Contains(t, data, audioOffCallback)
	assert.NotContains(t, data, audioOnCallback)

	settings := timeSettingsMenu(false)
	assert.Equal(t, cancelTimeCallback, settings.InlineKeyboard[0][0].Data)
}

func TestPendingTimeFlagIsConsumedOnce(t *testing.T) {
	h := &Handlers{pendingTime: make(map[int64]bool)}

	assert.False(t, h.takePendingTime(7))
	h.markPendingTime(7)
	assert.True(t, h.takePendingTime(7))
	assert.False(t, h.takePendingTime(7), "flag is one-shot")

	h.markPendingTime(7)
	h.clearPendingTime(7)
	assert.False(t, h.takePendingTime(7))
}
