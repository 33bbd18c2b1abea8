package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "test-token")
	t.Setenv("DATABASE_URL", "postgres://localhost/learn_en_test?sslmode=disable")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TZ", "")
	t.Setenv("SCHEDULE_CRON", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0 10 * * *", cfg.ScheduleCron)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoadRequiresTokenAndDatabase(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/learn_en_test")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TELEGRAM_TOKEN", "test-token")
	t.Setenv("DATABASE_URL", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TZ", "Not/AZone")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadResolvesConfiguredTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TZ", "Europe/Moscow")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())
}
