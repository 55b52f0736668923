package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHIEF_ADMIN_IDS", "100, 200")
	t.Setenv("TECH_LEAD_ID", "300")
	t.Setenv("DB_USER", "bot")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "munbot")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, []int64{100, 200}, cfg.ChiefAdminIDs)
	assert.Equal(t, int64(300), cfg.TechLeadID)

	// host and port fall back to local defaults
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"bot token", "BOT_TOKEN"},
		{"chief admin ids", "CHIEF_ADMIN_IDS"},
		{"tech lead id", "TECH_LEAD_ID"},
		{"db password", "DB_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_BadIDList(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHIEF_ADMIN_IDS", "100,abc")

	_, err := Load()
	require.Error(t, err)
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("1,2, 3 ,")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = parseIDList("")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
