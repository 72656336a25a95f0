package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, "@daily", cfg.SweepCron)
	assert.Equal(t, 90*24*time.Hour, cfg.TokenMaxIdle)
	assert.Error(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icscal.yaml")
	data := `
address: ":9090"
ics_auth_key: from-file
jwt_secret: file-secret
token_max_idle: 24h
google:
  calendar_id: holidays@group.calendar.google.com
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("TG_CHAT_ID", "-1001")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, "from-file", cfg.ICSAuthKey)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.TokenMaxIdle)
	assert.Equal(t, "holidays@group.calendar.google.com", cfg.Google.CalendarID)
	assert.Equal(t, int64(-1001), cfg.Telegram.ChatID)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("TOKEN_MAX_IDLE", "forever")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidateGoogleNeedsCalendar(t *testing.T) {
	cfg := Default()
	cfg.ICSAuthKey = "key"
	cfg.JWTSecret = "secret"
	cfg.Google.CredentialsFile = "/etc/icscal/google.json"
	require.ErrorContains(t, cfg.Validate(), "google calendar id")

	cfg.Google.CalendarID = "holidays@group.calendar.google.com"
	require.NoError(t, cfg.Validate())
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, "")
	assert.Empty(t, Path())

	path := filepath.Join(t.TempDir(), "icscal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: \":7070\"\n"), 0o600))
	t.Setenv("ICSCAL_CONFIG", path)
	t.Setenv("ADDRESS", "")
	require.Equal(t, path, Path())

	cfg, err := Load(Path())
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Address)
}
