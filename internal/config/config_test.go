package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ModeAll, cfg.Mode)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "@every 1m", cfg.ReminderSchedule)
	assert.Equal(t, TransportTelegram, cfg.NotifyTransport)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.True(t, cfg.RunsServer())
	assert.True(t, cfg.RunsWorker())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("MODE", "worker")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("NOTIFY_TRANSPORT", "STREAM")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.RunsServer())
	assert.True(t, cfg.RunsWorker())
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, TransportStream, cfg.NotifyTransport)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "production")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := Config{
		Mode:              ModeServer,
		NotifyTransport:   TransportTelegram,
		AccessTokenTTL:    time.Minute,
		RefreshTokenTTL:   time.Hour,
		WorkerConcurrency: 1,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Mode = "batch"
	assert.Error(t, bad.Validate())

	bad = base
	bad.NotifyTransport = "smtp"
	assert.Error(t, bad.Validate())

	bad = base
	bad.WorkerConcurrency = 0
	assert.Error(t, bad.Validate())
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
}
