package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, []string{"/authorization", "/health", "/metrics"}, cfg.Server.PublicRoutes)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "sprintdesk", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 720*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, time.Hour, cfg.Invitation.TTL)
	require.Equal(t, 6, cfg.Invitation.CodeLength)
	require.Equal(t, time.Minute, cfg.Invitation.SweepInterval)
	require.True(t, cfg.Monitoring.MetricsEnabled)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SPRINTDESK_SERVER_PORT", "9090")
	t.Setenv("SPRINTDESK_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("SPRINTDESK_INVITATION_CODE_LENGTH", "8")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "env-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 8, cfg.Invitation.CodeLength)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.Validate())

	cfg.Auth.JWT.Secret = "secret"
	require.NoError(t, cfg.Validate())
}

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, ConfigureLogging(&Config{Server: ServerConfig{LogLevel: "debug"}}))
	require.NoError(t, ConfigureLogging(nil))
}
