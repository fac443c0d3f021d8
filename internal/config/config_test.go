package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("APP_TIMEZONE", "Africa/Lagos")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	require.True(t, cfg.App.IsProduction())
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "Africa/Lagos", cfg.App.Location().String())
	require.True(t, cfg.Scheduler.Enabled)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Not/AZone")

	_, err := Load(context.Background())
	require.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestLoadAdminSecretLength(t *testing.T) {
	t.Setenv("AUTH_ADMIN_SECRET", "short-secret")
	_, err := Load(context.Background())
	require.ErrorIs(t, err, ErrAdminSecretTooShort)

	t.Setenv("AUTH_ADMIN_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.Auth.AdminSecret, MinAdminSecretLen)

	t.Setenv("AUTH_ADMIN_SECRET", "")
	_, err = Load(context.Background())
	require.NoError(t, err)
}
