package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.ServerHost)
	require.Equal(t, "5000", cfg.ServerPort)
	require.Equal(t, "reelview", cfg.PostgresDB)
	require.False(t, cfg.RateLimitEnabled)
	require.Equal(t, 20, cfg.RateLimitRPS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_BURST", "99")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.ServerPort)
	require.True(t, cfg.RateLimitEnabled)
	require.Equal(t, 99, cfg.RateLimitBurst)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 20, cfg.RateLimitRPS)
}
