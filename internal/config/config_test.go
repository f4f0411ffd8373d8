package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, 0.5, cfg.Feed.MaxDriftPct)
	assert.Equal(t, 80.0, cfg.Settlement.ReturnRatePct)
	assert.Equal(t, 30.0, cfg.Settlement.DefaultWinRate)
	assert.Greater(t, cfg.Liveness.Timeout, cfg.Liveness.ProbeInterval)
	assert.NotEmpty(t, cfg.Feed.Instruments)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadWinRate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SETTLEMENT_DEFAULT_WIN_RATE", "140")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("FEED_TICK_SECONDS", "5")
	t.Setenv("FEED_INSTRUMENTS", "BTCUSD,SOLUSD")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSD", "SOLUSD"}, cfg.Feed.Instruments)
	assert.Equal(t, "5s", cfg.Feed.TickInterval.String())
}
