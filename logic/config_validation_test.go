package logic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampGameConfig(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.Server.TickRate = 0
	cfg.Server.SendBuffer = 1 << 20
	cfg.Server.AbandonAfterSec = 1
	cfg.Gameplay.RespawnDelayMs = -5

	ClampGameConfig(cfg)
	require.Equal(t, 1, cfg.Server.TickRate)
	require.Equal(t, 4096, cfg.Server.SendBuffer)
	require.Equal(t, 10, cfg.Server.AbandonAfterSec)
	require.Equal(t, 0, cfg.Gameplay.RespawnDelayMs)
	require.Equal(t, 64, cfg.Server.CodeAttempts)
}

func TestClampGameConfigKeepsDefaults(t *testing.T) {
	cfg := DefaultGameConfig()
	ClampGameConfig(cfg)
	require.Equal(t, DefaultGameConfig(), cfg)

	ClampGameConfig(nil)
}
