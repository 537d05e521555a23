package logic

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// ClampGameConfig enforces hard safety bounds on the tunables, in place.
func ClampGameConfig(cfg *GameConfig) {
	if cfg == nil {
		return
	}

	// --- server ---
	cfg.Server.TickRate = clampInt(cfg.Server.TickRate, 1, 120)
	cfg.Server.SendBuffer = clampInt(cfg.Server.SendBuffer, 8, 4096)
	cfg.Server.ReapIntervalSec = clampInt(cfg.Server.ReapIntervalSec, 1, 3600)
	cfg.Server.AbandonAfterSec = clampInt(cfg.Server.AbandonAfterSec, 10, 86400)
	cfg.Server.CodeAttempts = clampInt(cfg.Server.CodeAttempts, 1, 1024)
	cfg.Server.ShutdownGraceSec = clampInt(cfg.Server.ShutdownGraceSec, 0, 60)

	// --- gameplay ---
	cfg.Gameplay.RespawnDelayMs = clampInt(cfg.Gameplay.RespawnDelayMs, 0, 60000)
}
