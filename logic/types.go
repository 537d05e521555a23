package logic

// Side is the team a participant fights for.
type Side string

const (
	SideAllies Side = "allies"
	SideAxis   Side = "axis"
)

// Facing is the horizontal direction a soldier looks and fires toward.
type Facing string

const (
	FacingLeft  Facing = "left"
	FacingRight Facing = "right"
)

// Weapon identifies an entry of the weapon table.
type Weapon string

const (
	WeaponRifle  Weapon = "rifle"
	WeaponSMG    Weapon = "smg"
	WeaponSniper Weapon = "sniper"
)

// Vector2 represents a 2D position
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is one participant's soldier. ID is the durable client token.
type Player struct {
	ID          string  `json:"id"`
	Side        Side    `json:"side"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	Health      int     `json:"health"`
	Ammo        int     `json:"ammo"`
	Grenades    int     `json:"grenades"`
	Alive       bool    `json:"alive"`
	Facing      Facing  `json:"facing"`
	Crouching   bool    `json:"crouching"`
	InTrench    bool    `json:"inTrench"`
	Weapon      Weapon  `json:"weapon"`
	Reloading   bool    `json:"reloading"`
	ReloadStart int64   `json:"reloadStart"` // unix ms
	LastShot    int64   `json:"lastShot"`    // unix ms
	Kills       int     `json:"kills"`
	Deaths      int     `json:"deaths"`
}

// Projectile is a bullet in flight.
type Projectile struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Owner  string  `json:"owner"`
	Damage int     `json:"damage"`
}

// Grenade is a thrown explosive. Timer counts down in ticks.
type Grenade struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Owner    string  `json:"owner"`
	Timer    int     `json:"timer"`
	Exploded bool    `json:"exploded"`
}

// Explosion is emitted once when a grenade detonates.
type Explosion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Input is the latest intent a client reported. Weapon is empty when the
// client does not request a switch.
type Input struct {
	Left    bool   `json:"left"`
	Right   bool   `json:"right"`
	Jump    bool   `json:"jump"`
	Crouch  bool   `json:"crouch"`
	Shoot   bool   `json:"shoot"`
	Grenade bool   `json:"grenade"`
	Reload  bool   `json:"reload"`
	Weapon  Weapon `json:"weapon,omitempty"`
}

// GameConfig holds the server tunables (mirrors game_config.json)
type GameConfig struct {
	Server struct {
		TickRate         int `json:"tick_rate"`
		SendBuffer       int `json:"send_buffer"`
		ReapIntervalSec  int `json:"reap_interval_sec"`
		AbandonAfterSec  int `json:"abandon_after_sec"`
		CodeAttempts     int `json:"code_attempts"`
		ShutdownGraceSec int `json:"shutdown_grace_sec"`
	} `json:"server"`
	Gameplay struct {
		RespawnDelayMs int `json:"respawn_delay_ms"`
	} `json:"gameplay"`
}

// DefaultGameConfig returns the tunables the game was balanced for.
func DefaultGameConfig() *GameConfig {
	cfg := &GameConfig{}
	cfg.Server.TickRate = 30
	cfg.Server.SendBuffer = 256
	cfg.Server.ReapIntervalSec = 60
	cfg.Server.AbandonAfterSec = 600
	cfg.Server.CodeAttempts = 64
	cfg.Server.ShutdownGraceSec = 5
	cfg.Gameplay.RespawnDelayMs = 3000
	return cfg
}
