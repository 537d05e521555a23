package logic

import (
	"math/rand"
	"time"
)

// GameState is the world of one session. It is not safe for concurrent use;
// callers serialize access through the owning GameLoop.
type GameState struct {
	Players     map[string]*Player `json:"players"`
	Projectiles []Projectile       `json:"projectiles"`
	Grenades    []Grenade          `json:"grenades"`
	Tick        int                `json:"tick"`
	Started     bool               `json:"started"`
	WorldWidth  float64            `json:"worldWidth"`
	WorldHeight float64            `json:"worldHeight"`

	order []string // join order, used wherever players are scanned
}

func NewGameState() *GameState {
	return &GameState{
		Players:     make(map[string]*Player),
		Projectiles: make([]Projectile, 0),
		Grenades:    make([]Grenade, 0),
		WorldWidth:  WorldWidth,
		WorldHeight: WorldHeight,
	}
}

// NewPlayer builds a fresh soldier for side at its spawn point.
func NewPlayer(id string, side Side) *Player {
	pos, facing := SpawnPos(side)
	return &Player{
		ID:       id,
		Side:     side,
		X:        pos.X,
		Y:        pos.Y,
		Health:   MaxHealth,
		Ammo:     MaxAmmo,
		Grenades: MaxGrenades,
		Alive:    true,
		Facing:   facing,
		Weapon:   WeaponRifle,
	}
}

// AddPlayer spawns a new player. An existing entry for id is returned as is.
func (gs *GameState) AddPlayer(id string, side Side) *Player {
	if p, ok := gs.Players[id]; ok {
		return p
	}
	p := NewPlayer(id, side)
	gs.Players[id] = p
	gs.order = append(gs.order, id)
	return p
}

// RemovePlayer cleans up and returns the removed player, if any.
func (gs *GameState) RemovePlayer(id string) (*Player, bool) {
	p, ok := gs.Players[id]
	if !ok {
		return nil, false
	}
	delete(gs.Players, id)
	for i, other := range gs.order {
		if other == id {
			gs.order = append(gs.order[:i], gs.order[i+1:]...)
			break
		}
	}
	return p, true
}

// OrderedPlayers returns players in join order.
func (gs *GameState) OrderedPlayers() []*Player {
	out := make([]*Player, 0, len(gs.order))
	for _, id := range gs.order {
		if p, ok := gs.Players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ApplyInput records a client's intent on its soldier. It reports false when
// the input was ignored because the session has not started or the player is
// missing or dead.
func (gs *GameState) ApplyInput(id string, in Input, now time.Time, rng *rand.Rand) bool {
	if !gs.Started {
		return false
	}
	p, ok := gs.Players[id]
	if !ok || !p.Alive {
		return false
	}

	speed := RunSpeed
	if p.Crouching {
		speed = CrouchSpeed
	}
	switch {
	case in.Left:
		p.VX = -speed
		p.Facing = FacingLeft
	case in.Right:
		p.VX = speed
		p.Facing = FacingRight
	default:
		p.VX = 0
	}
	if in.Jump && p.Y >= GroundedY {
		p.VY = JumpVelocity
	}
	p.Crouching = in.Crouch

	nowMs := now.UnixMilli()
	if in.Shoot {
		gs.fire(p, nowMs, rng)
	}
	if in.Grenade && p.Grenades > 0 {
		gs.throwGrenade(p)
	}
	if in.Reload && p.Ammo < MaxAmmo && !p.Reloading {
		p.Reloading = true
		p.ReloadStart = nowMs
	}
	if in.Weapon != "" && in.Weapon.Valid() {
		p.Weapon = in.Weapon
	}
	return true
}

func (gs *GameState) fire(p *Player, nowMs int64, rng *rand.Rand) {
	spec := p.Weapon.Spec()
	if nowMs-p.LastShot <= spec.FireInterval.Milliseconds() || p.Ammo <= 0 || p.Reloading {
		return
	}
	p.LastShot = nowMs
	p.Ammo--

	d := p.Facing.Direction()
	height := MuzzleHeight
	if p.Crouching {
		height = MuzzleHeightLow
	}
	jitter := 0.0
	if rng != nil {
		jitter = (rng.Float64()*2 - 1) * spec.Spread
	}
	gs.Projectiles = append(gs.Projectiles, Projectile{
		X:      p.X + d*MuzzleOffset,
		Y:      p.Y - height,
		VX:     BulletSpeed * d,
		VY:     jitter,
		Owner:  p.ID,
		Damage: spec.Damage,
	})
}

func (gs *GameState) throwGrenade(p *Player) {
	p.Grenades--
	d := p.Facing.Direction()
	gs.Grenades = append(gs.Grenades, Grenade{
		X:     p.X + d*MuzzleOffset,
		Y:     p.Y - GrenadeThrowHeight,
		VX:    GrenadeThrowVX * d,
		VY:    GrenadeThrowVY,
		Owner: p.ID,
		Timer: GrenadeFuseTicks,
	})
}

// Respawn restores a soldier to full loadout at its side's spawn point.
// Kills, deaths and weapon are kept.
func (gs *GameState) Respawn(id string) bool {
	p, ok := gs.Players[id]
	if !ok {
		return false
	}
	pos, _ := SpawnPos(p.Side)
	p.Alive = true
	p.Health = MaxHealth
	p.Ammo = MaxAmmo
	p.Grenades = MaxGrenades
	p.X = pos.X
	p.Y = pos.Y
	p.VX = 0
	p.VY = 0
	p.Reloading = false
	return true
}
