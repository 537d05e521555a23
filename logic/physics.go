package logic

import (
	"math"
	"time"
)

// TickResult reports what happened during one simulation step.
type TickResult struct {
	Explosions []Explosion
	Killed     []string // ids of soldiers that died this tick
}

// UpdateTick advances the world by exactly one tick.
func (gs *GameState) UpdateTick(now time.Time) TickResult {
	var res TickResult
	gs.Tick++
	gs.integratePlayers(now)
	gs.integrateProjectiles(&res)
	gs.integrateGrenades(&res)
	return res
}

func (gs *GameState) integratePlayers(now time.Time) {
	nowMs := now.UnixMilli()
	for _, p := range gs.OrderedPlayers() {
		if !p.Alive {
			continue
		}
		p.X += p.VX
		p.VY += PlayerGravity
		p.Y += p.VY
		if p.Y > GroundY {
			p.Y = GroundY
			p.VY = 0
		}
		p.X = clamp(p.X, EdgeMargin, gs.WorldWidth-EdgeMargin)
		p.InTrench = InTrench(p.X, p.Y)
		if p.Reloading && nowMs-p.ReloadStart > ReloadDuration.Milliseconds() {
			p.Ammo = MaxAmmo
			p.Reloading = false
		}
	}
}

func (gs *GameState) integrateProjectiles(res *TickResult) {
	kept := gs.Projectiles[:0]
	for _, b := range gs.Projectiles {
		b.X += b.VX
		b.Y += b.VY
		if !InBounds(b.X, b.Y) {
			continue
		}
		if target := gs.projectileTarget(b); target != nil {
			dmg := float64(b.Damage)
			if target.InTrench && !target.Crouching {
				dmg *= TrenchDamageScale
			}
			gs.applyDamage(target, int(math.Floor(dmg)), b.Owner, res)
			continue
		}
		kept = append(kept, b)
	}
	gs.Projectiles = kept
}

// projectileTarget returns the first living non-owner whose body box contains
// the bullet, scanning in join order.
func (gs *GameState) projectileTarget(b Projectile) *Player {
	for _, p := range gs.OrderedPlayers() {
		if p.ID == b.Owner || !p.Alive {
			continue
		}
		if HitsBody(b.X, b.Y, p) {
			return p
		}
	}
	return nil
}

// HitsBody tests a point against a soldier's hit box: HitHalfWidth either
// side of x, extending from the feet up by the standing or crouching height.
func HitsBody(x, y float64, p *Player) bool {
	h := BodyHeight
	if p.Crouching {
		h = BodyHeightCrouch
	}
	return math.Abs(x-p.X) < HitHalfWidth && math.Abs(y-(p.Y-h/2)) < h/2
}

func (gs *GameState) integrateGrenades(res *TickResult) {
	kept := gs.Grenades[:0]
	for _, g := range gs.Grenades {
		if g.Exploded {
			continue
		}
		g.X += g.VX
		g.VY += GrenadeGravity
		g.Y += g.VY
		g.VX *= GrenadeDrag
		if g.Y > GrenadeFloorY {
			g.Y = GrenadeFloorY
			g.VY = -g.VY * GrenadeBounce
			g.VX *= GrenadeFloorDamp
		}
		g.Timer--
		if g.Timer <= 0 {
			g.Exploded = true
			gs.detonate(g, res)
		}
		kept = append(kept, g)
	}
	gs.Grenades = kept
}

func (gs *GameState) detonate(g Grenade, res *TickResult) {
	center := Vector2{X: g.X, Y: g.Y}
	for _, p := range gs.OrderedPlayers() {
		if !p.Alive {
			continue
		}
		dist := Distance(Vector2{X: p.X, Y: p.Y}, center)
		if dist < BlastRadius {
			gs.applyDamage(p, BlastFalloff(dist), g.Owner, res)
		}
	}
	res.Explosions = append(res.Explosions, Explosion{X: g.X, Y: g.Y})
}

// BlastFalloff is the linear grenade damage at dist from the blast, zero at
// the radius.
func BlastFalloff(dist float64) int {
	if dist >= BlastRadius {
		return 0
	}
	return int(math.Floor(BlastDamage * (1 - dist/BlastRadius)))
}

// applyDamage subtracts health and handles death bookkeeping. The attacker is
// credited a kill unless it is the victim itself or has left the session.
func (gs *GameState) applyDamage(victim *Player, amount int, attacker string, res *TickResult) {
	victim.Health -= amount
	if victim.Health > 0 {
		return
	}
	victim.Health = 0
	victim.Alive = false
	victim.Deaths++
	if attacker != victim.ID {
		if killer, ok := gs.Players[attacker]; ok {
			killer.Kills++
		}
	}
	res.Killed = append(res.Killed, victim.ID)
}

// Distance helper
func Distance(p1, p2 Vector2) float64 {
	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
