package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.UnixMilli(1_700_000_000_000)

func startedState(t *testing.T) (*GameState, *Player, *Player) {
	t.Helper()
	gs := NewGameState()
	a := gs.AddPlayer("A", SideAllies)
	b := gs.AddPlayer("B", SideAxis)
	gs.Started = true
	return gs, a, b
}

func TestUpdateTickGravityAndGround(t *testing.T) {
	gs, a, _ := startedState(t)
	a.Y = 300
	a.VY = 0

	gs.UpdateTick(epoch)
	require.InDelta(t, 0.4, a.VY, 1e-9)
	require.InDelta(t, 300.4, a.Y, 1e-9)

	for i := 0; i < 200; i++ {
		gs.UpdateTick(epoch)
	}
	require.Equal(t, GroundY, a.Y)
	require.Zero(t, a.VY)
	require.Equal(t, 201, gs.Tick)
}

func TestUpdateTickClampsHorizontal(t *testing.T) {
	gs, a, b := startedState(t)
	a.X = 12
	a.VX = -5
	b.X = WorldWidth - 11
	b.VX = 5

	gs.UpdateTick(epoch)
	require.Equal(t, EdgeMargin, a.X)
	require.Equal(t, WorldWidth-EdgeMargin, b.X)
}

func TestUpdateTickRecomputesTrenchFlag(t *testing.T) {
	gs, a, _ := startedState(t)
	a.X = 100
	gs.UpdateTick(epoch)
	require.True(t, a.InTrench)

	a.X = 250
	gs.UpdateTick(epoch)
	require.False(t, a.InTrench)

	a.X = 100
	a.Y = 300
	gs.UpdateTick(epoch)
	require.False(t, a.InTrench, "airborne soldiers are never in a trench")
}

func TestUpdateTickCompletesReload(t *testing.T) {
	gs, a, _ := startedState(t)
	a.Ammo = 3
	a.Reloading = true
	a.ReloadStart = epoch.UnixMilli()

	gs.UpdateTick(epoch.Add(ReloadDuration))
	require.True(t, a.Reloading, "reload needs strictly more than the duration")
	require.Equal(t, 3, a.Ammo)

	gs.UpdateTick(epoch.Add(ReloadDuration + time.Millisecond))
	require.False(t, a.Reloading)
	require.Equal(t, MaxAmmo, a.Ammo)
}

func TestProjectileLeavesWorld(t *testing.T) {
	gs, _, _ := startedState(t)
	gs.Projectiles = append(gs.Projectiles, Projectile{X: WorldWidth - 1, Y: 200, VX: 12, Owner: "A", Damage: 35})

	gs.UpdateTick(epoch)
	require.Empty(t, gs.Projectiles)
}

func TestProjectileRetainedWhenNothingHit(t *testing.T) {
	gs, _, _ := startedState(t)
	gs.Projectiles = append(gs.Projectiles, Projectile{X: 600, Y: 200, VX: 12, Owner: "A", Damage: 35})

	gs.UpdateTick(epoch)
	require.Len(t, gs.Projectiles, 1)
	require.InDelta(t, 612, gs.Projectiles[0].X, 1e-9)
}

func TestProjectileHitRemovesAndDamages(t *testing.T) {
	gs, _, b := startedState(t)
	b.X = 1000
	gs.Projectiles = append(gs.Projectiles, Projectile{X: 988, Y: GroundY - 12, VX: 12, Owner: "A", Damage: 35})

	res := gs.UpdateTick(epoch)
	require.Empty(t, gs.Projectiles)
	require.Equal(t, 65, b.Health)
	require.True(t, b.Alive)
	require.Empty(t, res.Killed)
}

func TestProjectileIgnoresOwner(t *testing.T) {
	gs, a, _ := startedState(t)
	a.X = 600
	gs.Projectiles = append(gs.Projectiles, Projectile{X: 588, Y: GroundY - 12, VX: 12, Owner: "A", Damage: 35})

	gs.UpdateTick(epoch)
	require.Len(t, gs.Projectiles, 1)
	require.Equal(t, MaxHealth, a.Health)
}

func TestProjectileTrenchHalvesDamageUnlessCrouching(t *testing.T) {
	gs, _, b := startedState(t)
	b.X = 800 // neutral trench

	gs.Projectiles = append(gs.Projectiles, Projectile{X: 788, Y: GroundY - 12, VX: 12, Owner: "A", Damage: 35})
	gs.UpdateTick(epoch)
	require.True(t, b.InTrench)
	require.Equal(t, 100-17, b.Health, "35 * 0.5 floors to 17")

	b.Crouching = true
	gs.Projectiles = append(gs.Projectiles, Projectile{X: 788, Y: GroundY - 5, VX: 12, Owner: "A", Damage: 35})
	gs.UpdateTick(epoch)
	require.Equal(t, 100-17-35, b.Health)
}

func TestCrouchShrinksHitBox(t *testing.T) {
	p := &Player{X: 500, Y: GroundY}
	require.True(t, HitsBody(500, GroundY-20, p))

	p.Crouching = true
	require.False(t, HitsBody(500, GroundY-20, p))
	require.True(t, HitsBody(500, GroundY-5, p))
	require.False(t, HitsBody(509, GroundY-5, p))
}

func TestProjectileKillCreditsShooter(t *testing.T) {
	gs, a, b := startedState(t)
	b.X = 600
	b.Health = 10
	gs.Projectiles = append(gs.Projectiles, Projectile{X: 588, Y: GroundY - 12, VX: 12, Owner: "A", Damage: 35})

	res := gs.UpdateTick(epoch)
	require.Equal(t, []string{"B"}, res.Killed)
	require.Zero(t, b.Health)
	require.False(t, b.Alive)
	require.Equal(t, 1, b.Deaths)
	require.Equal(t, 1, a.Kills)
}

func TestDeadSoldiersAreNotHit(t *testing.T) {
	gs, _, b := startedState(t)
	b.X = 600
	b.Alive = false
	b.Health = 0
	gs.Projectiles = append(gs.Projectiles, Projectile{X: 588, Y: GroundY - 12, VX: 12, Owner: "A", Damage: 35})

	gs.UpdateTick(epoch)
	require.Len(t, gs.Projectiles, 1)
	require.Zero(t, b.Health)
}

func TestHealthNeverNegative(t *testing.T) {
	gs, _, b := startedState(t)
	b.X = 600
	b.Health = 1
	gs.Projectiles = append(gs.Projectiles, Projectile{X: 588, Y: GroundY - 12, VX: 12, Owner: "A", Damage: 70})

	gs.UpdateTick(epoch)
	require.Zero(t, b.Health)
	require.False(t, b.Alive)
}

func TestGrenadeDetonatesOnceAtFuse(t *testing.T) {
	gs, a, _ := startedState(t)
	a.Grenades = MaxGrenades
	require.True(t, gs.ApplyInput("A", Input{Grenade: true}, epoch, nil))
	require.Len(t, gs.Grenades, 1)

	explosions := 0
	detonatedAt := 0
	for tick := 1; tick <= GrenadeFuseTicks+5; tick++ {
		res := gs.UpdateTick(epoch)
		if len(res.Explosions) > 0 {
			explosions += len(res.Explosions)
			detonatedAt = tick
		}
	}
	require.Equal(t, 1, explosions)
	require.Equal(t, GrenadeFuseTicks, detonatedAt)
	require.Empty(t, gs.Grenades)
}

func TestExplodedGrenadeDroppedNextTick(t *testing.T) {
	gs, _, _ := startedState(t)
	gs.Grenades = append(gs.Grenades, Grenade{X: 1000, Y: GrenadeFloorY, Owner: "A", Timer: 1})

	res := gs.UpdateTick(epoch)
	require.Len(t, res.Explosions, 1)
	require.Len(t, gs.Grenades, 1)
	require.True(t, gs.Grenades[0].Exploded)

	res = gs.UpdateTick(epoch)
	require.Empty(t, res.Explosions)
	require.Empty(t, gs.Grenades)
}

func TestGrenadeBouncesOffFloor(t *testing.T) {
	gs, _, _ := startedState(t)
	gs.Grenades = append(gs.Grenades, Grenade{X: 1000, Y: 409, VX: 4, VY: 5, Owner: "A", Timer: 50})

	gs.UpdateTick(epoch)
	g := gs.Grenades[0]
	require.Equal(t, GrenadeFloorY, g.Y)
	require.InDelta(t, -5.3*GrenadeBounce, g.VY, 1e-9)
	require.InDelta(t, 4*GrenadeDrag*GrenadeFloorDamp, g.VX, 1e-9)
	require.Equal(t, 49, g.Timer)
}

func TestBlastFalloff(t *testing.T) {
	require.Equal(t, 80, BlastFalloff(0))
	require.Equal(t, 40, BlastFalloff(40))
	require.Equal(t, 0, BlastFalloff(79.9))
	require.Equal(t, 0, BlastFalloff(BlastRadius))
	require.Equal(t, 0, BlastFalloff(200))
}

func TestGrenadeSelfKillNotCredited(t *testing.T) {
	gs, a, b := startedState(t)
	a.X = 1000
	a.Health = 5
	b.X = 1020
	b.Health = 5
	gs.Grenades = append(gs.Grenades, Grenade{X: 1000, Y: GroundY, Owner: "A", Timer: 1})

	res := gs.UpdateTick(epoch)
	require.ElementsMatch(t, []string{"A", "B"}, res.Killed)
	require.Equal(t, 1, a.Kills, "only the enemy kill counts")
	require.Equal(t, 1, a.Deaths)
	require.Equal(t, 1, b.Deaths)
}

func TestGrenadeOutsideRadiusUnharmed(t *testing.T) {
	gs, _, b := startedState(t)
	b.X = 1200
	gs.Grenades = append(gs.Grenades, Grenade{X: 1000, Y: GroundY, Owner: "A", Timer: 1})

	gs.UpdateTick(epoch)
	require.Equal(t, MaxHealth, b.Health)
}
