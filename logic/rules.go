package logic

import "time"

// Movement and ballistics constants, in world units per tick.
const (
	PlayerGravity   = 0.4
	GroundY         = 400.0
	GroundedY       = 390.0 // jump allowed and trenches apply at or below this line
	EdgeMargin      = 10.0
	RunSpeed        = 3.0
	CrouchSpeed     = 1.5
	JumpVelocity    = -8.0
	MuzzleOffset    = 10.0
	MuzzleHeight    = 12.0
	MuzzleHeightLow = 5.0
	BulletSpeed     = 12.0

	HitHalfWidth      = 8.0
	BodyHeight        = 24.0
	BodyHeightCrouch  = 12.0
	TrenchDamageScale = 0.5

	GrenadeGravity     = 0.3
	GrenadeDrag        = 0.98
	GrenadeFloorY      = 410.0
	GrenadeBounce      = 0.3
	GrenadeFloorDamp   = 0.7
	GrenadeFuseTicks   = 120
	GrenadeThrowVX     = 5.0
	GrenadeThrowVY     = -6.0
	GrenadeThrowHeight = 20.0
	BlastRadius        = 80.0
	BlastDamage        = 80.0
)

// Loadout limits.
const (
	MaxHealth   = 100
	MaxAmmo     = 30
	MaxGrenades = 3
)

// ReloadDuration is how long a reload takes before the magazine refills.
const ReloadDuration = 2000 * time.Millisecond

// WeaponSpec is one row of the weapon table. Spread is the half-width of the
// uniform jitter applied to a bullet's vertical velocity.
type WeaponSpec struct {
	FireInterval time.Duration
	Damage       int
	Spread       float64
}

var weaponTable = map[Weapon]WeaponSpec{
	WeaponRifle:  {FireInterval: 600 * time.Millisecond, Damage: 35, Spread: 0.25},
	WeaponSMG:    {FireInterval: 150 * time.Millisecond, Damage: 12, Spread: 1.5},
	WeaponSniper: {FireInterval: 800 * time.Millisecond, Damage: 70, Spread: 0.05},
}

// Spec returns the weapon table entry. Unknown weapons fall back to the rifle.
func (w Weapon) Spec() WeaponSpec {
	if spec, ok := weaponTable[w]; ok {
		return spec
	}
	return weaponTable[WeaponRifle]
}

// Valid reports whether w names a weapon in the table.
func (w Weapon) Valid() bool {
	_, ok := weaponTable[w]
	return ok
}

// Direction is +1 when facing right and -1 when facing left.
func (f Facing) Direction() float64 {
	if f == FacingLeft {
		return -1
	}
	return 1
}
