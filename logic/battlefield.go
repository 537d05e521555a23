package logic

// World dimensions shared by every session.
const (
	WorldWidth  = 1600.0
	WorldHeight = 600.0
)

// TrenchZone is a horizontal strip of cover. Side is informational only;
// any soldier standing in it gets the cover bonus.
type TrenchZone struct {
	X1   float64
	X2   float64
	Side string
}

// Trenches is the static trench layout of the battlefield.
var Trenches = []TrenchZone{
	{X1: 60, X2: 180, Side: "allies"},
	{X1: 350, X2: 450, Side: "allies"},
	{X1: 700, X2: 900, Side: "neutral"},
	{X1: 1150, X2: 1250, Side: "axis"},
	{X1: 1420, X2: 1540, Side: "axis"},
}

// InTrench checks whether a soldier at (x, y) occupies any trench zone.
// Trenches only apply at or below the grounded line.
func InTrench(x, y float64) bool {
	if y < GroundedY {
		return false
	}
	for _, t := range Trenches {
		if x >= t.X1 && x <= t.X2 {
			return true
		}
	}
	return false
}

// InBounds reports whether a point lies inside the world rectangle.
func InBounds(x, y float64) bool {
	return x >= 0 && x <= WorldWidth && y >= 0 && y <= WorldHeight
}

// SpawnPos returns the canonical spawn point and facing for a side.
func SpawnPos(side Side) (Vector2, Facing) {
	if side == SideAxis {
		return Vector2{X: 1480, Y: GroundY}, FacingLeft
	}
	return Vector2{X: 120, Y: GroundY}, FacingRight
}
