package movement

import "agentrpg.ai/internal/world"

// Pos is a tile coordinate; it doubles as the params of a move action.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Direction struct {
	DX int
	DY int
}

// Directions is the fixed probe order: east, south, west, north.
var Directions = [4]Direction{{DX: 1}, {DY: 1}, {DX: -1}, {DY: -1}}

// DirectionFor maps a monotonically increasing step counter onto Directions.
func DirectionFor(step int) Direction {
	i := step % len(Directions)
	if i < 0 {
		i += len(Directions)
	}
	return Directions[i]
}

// Legal reports whether (x,y) is inside the declared bounds and walkable.
// Coordinates inside the declared bounds but outside the actual grid count
// as blocked.
func Legal(m world.TileMap, x, y int) bool {
	if !m.InBounds(x, y) {
		return false
	}
	v, ok := m.Tile(x, y)
	return ok && v == 0
}

// PlanMove picks the next tile for self. The preferred neighbour wins when
// legal; otherwise the first legal, unoccupied neighbour in Directions order.
// When nothing qualifies it returns the east neighbour anyway and leaves the
// rejection to the server. It never fails.
func PlanMove(self world.Agent, snap world.Snapshot, preferred Direction) Pos {
	cand := Pos{X: self.X + preferred.DX, Y: self.Y + preferred.DY}
	if Legal(snap.Map, cand.X, cand.Y) {
		return cand
	}

	for _, d := range Directions {
		np := Pos{X: self.X + d.DX, Y: self.Y + d.DY}
		if !Legal(snap.Map, np.X, np.Y) {
			continue
		}
		if snap.OccupiedBy(np.X, np.Y, self.ID) {
			continue
		}
		return np
	}

	return Pos{X: self.X + 1, Y: self.Y}
}

// Params renders p as move action params.
func (p Pos) Params() map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}
