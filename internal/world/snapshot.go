package world

type Agent struct {
	ID              string
	Name            string
	Color           int
	X, Y            int
	Role            string
	Realm           string
	Status          string
	CurrentActivity string
}

type Object struct {
	ID    string
	Type  string
	Label string
	X, Y  int
}

// TileMap is the walkability grid of one snapshot. Width and Height are the
// declared bounds; Tiles may disagree with them.
type TileMap struct {
	Width  int
	Height int
	Tiles  [][]int
}

// Tile returns the raw grid value at (x,y). ok is false when the coordinate
// falls outside the literal grid, regardless of the declared bounds.
func (m TileMap) Tile(x, y int) (v int, ok bool) {
	if y < 0 || y >= len(m.Tiles) {
		return 0, false
	}
	row := m.Tiles[y]
	if x < 0 || x >= len(row) {
		return 0, false
	}
	return row[x], true
}

// InBounds reports whether (x,y) lies within the declared width/height.
func (m TileMap) InBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// Snapshot is a point-in-time view of the world. Values handed out by Model
// are copies; mutating them does not affect the model.
type Snapshot struct {
	// Version increases on every change applied by the owning Model.
	Version uint64
	Tick    uint64

	// Agents and Objects keep the order they arrived in.
	Agents  []Agent
	Map     TileMap
	Objects []Object
}

// Agent looks up an agent by id. Deciders use it to find themselves.
func (s Snapshot) Agent(id string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// FindOther returns the first agent in snapshot order whose id differs from
// selfID.
func (s Snapshot) FindOther(selfID string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID != selfID {
			return a, true
		}
	}
	return Agent{}, false
}

// Others lists every agent except id, in snapshot order.
func (s Snapshot) Others(id string) []Agent {
	out := make([]Agent, 0, len(s.Agents))
	for _, a := range s.Agents {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

// OccupiedBy reports whether an agent other than except stands at (x,y).
func (s Snapshot) OccupiedBy(x, y int, except string) bool {
	for _, a := range s.Agents {
		if a.ID != except && a.X == x && a.Y == y {
			return true
		}
	}
	return false
}

// Distance is the Manhattan distance between two tiles.
func Distance(x1, y1, x2, y2 int) int {
	return abs(x1-x2) + abs(y1-y2)
}

// ObjectsNear lists objects within Manhattan distance radius of (x,y), in
// snapshot order.
func (s Snapshot) ObjectsNear(x, y, radius int) []Object {
	var out []Object
	for _, o := range s.Objects {
		if Distance(o.X, o.Y, x, y) <= radius {
			out = append(out, o)
		}
	}
	return out
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Agents = append([]Agent(nil), s.Agents...)
	out.Objects = append([]Object(nil), s.Objects...)
	if s.Map.Tiles != nil {
		out.Map.Tiles = make([][]int, len(s.Map.Tiles))
		for i, row := range s.Map.Tiles {
			out.Map.Tiles[i] = append([]int(nil), row...)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
