package world

import (
	"agentrpg.ai/internal/protocol"
)

// Model owns the client's view of the world. It is not safe for concurrent
// use; the session applies messages one at a time.
type Model struct {
	snap Snapshot
}

func New() *Model {
	return &Model{}
}

// ApplySnapshot replaces the whole view with a world:state payload. Entries
// from the previous snapshot are dropped even when absent from msg.
// Duplicate ids keep their first position and the last payload.
func (m *Model) ApplySnapshot(msg protocol.WorldStateMsg) {
	w, h := msg.Map.Dims()
	next := Snapshot{
		Version: m.snap.Version + 1,
		Tick:    msg.Tick,
		Map:     TileMap{Width: w, Height: h},
	}
	if msg.Map.Tiles != nil {
		next.Map.Tiles = make([][]int, len(msg.Map.Tiles))
		for i, row := range msg.Map.Tiles {
			next.Map.Tiles[i] = append([]int(nil), row...)
		}
	}

	agentIdx := make(map[string]int, len(msg.Agents))
	for _, a := range msg.Agents {
		ag := Agent{
			ID:              a.AgentID,
			Name:            string(a.Name),
			Color:           int(a.Color),
			X:               a.X,
			Y:               a.Y,
			Role:            string(a.Role),
			Realm:           string(a.Realm),
			Status:          string(a.Status),
			CurrentActivity: string(a.CurrentActivity),
		}
		if i, ok := agentIdx[ag.ID]; ok {
			next.Agents[i] = ag
			continue
		}
		agentIdx[ag.ID] = len(next.Agents)
		next.Agents = append(next.Agents, ag)
	}

	objIdx := make(map[string]int, len(msg.Objects))
	for _, o := range msg.Objects {
		obj := Object{ID: o.ID, Type: string(o.Type), Label: string(o.Label), X: o.X, Y: o.Y}
		if i, ok := objIdx[obj.ID]; ok {
			next.Objects[i] = obj
			continue
		}
		objIdx[obj.ID] = len(next.Objects)
		next.Objects = append(next.Objects, obj)
	}

	m.snap = next
}

// ApplyActionResult patches the acting agent's position after a successful
// move. It reports whether anything changed; results for agents missing from
// the current snapshot are ignored.
func (m *Model) ApplyActionResult(msg protocol.ActionResultMsg) bool {
	if !msg.Success || msg.Action != protocol.ActionMove {
		return false
	}
	x, okX := msg.Params.Int("x")
	y, okY := msg.Params.Int("y")
	if !okX || !okY {
		return false
	}
	for i := range m.snap.Agents {
		if m.snap.Agents[i].ID == msg.AgentID {
			m.snap.Agents[i].X = x
			m.snap.Agents[i].Y = y
			m.snap.Version++
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy of the current view.
func (m *Model) Snapshot() Snapshot {
	return m.snap.clone()
}

func (m *Model) Version() uint64 {
	return m.snap.Version
}
