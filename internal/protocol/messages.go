package protocol

import "encoding/json"

// Default map dimensions used when world:state omits them.
const (
	DefaultMapWidth  = 20
	DefaultMapHeight = 15
)

// agent:register (client -> server)
type RegisterMsg struct {
	Type    string `json:"type"`
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Color   int    `json:"color"`
}

func NewRegister(agentID, name string, color int) RegisterMsg {
	return RegisterMsg{Type: TypeRegister, AgentID: agentID, Name: name, Color: color}
}

func (RegisterMsg) MessageType() string { return TypeRegister }

// agent:action (client -> server)
type ActionMsg struct {
	Type    string `json:"type"`
	AgentID string `json:"agent_id"`
	TurnID  int    `json:"turn_id"`
	Action  string `json:"action"`
	Params  Params `json:"params"`
}

// NewAction builds an action reply; nil params are sent as an empty object.
func NewAction(agentID string, turnID int, action string, params Params) ActionMsg {
	if params == nil {
		params = Params{}
	}
	return ActionMsg{Type: TypeAction, AgentID: agentID, TurnID: turnID, Action: action, Params: params}
}

func (ActionMsg) MessageType() string { return TypeAction }

// world:state (server -> client)
type WorldStateMsg struct {
	Type    string      `json:"type"`
	Tick    uint64      `json:"tick,omitempty"`
	Agents  []AgentInfo `json:"agents"`
	Map     TileMapData `json:"map"`
	Objects []MapObject `json:"objects"`
}

func (WorldStateMsg) MessageType() string { return TypeWorldState }

// AgentInfo is one agent in world:state and agent:joined. Only agent_id and
// the position are load-bearing; the rest is cosmetic and decoded leniently.
type AgentInfo struct {
	AgentID         string          `json:"agent_id"`
	Name            LooseString     `json:"name"`
	Color           LooseInt        `json:"color"`
	X               int             `json:"x"`
	Y               int             `json:"y"`
	Role            LooseString     `json:"role,omitempty"`
	Realm           LooseString     `json:"realm,omitempty"`
	Status          LooseString     `json:"status,omitempty"`
	CurrentActivity LooseString     `json:"current_activity,omitempty"`
	Stats           json.RawMessage `json:"stats,omitempty"`
}

type TileMapData struct {
	Width    *int     `json:"width,omitempty"`
	Height   *int     `json:"height,omitempty"`
	TileSize LooseInt `json:"tile_size,omitempty"`
	Tiles    [][]int  `json:"tiles"`
}

// Dims returns the declared map size, falling back to the defaults.
func (m TileMapData) Dims() (width, height int) {
	width, height = DefaultMapWidth, DefaultMapHeight
	if m.Width != nil {
		width = *m.Width
	}
	if m.Height != nil {
		height = *m.Height
	}
	return width, height
}

type MapObject struct {
	ID       string          `json:"id"`
	Type     LooseString     `json:"type"`
	Label    LooseString     `json:"label"`
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// turn:start (server -> client)
type TurnStartMsg struct {
	Type      string          `json:"type"`
	AgentID   string          `json:"agent_id"`
	TurnID    int             `json:"turn_id"`
	TimeoutMS json.RawMessage `json:"timeout_ms,omitempty"`
}

func (TurnStartMsg) MessageType() string { return TypeTurnStart }

// DefaultTurnTimeoutMS is shown when turn:start carries no usable timeout.
// It is advisory.
const DefaultTurnTimeoutMS = 5000

func (m TurnStartMsg) Timeout() int {
	if v, ok := parseLooseInt(m.TimeoutMS); ok && v > 0 {
		return v
	}
	return DefaultTurnTimeoutMS
}

// action:result (server -> client)
type ActionResultMsg struct {
	Type    string      `json:"type"`
	TurnID  LooseInt    `json:"turn_id,omitempty"`
	AgentID string      `json:"agent_id"`
	Action  string      `json:"action"`
	Success bool        `json:"success"`
	Params  Params      `json:"params,omitempty"`
	Error   LooseString `json:"error,omitempty"`
}

func (ActionResultMsg) MessageType() string { return TypeActionResult }

// agent:joined (server -> client)
type AgentJoinedMsg struct {
	Type  string    `json:"type"`
	Agent AgentInfo `json:"agent"`
}

func (AgentJoinedMsg) MessageType() string { return TypeAgentJoined }

// agent:left (server -> client)
type AgentLeftMsg struct {
	Type    string `json:"type"`
	AgentID string `json:"agent_id"`
}

func (AgentLeftMsg) MessageType() string { return TypeAgentLeft }

// error (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (ErrorMsg) MessageType() string { return TypeError }

// findings:posted (server -> client). The server sends a flat structure.
type FindingsPostedMsg struct {
	Type      string `json:"type"`
	AgentID   string `json:"agent_id,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	Realm     string `json:"realm,omitempty"`
	Finding   string `json:"finding"`
	Severity  string `json:"severity,omitempty"`
}

func (FindingsPostedMsg) MessageType() string { return TypeFindingsPosted }

// agent:level-up (server -> client)
type LevelUpMsg struct {
	Type    string `json:"type"`
	AgentID string `json:"agent_id"`
	Area    string `json:"area"`
	Level   int    `json:"level"`
}

func (LevelUpMsg) MessageType() string { return TypeLevelUp }

// agent:spawn-request (server -> client)
type SpawnRequestMsg struct {
	Type             string `json:"type"`
	RequestedName    string `json:"requested_name"`
	RequestedRole    string `json:"requested_role,omitempty"`
	RequestedMission string `json:"requested_mission,omitempty"`
}

func (SpawnRequestMsg) MessageType() string { return TypeSpawnRequest }

// Unknown holds a frame whose tag this client does not handle.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (u Unknown) MessageType() string { return u.Type }

// MarshalJSON re-emits the original frame.
func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return json.Marshal(BaseMessage{Type: u.Type})
	}
	return u.Raw, nil
}
