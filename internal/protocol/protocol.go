package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types.
const (
	TypeRegister     = "agent:register"
	TypeAction       = "agent:action"
	TypeWorldState   = "world:state"
	TypeTurnStart    = "turn:start"
	TypeActionResult = "action:result"
	TypeAgentJoined  = "agent:joined"
	TypeAgentLeft    = "agent:left"
	TypeError        = "error"

	TypeFindingsPosted = "findings:posted"
	TypeLevelUp        = "agent:level-up"
	TypeSpawnRequest   = "agent:spawn-request"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// Message is a decoded frame. The concrete type identifies the tag; frames with
// a tag this client does not know decode to Unknown.
type Message interface {
	MessageType() string
}

// Decode parses one frame. Tag-specific fields are not checked for presence;
// readers substitute defaults for what is missing.
func Decode(b []byte) (Message, error) {
	base, err := DecodeBase(b)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	switch base.Type {
	case TypeRegister:
		return decodeAs[RegisterMsg](base.Type, b)
	case TypeAction:
		return decodeAs[ActionMsg](base.Type, b)
	case TypeWorldState:
		return decodeAs[WorldStateMsg](base.Type, b)
	case TypeTurnStart:
		return decodeAs[TurnStartMsg](base.Type, b)
	case TypeActionResult:
		return decodeAs[ActionResultMsg](base.Type, b)
	case TypeAgentJoined:
		return decodeAs[AgentJoinedMsg](base.Type, b)
	case TypeAgentLeft:
		return decodeAs[AgentLeftMsg](base.Type, b)
	case TypeError:
		return decodeAs[ErrorMsg](base.Type, b)
	case TypeFindingsPosted:
		return decodeAs[FindingsPostedMsg](base.Type, b)
	case TypeLevelUp:
		return decodeAs[LevelUpMsg](base.Type, b)
	case TypeSpawnRequest:
		return decodeAs[SpawnRequestMsg](base.Type, b)
	default:
		return Unknown{Type: base.Type, Raw: append(json.RawMessage(nil), b...)}, nil
	}
}

func decodeAs[T Message](typ string, b []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, &DecodeError{Type: typ, Err: err}
	}
	return m, nil
}

// Encode serializes an outbound (or any) message.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	return b, nil
}
