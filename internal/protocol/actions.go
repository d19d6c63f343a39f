package protocol

// Action names accepted by the bridge.
const (
	ActionMove     = "move"
	ActionSpeak    = "speak"
	ActionEmote    = "emote"
	ActionWait     = "wait"
	ActionInteract = "interact"
	ActionSkill    = "skill"
	ActionThink    = "think"
)

var knownActions = map[string]struct{}{
	ActionMove:     {},
	ActionSpeak:    {},
	ActionEmote:    {},
	ActionWait:     {},
	ActionInteract: {},
	ActionSkill:    {},
	ActionThink:    {},
}

func IsKnownAction(name string) bool {
	_, ok := knownActions[name]
	return ok
}

// Params carries action-specific arguments. Numbers decoded from the wire are
// float64; use Int to read coordinates and durations.
type Params map[string]any

// Int reads an integral value stored under key.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// Clone returns a shallow copy; nil clones to an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
