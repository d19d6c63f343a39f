package behavior

import (
	"context"

	"github.com/mudler/xlog"

	"agentrpg.ai/internal/movement"
	"agentrpg.ai/internal/protocol"
	"agentrpg.ai/internal/world"
)

// Template is one entry of a scripted sequence. Move templates ignore their
// params; the planner fills them in.
type Template struct {
	Action string          `yaml:"action" json:"action"`
	Params protocol.Params `yaml:"params" json:"params"`
}

// DefaultScript exercises every action type once or more.
func DefaultScript() []Template {
	return []Template{
		{Action: protocol.ActionSpeak, Params: protocol.Params{"text": "Hello! I have entered the world."}},
		{Action: protocol.ActionEmote, Params: protocol.Params{"type": "exclamation"}},
		{Action: protocol.ActionMove},
		{Action: protocol.ActionMove},
		{Action: protocol.ActionSpeak, Params: protocol.Params{"text": "Exploring this area..."}},
		{Action: protocol.ActionEmote, Params: protocol.Params{"type": "question"}},
		{Action: protocol.ActionMove},
		{Action: protocol.ActionSkill, Params: protocol.Params{"skill_id": "attack", "target_id": ""}},
		{Action: protocol.ActionWait, Params: protocol.Params{"duration_ms": 1000}},
		{Action: protocol.ActionSpeak, Params: protocol.Params{"text": "That was interesting!"}},
		{Action: protocol.ActionInteract, Params: protocol.Params{"object_id": "sign_1"}},
		{Action: protocol.ActionEmote, Params: protocol.Params{"type": "heart"}},
	}
}

// spawnGuess is where a scripted agent heads before it has seen itself.
var spawnGuess = movement.Pos{X: 2, Y: 2}

// Scripted cycles through a fixed sequence of templates.
type Scripted struct {
	agentID  string
	sequence []Template
	step     int
	state    stateTracker
}

// NewScripted copies seq; an empty seq selects DefaultScript.
func NewScripted(agentID string, seq []Template) *Scripted {
	if len(seq) == 0 {
		seq = DefaultScript()
	}
	cp := make([]Template, len(seq))
	for i, t := range seq {
		cp[i] = Template{Action: t.Action, Params: t.Params.Clone()}
	}
	return &Scripted{agentID: agentID, sequence: cp}
}

func (s *Scripted) State() State { return s.state.load() }

// Step is the number of decisions made so far.
func (s *Scripted) Step() int { return s.step }

func (s *Scripted) Decide(_ context.Context, snap world.Snapshot) Intent {
	s.state.begin()
	defer s.state.finish()

	tpl := s.sequence[s.step%len(s.sequence)]
	s.step++

	switch tpl.Action {
	case protocol.ActionMove:
		return Intent{Action: protocol.ActionMove, Params: s.planMove(snap)}
	case protocol.ActionSkill:
		target, ok := snap.FindOther(s.agentID)
		if !ok {
			xlog.Debug("no skill target, waiting instead", "agent_id", s.agentID)
			return Wait(ScriptNoTargetWaitMS)
		}
		params := tpl.Params.Clone()
		params["target_id"] = target.ID
		return Intent{Action: protocol.ActionSkill, Params: params}
	default:
		return Intent{Action: tpl.Action, Params: tpl.Params.Clone()}
	}
}

// planMove uses the already advanced step counter to pick the direction.
func (s *Scripted) planMove(snap world.Snapshot) protocol.Params {
	me, ok := snap.Agent(s.agentID)
	if !ok {
		return protocol.Params(spawnGuess.Params())
	}
	p := movement.PlanMove(me, snap, movement.DirectionFor(s.step))
	return protocol.Params(p.Params())
}
