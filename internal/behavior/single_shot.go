package behavior

import (
	"context"
	"fmt"

	"github.com/mudler/xlog"

	"agentrpg.ai/internal/world"
)

// singleShotRadius is narrower than NearbyRadius to keep prompts short.
const singleShotRadius = 2

var singleShotStrategies = []strategy{strategyBraces}

// SingleShot asks a Backend for each action with a fresh, self-contained
// prompt. It keeps no conversation between turns.
type SingleShot struct {
	agentID string
	mission string
	backend Backend
	state   stateTracker
}

func NewSingleShot(agentID, mission string, backend Backend) *SingleShot {
	return &SingleShot{agentID: agentID, mission: mission, backend: backend}
}

func (s *SingleShot) State() State { return s.state.load() }

func (s *SingleShot) Decide(ctx context.Context, snap world.Snapshot) Intent {
	s.state.begin()
	defer s.state.finish()

	me, ok := snap.Agent(s.agentID)
	if !ok {
		return Wait(BackendErrorWaitMS)
	}

	prompt := fmt.Sprintf(`You are an agent with mission: %s

Current situation:
- Position: (%d, %d)
- Nearby objects: %s
- Other agents: %d

Choose ONE action to take right now: move to an adjacent tile, speak, interact with a nearby object, think, or wait.

Respond with JSON:
{"action": "move|speak|interact|think|wait", "params": {...}}
`, s.mission, me.X, me.Y, nearbySummary(snap, me, singleShotRadius), len(snap.Others(s.agentID)))

	reply, err := complete(ctx, s.backend, "", []Utterance{{Role: RoleUser, Content: prompt}})
	if err != nil {
		xlog.Warn("single-shot backend failed, waiting", "agent_id", s.agentID, "error", err)
		return Wait(BackendErrorWaitMS)
	}
	p, err := parseWith(reply, singleShotStrategies)
	if err != nil {
		xlog.Warn("single-shot reply unparseable, waiting", "agent_id", s.agentID, "error", err)
		return Wait(BackendErrorWaitMS)
	}
	return p.Intent
}
