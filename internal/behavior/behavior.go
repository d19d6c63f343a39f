package behavior

import (
	"context"
	"sync/atomic"

	"agentrpg.ai/internal/protocol"
	"agentrpg.ai/internal/world"
)

// Intent is one action chosen for a turn.
type Intent struct {
	Action string          `json:"action"`
	Params protocol.Params `json:"params"`
}

// Wait is the fallback intent.
func Wait(durationMS int) Intent {
	return Intent{Action: protocol.ActionWait, Params: protocol.Params{"duration_ms": durationMS}}
}

// Fallback wait durations.
const (
	ScriptNoTargetWaitMS = 500
	BackendErrorWaitMS   = 1000
	ParseErrorWaitMS     = 2000
)

// Decider produces exactly one intent per call. Implementations never fail:
// anything that goes wrong is resolved to a fallback intent.
type Decider interface {
	Decide(ctx context.Context, snap world.Snapshot) Intent
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Utterance is one entry of a conversation sent to a Backend.
type Utterance struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Backend is an external reasoning service. It may fail in any way.
type Backend interface {
	Complete(ctx context.Context, system string, log []Utterance) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, system string, log []Utterance) (string, error)

func (f BackendFunc) Complete(ctx context.Context, system string, log []Utterance) (string, error) {
	return f(ctx, system, log)
}

// State is the decision lifecycle of a Decider.
type State int32

const (
	StateIdle State = iota
	StateAwaitingDecision
	StateDecided
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingDecision:
		return "awaiting-decision"
	case StateDecided:
		return "decided"
	default:
		return "unknown"
	}
}

// stateTracker may be read from other goroutines for diagnostics.
type stateTracker struct{ v atomic.Int32 }

func (t *stateTracker) load() State { return State(t.v.Load()) }
func (t *stateTracker) begin()      { t.v.Store(int32(StateAwaitingDecision)) }
func (t *stateTracker) finish()     { t.v.Store(int32(StateDecided)) }
