package behavior

import (
	"context"
	"fmt"
	"strings"

	"github.com/mudler/xlog"

	"agentrpg.ai/internal/world"
)

type ReasonedConfig struct {
	AgentID string
	// Role is how the agent is introduced to the backend; usually its name.
	Role         string
	Mission      string
	HistoryLimit int
}

// Reasoned asks a Backend for each action, carrying a bounded conversation
// log across turns.
type Reasoned struct {
	cfg     ReasonedConfig
	backend Backend
	system  string
	log     *ConversationLog
	actions int
	state   stateTracker
}

func NewReasoned(cfg ReasonedConfig, backend Backend) *Reasoned {
	if cfg.Role == "" {
		cfg.Role = "Explorer"
	}
	return &Reasoned{
		cfg:     cfg,
		backend: backend,
		system:  SystemPrompt(cfg.AgentID, cfg.Role, cfg.Mission),
		log:     NewConversationLog(cfg.HistoryLimit),
	}
}

func (r *Reasoned) State() State { return r.state.load() }

// History returns a copy of the conversation log.
func (r *Reasoned) History() []Utterance { return r.log.Entries() }

// ActionsTaken counts turns that produced a parsed action.
func (r *Reasoned) ActionsTaken() int { return r.actions }

func (r *Reasoned) Decide(ctx context.Context, snap world.Snapshot) Intent {
	r.state.begin()
	defer r.state.finish()

	obs := Observation(snap, r.cfg.AgentID, r.cfg.Mission, r.actions)
	r.log.Append(Utterance{
		Role:    RoleUser,
		Content: fmt.Sprintf("Turn %d\n\n%s\n\nWhat action do you take?", r.actions+1, obs),
	})

	reply, err := complete(ctx, r.backend, r.system, r.log.Entries())
	if err != nil {
		xlog.Warn("decision backend failed, waiting", "agent_id", r.cfg.AgentID, "error", err)
		return Wait(BackendErrorWaitMS)
	}
	r.log.Append(Utterance{Role: RoleAssistant, Content: reply})

	p, err := ParseReply(reply)
	if err != nil {
		xlog.Warn("unparseable decision, waiting", "agent_id", r.cfg.AgentID, "error", err, "reply", reply)
		return Wait(ParseErrorWaitMS)
	}
	if p.Reasoning != "" {
		xlog.Debug("decision reasoning", "agent_id", r.cfg.AgentID, "reasoning", p.Reasoning)
	}
	r.actions++
	return p.Intent
}

// complete calls the backend and turns a panic into an error.
func complete(ctx context.Context, b Backend, system string, log []Utterance) (reply string, err error) {
	if b == nil {
		return "", fmt.Errorf("no decision backend configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decision backend panic: %v", rec)
		}
	}()
	return b.Complete(ctx, system, log)
}

// SystemPrompt describes the agent, its action vocabulary and the reply format.
func SystemPrompt(agentID, role, mission string) string {
	var b strings.Builder
	b.WriteString("You are an autonomous agent living in a tile-based world that maps a codebase.\n\n")
	b.WriteString("IDENTITY:\n")
	fmt.Fprintf(&b, "- Agent ID: %s\n- Role: %s\n- Mission: %s\n\n", agentID, role, mission)
	b.WriteString(`ACTIONS (choose exactly one per turn):
- move: step to an adjacent tile. params: {"x": <int>, "y": <int>}
- speak: say something out loud. params: {"text": "<string>", "emote": "exclamation|question|heart|sweat|music"}
- interact: examine a map object such as a file or sign. params: {"object_id": "<string>"}
- emote: show a quick reaction. params: {"type": "exclamation|question|heart|sweat|music"}
- wait: stay idle. params: {"duration_ms": <int>}
- think: show an internal thought. params: {"text": "<string>"}

GUIDELINES:
- Work toward your mission and explore methodically.
- Interact with objects you reach; speak up about important discoveries.
- Use think for planning; other agents may be nearby, cooperate with them.

REPLY FORMAT:
Answer with a single JSON object and nothing else:
{"action": "<name>", "params": {...}, "reasoning": "<one short sentence>"}
`)
	return b.String()
}
