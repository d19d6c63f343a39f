// Package session drives one agent's connection to the bridge: it registers,
// keeps the world model current and answers every turn addressed to the agent.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mudler/xlog"

	"agentrpg.ai/internal/behavior"
	"agentrpg.ai/internal/protocol"
	"agentrpg.ai/internal/transcript"
	"agentrpg.ai/internal/transport/ws"
	"agentrpg.ai/internal/world"
)

// Conn is an ordered, bidirectional text message stream. Receive reports a
// finished stream as io.EOF.
type Conn interface {
	Send(b []byte) error
	Receive() ([]byte, error)
	Close() error
}

type Dialer func(ctx context.Context, url string) (Conn, error)

// Recorder receives every frame sent or received.
type Recorder interface {
	Record(dir, typ string, frame []byte) error
}

type Config struct {
	AgentID   string
	Name      string
	Color     int
	ServerURL string
}

type Option func(*Session)

func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dial = d }
}

func WithTranscript(r Recorder) Option {
	return func(s *Session) { s.rec = r }
}

type Session struct {
	cfg     Config
	decider behavior.Decider
	dial    Dialer
	rec     Recorder

	mu    sync.RWMutex
	model *world.Model
	turns int
}

func New(cfg Config, decider behavior.Decider, opts ...Option) *Session {
	s := &Session{
		cfg:     cfg,
		decider: decider,
		dial:    dialWS,
		model:   world.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func dialWS(ctx context.Context, url string) (Conn, error) {
	c, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns a copy of the current world view.
func (s *Session) Snapshot() world.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model.Snapshot()
}

// TurnsAnswered counts the actions sent so far.
func (s *Session) TurnsAnswered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turns
}

// Run connects, registers and processes messages until the connection ends.
// A clean close by the server returns nil; cancelling ctx returns ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	conn, err := s.dial(ctx, s.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	xlog.Info("connected", "agent_id", s.cfg.AgentID, "url", s.cfg.ServerURL)
	if err := s.send(conn, protocol.NewRegister(s.cfg.AgentID, s.cfg.Name, s.cfg.Color)); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	xlog.Info("registered", "agent_id", s.cfg.AgentID, "name", s.cfg.Name)

	for {
		frame, err := conn.Receive()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				xlog.Info("connection closed", "agent_id", s.cfg.AgentID)
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		if err := s.handle(ctx, conn, frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, conn Conn, frame []byte) error {
	msg, err := protocol.Decode(frame)
	if err != nil {
		s.record(transcript.DirIn, "", frame)
		xlog.Warn("dropping malformed message", "bytes", len(frame), "error", err)
		return nil
	}
	s.record(transcript.DirIn, msg.MessageType(), frame)

	switch m := msg.(type) {
	case protocol.WorldStateMsg:
		s.mu.Lock()
		s.model.ApplySnapshot(m)
		s.mu.Unlock()
		xlog.Debug("world state", "tick", m.Tick, "agents", len(m.Agents), "objects", len(m.Objects))

	case protocol.TurnStartMsg:
		if m.AgentID != s.cfg.AgentID {
			return nil
		}
		return s.takeTurn(ctx, conn, m)

	case protocol.ActionResultMsg:
		s.mu.Lock()
		moved := s.model.ApplyActionResult(m)
		s.mu.Unlock()
		if m.AgentID == s.cfg.AgentID && !m.Success {
			xlog.Warn("action rejected", "action", m.Action, "error", m.Error)
		} else {
			xlog.Debug("action result", "agent_id", m.AgentID, "action", m.Action, "success", m.Success, "moved", moved)
		}

	case protocol.AgentJoinedMsg:
		xlog.Info("agent joined", "agent_id", m.Agent.AgentID, "name", m.Agent.Name, "role", m.Agent.Role)
	case protocol.AgentLeftMsg:
		xlog.Info("agent left", "agent_id", m.AgentID)
	case protocol.ErrorMsg:
		xlog.Error("server error", "message", m.Message)
	case protocol.FindingsPostedMsg:
		xlog.Info("finding posted", "agent", m.AgentName, "realm", m.Realm, "severity", m.Severity, "finding", m.Finding)
	case protocol.LevelUpMsg:
		xlog.Info("level up", "agent_id", m.AgentID, "area", m.Area, "level", m.Level)
	case protocol.SpawnRequestMsg:
		xlog.Info("spawn requested", "name", m.RequestedName, "role", m.RequestedRole)

	case protocol.Unknown, protocol.RegisterMsg, protocol.ActionMsg:
		// ignored
	}
	return nil
}

func (s *Session) takeTurn(ctx context.Context, conn Conn, m protocol.TurnStartMsg) error {
	snap := s.Snapshot()
	xlog.Info("turn start", "turn_id", m.TurnID, "timeout_ms", m.Timeout(), "version", snap.Version)

	// A decision in flight is not cancelled; if the run ends meanwhile its
	// result is dropped.
	intent := s.decider.Decide(context.WithoutCancel(ctx), snap)
	if ctx.Err() != nil {
		xlog.Debug("discarding decision", "turn_id", m.TurnID)
		return ctx.Err()
	}

	act := protocol.NewAction(s.cfg.AgentID, m.TurnID, intent.Action, intent.Params)
	if err := s.send(conn, act); err != nil {
		return fmt.Errorf("send action: %w", err)
	}
	s.mu.Lock()
	s.turns++
	s.mu.Unlock()
	xlog.Info("action sent", "turn_id", m.TurnID, "action", act.Action)
	return nil
}

func (s *Session) send(conn Conn, m protocol.Message) error {
	b, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	if err := conn.Send(b); err != nil {
		return err
	}
	s.record(transcript.DirOut, m.MessageType(), b)
	return nil
}

func (s *Session) record(dir, typ string, frame []byte) {
	if s.rec == nil {
		return
	}
	if err := s.rec.Record(dir, typ, frame); err != nil {
		xlog.Warn("transcript write failed", "error", err)
	}
}
