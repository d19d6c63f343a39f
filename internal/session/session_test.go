package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"agentrpg.ai/internal/behavior"
	"agentrpg.ai/internal/protocol"
	"agentrpg.ai/internal/world"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// bridge is a scripted fake server: it reads the register frame, writes the
// given frames, then collects whatever the client sends until it has want
// frames or the client goes away. Finally it closes normally.
func bridge(t *testing.T, frames []string, want int) (*httptest.Server, <-chan []map[string]any) {
	t.Helper()
	got := make(chan []map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		var out []map[string]any
		defer func() { got <- out }()

		read := func() bool {
			_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, b, err := c.ReadMessage()
			if err != nil {
				return false
			}
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Errorf("client sent invalid json %q", b)
				return false
			}
			out = append(out, m)
			return true
		}
		if !read() {
			return
		}
		for _, f := range frames {
			if err := c.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for len(out) < want && read() {
		}
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	return srv, got
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type fixedDecider struct {
	mu    sync.Mutex
	snaps []world.Snapshot
	out   behavior.Intent
}

func (d *fixedDecider) Decide(_ context.Context, snap world.Snapshot) behavior.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snaps = append(d.snaps, snap)
	return d.out
}

func runSession(t *testing.T, s *Session) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Run(ctx)
}

const worldState = `{"type":"world:state","agents":[{"agent_id":"a1","name":"Hero","color":1,"x":2,"y":2},{"agent_id":"b2","name":"Other","color":2,"x":0,"y":0}],"map":{"width":5,"height":5,"tiles":[]},"objects":[]}`

func TestRegisterIsFirstFrame(t *testing.T) {
	srv, got := bridge(t, nil, 1)
	defer srv.Close()

	s := New(Config{AgentID: "a1", Name: "Hero", Color: 0xff3300, ServerURL: wsURL(srv)}, &fixedDecider{})
	if err := runSession(t, s); err != nil {
		t.Fatalf("run: %v", err)
	}
	frames := <-got
	if len(frames) != 1 {
		t.Fatalf("frames: %v", frames)
	}
	reg := frames[0]
	if reg["type"] != "agent:register" || reg["agent_id"] != "a1" || reg["name"] != "Hero" || reg["color"] != float64(0xff3300) {
		t.Fatalf("register: %v", reg)
	}
}

func TestTurnForSelfIsAnswered(t *testing.T) {
	srv, got := bridge(t, []string{
		worldState,
		`{"type":"turn:start","agent_id":"a1","turn_id":42}`,
	}, 2)
	defer srv.Close()

	d := &fixedDecider{out: behavior.Intent{Action: "speak", Params: protocol.Params{"text": "hi"}}}
	s := New(Config{AgentID: "a1", ServerURL: wsURL(srv)}, d)
	if err := runSession(t, s); err != nil {
		t.Fatalf("run: %v", err)
	}

	frames := <-got
	if len(frames) != 2 {
		t.Fatalf("frames: %v", frames)
	}
	act := frames[1]
	if act["type"] != "agent:action" || act["agent_id"] != "a1" || act["turn_id"] != float64(42) || act["action"] != "speak" {
		t.Fatalf("action: %v", act)
	}
	if p, _ := act["params"].(map[string]any); p["text"] != "hi" {
		t.Fatalf("params: %v", act["params"])
	}
	if len(d.snaps) != 1 || len(d.snaps[0].Agents) != 2 {
		t.Fatalf("decider saw %+v", d.snaps)
	}
	if s.TurnsAnswered() != 1 {
		t.Fatalf("turns answered: %d", s.TurnsAnswered())
	}
}

func TestTurnForOtherAgentIsIgnored(t *testing.T) {
	srv, got := bridge(t, []string{
		`{"type":"turn:start","agent_id":"b2","turn_id":7}`,
	}, 2)
	defer srv.Close()

	d := &fixedDecider{out: behavior.Wait(1)}
	s := New(Config{AgentID: "a1", ServerURL: wsURL(srv)}, d)
	// The bridge waits for a second frame that never comes; its read deadline
	// ends the exchange.
	_ = runSession(t, s)

	frames := <-got
	if len(frames) != 1 {
		t.Fatalf("expected only register, got %v", frames)
	}
	if len(d.snaps) != 0 {
		t.Fatalf("decider called for another agent's turn")
	}
}

func TestMalformedAndUnknownFramesAreSkipped(t *testing.T) {
	srv, got := bridge(t, []string{
		`{not json`,
		`{"type":"weather:changed","rain":true}`,
		`{"type":"agent:left","agent_id":"zz"}`,
		`{"type":"turn:start","agent_id":"a1","turn_id":3}`,
	}, 2)
	defer srv.Close()

	s := New(Config{AgentID: "a1", ServerURL: wsURL(srv)}, &fixedDecider{out: behavior.Wait(1000)})
	if err := runSession(t, s); err != nil {
		t.Fatalf("run: %v", err)
	}
	frames := <-got
	if len(frames) != 2 || frames[1]["turn_id"] != float64(3) || frames[1]["action"] != "wait" {
		t.Fatalf("frames: %v", frames)
	}
}

func TestTurnWithMalformedTimeoutIsStillAnswered(t *testing.T) {
	srv, got := bridge(t, []string{
		`{"type":"world:state","agents":[{"agent_id":"a1","name":"Hero","color":"#ff0000","x":2,"y":2}],"map":{"width":5,"height":5,"tiles":[]},"objects":[]}`,
		`{"type":"turn:start","agent_id":"a1","turn_id":7,"timeout_ms":"5000"}`,
	}, 2)
	defer srv.Close()

	d := &fixedDecider{out: behavior.Wait(1000)}
	s := New(Config{AgentID: "a1", ServerURL: wsURL(srv)}, d)
	if err := runSession(t, s); err != nil {
		t.Fatalf("run: %v", err)
	}
	frames := <-got
	if len(frames) != 2 || frames[1]["type"] != "agent:action" || frames[1]["turn_id"] != float64(7) {
		t.Fatalf("frames: %v", frames)
	}
	if self, ok := s.Snapshot().Agent("a1"); !ok || self.Color != 0xff0000 {
		t.Fatalf("snapshot with cosmetic color string dropped: %+v ok=%v", self, ok)
	}
}

func TestActionResultPatchesWorld(t *testing.T) {
	srv, got := bridge(t, []string{
		worldState,
		`{"type":"action:result","agent_id":"a1","action":"move","success":true,"params":{"x":3,"y":2}}`,
		`{"type":"action:result","agent_id":"b2","action":"move","success":false,"params":{"x":1,"y":0},"error":"blocked"}`,
		`{"type":"turn:start","agent_id":"a1","turn_id":1}`,
	}, 2)
	defer srv.Close()

	d := &fixedDecider{out: behavior.Wait(1)}
	s := New(Config{AgentID: "a1", ServerURL: wsURL(srv)}, d)
	if err := runSession(t, s); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-got

	self, ok := s.Snapshot().Agent("a1")
	if !ok || self.X != 3 || self.Y != 2 {
		t.Fatalf("self: %+v ok=%v", self, ok)
	}
	other, _ := s.Snapshot().Agent("b2")
	if other.X != 0 || other.Y != 0 {
		t.Fatalf("rejected move applied: %+v", other)
	}
	if len(d.snaps) != 1 {
		t.Fatalf("decisions: %d", len(d.snaps))
	}
	if got, _ := d.snaps[0].Agent("a1"); got.X != 3 {
		t.Fatalf("decider saw stale position %+v", got)
	}
}

type recorded struct {
	dir, typ string
}

type memRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *memRecorder) Record(dir, typ string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recorded{dir, typ})
	return nil
}

func TestTranscriptRecordsBothDirections(t *testing.T) {
	srv, got := bridge(t, []string{
		`{"type":"turn:start","agent_id":"a1","turn_id":5}`,
	}, 2)
	defer srv.Close()

	rec := &memRecorder{}
	s := New(Config{AgentID: "a1", ServerURL: wsURL(srv)}, &fixedDecider{out: behavior.Wait(1)}, WithTranscript(rec))
	if err := runSession(t, s); err != nil {
		t.Fatalf("run: %v", err)
	}
	<-got

	want := []recorded{
		{"out", "agent:register"},
		{"in", "turn:start"},
		{"out", "agent:action"},
	}
	if len(rec.entries) != len(want) {
		t.Fatalf("entries: %+v", rec.entries)
	}
	for i := range want {
		if rec.entries[i] != want[i] {
			t.Fatalf("entry %d: got %+v want %+v", i, rec.entries[i], want[i])
		}
	}
}

func TestConnectFailure(t *testing.T) {
	dialErr := errors.New("refused")
	s := New(Config{AgentID: "a1", ServerURL: "ws://unused"}, &fixedDecider{}, WithDialer(func(context.Context, string) (Conn, error) {
		return nil, dialErr
	}))
	err := s.Run(context.Background())
	if !errors.Is(err, dialErr) {
		t.Fatalf("expected wrapped dial error, got %v", err)
	}
}

// pipeConn is an in-memory Conn fed by a channel.
type pipeConn struct {
	in     chan []byte
	sent   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan []byte, 8), sent: make(chan []byte, 8), closed: make(chan struct{})}
}

func (p *pipeConn) Send(b []byte) error {
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}
	p.sent <- b
	return nil
}

func (p *pipeConn) Receive() ([]byte, error) {
	select {
	case b, ok := <-p.in:
		if !ok {
			return nil, io.EOF
		}
		return b, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// gatedDecider blocks until release is closed and reports whether the
// context it was given had been cancelled by then.
type gatedDecider struct {
	started   chan struct{}
	release   chan struct{}
	cancelled chan bool
}

func (d gatedDecider) Decide(ctx context.Context, _ world.Snapshot) behavior.Intent {
	close(d.started)
	<-d.release
	d.cancelled <- ctx.Err() != nil
	return behavior.Wait(1)
}

func TestCancelDiscardsInFlightDecision(t *testing.T) {
	pc := newPipeConn()
	d := gatedDecider{started: make(chan struct{}), release: make(chan struct{}), cancelled: make(chan bool, 1)}
	s := New(Config{AgentID: "a1"}, d, WithDialer(func(context.Context, string) (Conn, error) { return pc, nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-pc.sent // register
	pc.in <- []byte(`{"type":"turn:start","agent_id":"a1","turn_id":9}`)
	<-d.started
	cancel()

	select {
	case err := <-done:
		t.Fatalf("Run returned while a decision was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(d.release)

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after the decision finished")
	}
	if <-d.cancelled {
		t.Fatalf("decision context was cancelled")
	}
	select {
	case b := <-pc.sent:
		t.Fatalf("action sent after cancel: %s", b)
	default:
	}
}

func TestEndOfStreamReturnsNil(t *testing.T) {
	pc := newPipeConn()
	s := New(Config{AgentID: "a1"}, &fixedDecider{}, WithDialer(func(context.Context, string) (Conn, error) { return pc, nil }))
	close(pc.in)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}
