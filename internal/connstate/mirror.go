package connstate

import (
	"sync"

	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// Mirror tracks the connection state on the client side. Replies and pushes
// arrive on different goroutines, so every transition is serialized.
type Mirror struct {
	mu       sync.Mutex
	me       int
	state    State
	callback State
	seen     int64
	latest   *protocol.Status
}

// NewMirror creates a mirror for the given user starting in the lobby.
func NewMirror(userID int) *Mirror {
	return &Mirror{me: userID, state: Lobby, callback: Lobby}
}

// State returns the current connection state.
func (m *Mirror) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Allows reports whether cmd may be sent now.
func (m *Mirror) Allows(cmd protocol.CommandKind) bool {
	return m.State().Allows(cmd)
}

// OnReply applies the reply to a command the client sent.
func (m *Mirror) OnReply(sent protocol.CommandKind, reply protocol.Reply) State {
	return m.apply(Input{Sent: sent, Reply: &reply})
}

// OnPush applies an asynchronous push.
func (m *Mirror) OnPush(push protocol.Push) State {
	return m.apply(Input{Push: &push})
}

// Fail moves the mirror to GameOver after a transport failure.
func (m *Mirror) Fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = GameOver
}

func (m *Mirror) apply(in Input) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	in.State = m.state
	in.Callback = m.callback
	in.Me = m.me
	in.Seen = m.seen
	in.Latest = m.latest

	out := Next(in)
	m.state = out.State
	m.callback = out.Callback
	m.seen = out.Seen
	m.latest = out.Latest
	return m.state
}
