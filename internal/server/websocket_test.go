package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/config"
	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/lobby"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	// handlers keep running after the test returns, so nothing logs to t
	logger := zap.NewNop()
	s := New(cfg, game.NewEngine(logger, ""), lobby.NewManager(logger), logger)
	s.seed = func() [2]uint64 { return [2]uint64{7, 11} }
	ts := httptest.NewServer(NewHTTPHandler(s))
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return s, ts
}

func login(t *testing.T, ts *httptest.Server, nickname string) int {
	t.Helper()
	body, _ := json.Marshal(protocol.LoginRequest{Nickname: nickname})
	resp, err := http.Post(ts.URL+"/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out protocol.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotZero(t, out.UserID)
	return out.UserID
}

func dial(t *testing.T, ts *httptest.Server, path string, userID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path + "?userId=" + strconv.Itoa(userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// player holds the three channels of one test user.
type player struct {
	id      int
	command *websocket.Conn
	events  *websocket.Conn
	beat    *websocket.Conn
	nextReq int64
}

func connect(t *testing.T, ts *httptest.Server, nickname string) *player {
	t.Helper()
	p := &player{id: login(t, ts, nickname)}
	p.events = dial(t, ts, "/ws/events", p.id)
	p.waitPush(t, protocol.PushConnected)
	p.command = dial(t, ts, "/ws/command", p.id)
	p.beat = dial(t, ts, "/ws/heartbeat", p.id)
	return p
}

func (p *player) send(t *testing.T, cmd protocol.Command) protocol.Reply {
	t.Helper()
	p.nextReq++
	cmd.RequestID = p.nextReq
	require.NoError(t, p.command.WriteJSON(cmd))

	require.NoError(t, p.command.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply protocol.Reply
	require.NoError(t, p.command.ReadJSON(&reply))
	assert.Equal(t, cmd.RequestID, reply.RequestID)
	return reply
}

func (p *player) waitPush(t *testing.T, kind protocol.PushKind) protocol.Push {
	t.Helper()
	require.NoError(t, p.events.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var push protocol.Push
		require.NoError(t, p.events.ReadJSON(&push), "waiting for %s", kind)
		if push.Kind == kind {
			return push
		}
	}
}

func TestLogin(t *testing.T) {
	_, ts := newTestServer(t, nil)

	login(t, ts, "alice")

	resp, err := http.Post(ts.URL+"/login", "application/json", strings.NewReader(`{"nickname":"ALICE"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/login", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestChannelsRequireLogin(t *testing.T) {
	_, ts := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/command?userId=42"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMalformedCommand(t *testing.T) {
	_, ts := newTestServer(t, nil)
	p := connect(t, ts, "alice")

	require.NoError(t, p.command.WriteMessage(websocket.TextMessage, []byte(`{"requestId":3}`)))
	var reply protocol.Reply
	require.NoError(t, p.command.ReadJSON(&reply))
	assert.False(t, reply.OK())
	assert.Equal(t, "INVALID_SELECTION", reply.ErrorKind)
}

func TestLobbyToMatchOverWebsocket(t *testing.T) {
	_, ts := newTestServer(t, nil)
	host := connect(t, ts, "host")
	guest := connect(t, ts, "guest")

	reply := host.send(t, protocol.Command{Kind: protocol.CommandJoinLobby, GameRule: "SIMPLE_2"})
	require.True(t, reply.OK(), reply.ErrorMessage)
	lobbyID := reply.LobbyID

	reply = guest.send(t, protocol.Command{Kind: protocol.CommandJoinLobby, GameRule: "simple_2"})
	require.True(t, reply.OK(), reply.ErrorMessage)
	assert.Equal(t, lobbyID, reply.LobbyID)

	push := host.waitPush(t, protocol.PushLobbyUpdated)
	var snap lobby.Snapshot
	require.NoError(t, json.Unmarshal(push.Lobby, &snap))
	assert.Equal(t, lobbyID, snap.ID)

	reply = guest.send(t, protocol.Command{Kind: protocol.CommandSelectWizard, Wizard: "sorcerer"})
	require.True(t, reply.OK(), reply.ErrorMessage)
	reply = host.send(t, protocol.Command{Kind: protocol.CommandSelectWizard, Wizard: "SORCERER"})
	assert.Equal(t, "RESOURCE_EXHAUSTED", reply.ErrorKind)
	reply = host.send(t, protocol.Command{Kind: protocol.CommandSelectTeam, Team: "grey"})
	assert.Equal(t, "INVALID_SELECTION", reply.ErrorKind)

	require.True(t, host.send(t, protocol.Command{Kind: protocol.CommandReady}).OK())
	reply = host.send(t, protocol.Command{Kind: protocol.CommandStartGame})
	assert.Equal(t, "ILLEGAL_PHASE", reply.ErrorKind, "guest is not ready")
	require.True(t, guest.send(t, protocol.Command{Kind: protocol.CommandReady}).OK())

	reply = guest.send(t, protocol.Command{Kind: protocol.CommandStartGame})
	assert.Equal(t, "ILLEGAL_PHASE", reply.ErrorKind, "only the host starts")

	reply = host.send(t, protocol.Command{Kind: protocol.CommandStartGame})
	require.True(t, reply.OK(), reply.ErrorMessage)
	require.NotNil(t, reply.Status)
	assert.True(t, reply.Status.Started)
	assert.Equal(t, host.id, reply.Status.CurrentUser)

	for _, p := range []*player{host, guest} {
		push := p.waitPush(t, protocol.PushGameStarted)
		require.NotNil(t, push.Status)
		assert.Equal(t, reply.Status.MatchID, push.Status.MatchID)
		assert.NotEmpty(t, push.View)
		assert.NotEmpty(t, push.Checksum)
	}

	reply = guest.send(t, protocol.Command{Kind: protocol.CommandPlayAssistant, Priority: 3})
	assert.Equal(t, "NOT_YOUR_TURN", reply.ErrorKind)
	require.NotNil(t, reply.Status, "rejections carry the status")

	reply = host.send(t, protocol.Command{Kind: protocol.CommandPlayAssistant, Priority: 3})
	require.True(t, reply.OK(), reply.ErrorMessage)
	push = guest.waitPush(t, protocol.PushTurnChanged)
	assert.Equal(t, guest.id, push.Status.CurrentUser)

	reply = guest.send(t, protocol.Command{Kind: protocol.CommandJoinLobby, GameRule: "SIMPLE_2"})
	assert.Equal(t, "ILLEGAL_PHASE", reply.ErrorKind, "players cannot queue while playing")
}

func startedMatch(t *testing.T, ts *httptest.Server) (*player, *player) {
	t.Helper()
	host := connect(t, ts, "host")
	guest := connect(t, ts, "guest")
	for _, p := range []*player{host, guest} {
		require.True(t, p.send(t, protocol.Command{Kind: protocol.CommandJoinLobby, GameRule: "ADVANCED_2"}).OK())
	}
	for _, p := range []*player{host, guest} {
		require.True(t, p.send(t, protocol.Command{Kind: protocol.CommandReady}).OK())
	}
	require.True(t, host.send(t, protocol.Command{Kind: protocol.CommandStartGame}).OK())
	guest.waitPush(t, protocol.PushGameStarted)
	return host, guest
}

func TestHeartbeatLossEndsMatch(t *testing.T) {
	s, ts := newTestServer(t, nil)
	host, guest := startedMatch(t, ts)

	var probe protocol.Heartbeat
	require.NoError(t, guest.beat.WriteJSON(protocol.Heartbeat{Sequence: 1}))
	require.NoError(t, guest.beat.ReadJSON(&probe))
	assert.Equal(t, int64(1), probe.Sequence, "the server echoes probes")

	require.NoError(t, guest.beat.Close())

	push := host.waitPush(t, protocol.PushPlayerDisconnected)
	assert.Equal(t, guest.id, push.UserID)
	push = host.waitPush(t, protocol.PushMatchEnded)
	require.NotNil(t, push.Status)
	assert.True(t, push.Status.Over)

	_, playing := s.engine.MatchOf(host.id)
	assert.False(t, playing)
	reply := host.send(t, protocol.Command{Kind: protocol.CommandPlayAssistant, Priority: 1})
	assert.Equal(t, "UNKNOWN_MATCH", reply.ErrorKind)

	require.Eventually(t, func() bool { return !s.lobbies.Registered(guest.id) }, 2*time.Second, 10*time.Millisecond,
		"nothing waits for the guest, so the nickname is freed")
	assert.True(t, s.lobbies.Registered(host.id))
	login(t, ts, "guest")
}

func TestHeartbeatLossSuspendsMatch(t *testing.T) {
	s, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Match.DisconnectPolicy = config.DisconnectPolicySuspend
	})
	host, guest := startedMatch(t, ts)

	require.NoError(t, guest.beat.Close())
	push := host.waitPush(t, protocol.PushPlayerDisconnected)
	require.NotNil(t, push.Status)
	assert.True(t, push.Status.Suspended)

	reply := host.send(t, protocol.Command{Kind: protocol.CommandPlayAssistant, Priority: 5})
	assert.Equal(t, "ILLEGAL_PHASE", reply.ErrorKind, "suspended matches reject commands")
	assert.True(t, s.lobbies.Registered(guest.id), "the suspended match keeps the guest logged in")

	guest.beat = dial(t, ts, "/ws/heartbeat", guest.id)
	push = host.waitPush(t, protocol.PushMatchResumed)
	assert.Equal(t, host.id, push.UserID)
	assert.Equal(t, "PLANNING_TURN", push.State)

	_, playing := s.engine.MatchOf(guest.id)
	assert.True(t, playing)
	require.True(t, host.send(t, protocol.Command{Kind: protocol.CommandPlayAssistant, Priority: 5}).OK())
}

func TestLobbyLeaveOnHeartbeatLoss(t *testing.T) {
	s, ts := newTestServer(t, nil)
	host := connect(t, ts, "host")
	guest := connect(t, ts, "guest")
	require.True(t, host.send(t, protocol.Command{Kind: protocol.CommandJoinLobby, GameRule: "SIMPLE_3"}).OK())
	require.True(t, guest.send(t, protocol.Command{Kind: protocol.CommandJoinLobby, GameRule: "SIMPLE_3"}).OK())

	require.NoError(t, host.beat.Close())

	require.Eventually(t, func() bool {
		l, ok := s.lobbies.LobbyOf(guest.id)
		return ok && l.Host() == guest.id
	}, 2*time.Second, 10*time.Millisecond, "the guest inherits the lobby")
	require.Eventually(t, func() bool { return !s.lobbies.Registered(host.id) }, 2*time.Second, 10*time.Millisecond)
	login(t, ts, "host")
}
