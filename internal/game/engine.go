package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/connstate"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// Notification is a push the engine wants delivered. An empty Recipients
// list means every player of the match.
type Notification struct {
	MatchID    string
	Recipients []int
	// Players lists every player of the match in seat order.
	Players []int
	Push    protocol.Push
}

// Targets returns the users the push goes to.
func (n Notification) Targets() []int {
	if len(n.Recipients) > 0 {
		return n.Recipients
	}
	return n.Players
}

// NotificationHandler receives pushes in the order they were produced. It
// runs under the match lock and must not block or call back into the engine.
type NotificationHandler func(Notification)

// DisconnectPolicy decides what a lost connection does to a running match.
type DisconnectPolicy int

const (
	// EndOnDisconnect interrupts the match.
	EndOnDisconnect DisconnectPolicy = iota
	// SuspendOnDisconnect pauses the match until the user comes back.
	SuspendOnDisconnect
)

// matchHandle guards one match. Commands take the write lock around
// validate-then-apply; readers take the read lock.
type matchHandle struct {
	mu           sync.RWMutex
	match        *Match
	disconnected map[int]bool
}

// Engine owns every running match.
type Engine struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	matches map[string]*matchHandle
	// users maps a user to the match they play in.
	users map[int]string

	events              *rules.EventBus
	replays             *ReplayRecorder
	notificationHandler NotificationHandler
}

// NewEngine creates an engine. replayDir may be empty to keep replays in memory.
func NewEngine(logger *zap.Logger, replayDir string) *Engine {
	return &Engine{
		logger:  logger,
		matches: make(map[string]*matchHandle),
		users:   make(map[int]string),
		events:  rules.NewEventBus(),
		replays: NewReplayRecorder(logger, replayDir),
	}
}

// SetNotificationHandler installs the push sink.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notificationHandler = handler
}

// Events returns the bus every rule event is published on.
func (e *Engine) Events() *rules.EventBus {
	return e.events
}

func (e *Engine) notify(m *Match, n Notification) {
	n.Players = make([]int, len(m.Players))
	for i, p := range m.Players {
		n.Players[i] = p.UserID
	}

	e.mu.RLock()
	handler := e.notificationHandler
	e.mu.RUnlock()

	if handler != nil {
		handler(n)
	}
}

func (e *Engine) handle(matchID string) (*matchHandle, error) {
	e.mu.RLock()
	h, ok := e.matches[matchID]
	e.mu.RUnlock()
	if !ok {
		return nil, rules.Violationf(rules.UnknownMatch, "match %s not found", matchID)
	}
	return h, nil
}

// Create starts a match and announces it to its players.
func (e *Engine) Create(seats []Seat, opts Options) (string, error) {
	id := uuid.NewString()
	m, err := NewMatch(id, seats, opts)
	if err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}

	h := &matchHandle{match: m, disconnected: make(map[int]bool)}
	e.mu.Lock()
	for _, s := range seats {
		if other, busy := e.users[s.UserID]; busy {
			e.mu.Unlock()
			return "", fmt.Errorf("user %d already plays in match %s", s.UserID, other)
		}
	}
	e.matches[id] = h
	for _, s := range seats {
		e.users[s.UserID] = id
	}
	e.mu.Unlock()

	e.replays.StartRecording(Setup{MatchID: id, Seats: seats, Options: opts})

	h.mu.Lock()
	defer h.mu.Unlock()

	started := rules.NewEvent(rules.EventMatchStarted, -1, id)
	started.MatchID = id
	e.events.Publish(started)

	status := m.Status()
	e.notify(m, Notification{MatchID: id, Push: e.boardPush(protocol.PushGameStarted, m, &status)})

	e.logger.Info("match started",
		zap.String("match_id", id),
		zap.Int("players", len(seats)),
		zap.Bool("expert", opts.Expert),
	)
	return id, nil
}

// Process applies a command on behalf of a user. The returned status is
// the match status after the command, also on rejection.
func (e *Engine) Process(matchID string, userID int, cmd protocol.Command) (Result, protocol.Status, error) {
	h, err := e.handle(matchID)
	if err != nil {
		return Result{}, protocol.Status{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m := h.match
	seat, ok := m.SeatOf(userID)
	if !ok {
		return Result{}, m.Status(), rules.Violationf(rules.InvalidSelection, "user %d does not play in match %s", userID, matchID)
	}

	res, err := m.Apply(seat, cmd)
	entry := ReplayEntry{Seat: seat, Command: cmd, OK: err == nil, Checksum: m.Checksum(), Timestamp: time.Now()}
	if err != nil {
		entry.Error = err.Error()
	}
	e.replays.Record(matchID, entry)

	status := m.Status()
	if err != nil {
		e.logger.Debug("command rejected",
			zap.String("match_id", matchID),
			zap.Int("user_id", userID),
			zap.String("command", string(cmd.Kind)),
			zap.Error(err),
		)
		return Result{}, status, err
	}

	e.events.PublishBatch(res.Events)
	e.announce(m, res.Events, &status)
	if m.Over() {
		e.closeMatch(matchID, m)
	}
	return res, status, nil
}

// announce pushes the new turn, when control or phase moved, then the new board.
func (e *Engine) announce(m *Match, events []rules.Event, status *protocol.Status) {
	turnChanged := false
	for _, evt := range events {
		if evt.Type == rules.EventTurnChanged || evt.Type == rules.EventPhaseChanged {
			turnChanged = true
		}
	}
	switch {
	case m.Over():
		e.notify(m, Notification{MatchID: m.ID, Push: protocol.Push{Kind: protocol.PushMatchEnded, Status: status}})
	case turnChanged:
		e.notify(m, Notification{MatchID: m.ID, Push: protocol.Push{Kind: protocol.PushTurnChanged, Status: status}})
	}
	e.notify(m, Notification{MatchID: m.ID, Push: e.boardPush(protocol.PushBoardUpdated, m, status)})
}

func (e *Engine) boardPush(kind protocol.PushKind, m *Match, status *protocol.Status) protocol.Push {
	push := protocol.Push{Kind: kind, Status: status, Checksum: m.Checksum()}
	view, err := m.ViewJSON()
	if err != nil {
		e.logger.Error("failed to encode match view", zap.String("match_id", m.ID), zap.Error(err))
		return push
	}
	push.View = view
	return push
}

// closeMatch frees the players and stores the replay. The match itself
// stays readable until Remove.
func (e *Engine) closeMatch(matchID string, m *Match) {
	e.mu.Lock()
	for _, p := range m.Players {
		if e.users[p.UserID] == matchID {
			delete(e.users, p.UserID)
		}
	}
	e.mu.Unlock()

	if err := e.replays.Finish(matchID); err != nil {
		e.logger.Warn("failed to store replay", zap.String("match_id", matchID), zap.Error(err))
	}
	e.logger.Info("match ended",
		zap.String("match_id", matchID),
		zap.String("winner", m.Outcome.WinnerName()),
		zap.String("reason", m.Outcome.Reason),
	)
}

// Disconnect reports a lost connection. Under EndOnDisconnect the match is
// interrupted; under SuspendOnDisconnect it waits for Resume.
func (e *Engine) Disconnect(matchID string, userID int, policy DisconnectPolicy) error {
	h, err := e.handle(matchID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m := h.match
	seat, ok := m.SeatOf(userID)
	if !ok {
		return fmt.Errorf("user %d does not play in match %s", userID, matchID)
	}
	if m.Over() {
		return nil
	}
	h.disconnected[userID] = true

	var events []rules.Event
	entry := ReplayEntry{Seat: seat, OK: true}
	if policy == SuspendOnDisconnect {
		m.Suspend()
		entry.Lifecycle = LifecycleSuspend
	} else {
		entry.Lifecycle = LifecycleInterrupt
		entry.Reason = fmt.Sprintf("%s disconnected", m.Players[seat].Nickname)
		events = m.Interrupt(entry.Reason)
	}
	e.recordLifecycle(matchID, m, entry)

	evt := rules.NewEvent(rules.EventPlayerDisconnected, seat, "")
	evt.MatchID = matchID
	e.events.Publish(evt)
	e.events.PublishBatch(events)

	status := m.Status()
	e.notify(m, Notification{MatchID: matchID, Push: protocol.Push{Kind: protocol.PushPlayerDisconnected, Status: &status, UserID: userID}})
	e.logger.Info("player disconnected",
		zap.String("match_id", matchID),
		zap.Int("user_id", userID),
		zap.Bool("suspended", m.Suspended()),
	)

	if m.Over() {
		e.notify(m, Notification{MatchID: matchID, Push: protocol.Push{Kind: protocol.PushMatchEnded, Status: &status}})
		e.closeMatch(matchID, m)
	}
	return nil
}

func (e *Engine) recordLifecycle(matchID string, m *Match, entry ReplayEntry) {
	entry.Checksum = m.Checksum()
	entry.Timestamp = time.Now()
	e.replays.Record(matchID, entry)
}

// Resume marks a user as back. A suspended match continues once every
// disconnected player returned; each player is told which state to resume in.
func (e *Engine) Resume(matchID string, userID int) error {
	h, err := e.handle(matchID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	m := h.match
	seat, ok := m.SeatOf(userID)
	if !ok {
		return fmt.Errorf("user %d does not play in match %s", userID, matchID)
	}
	delete(h.disconnected, userID)
	if len(h.disconnected) > 0 || !m.Resume() {
		return nil
	}
	e.recordLifecycle(matchID, m, ReplayEntry{Seat: seat, Lifecycle: LifecycleResume, OK: true})

	evt := rules.NewEvent(rules.EventMatchResumed, -1, "")
	evt.MatchID = matchID
	e.events.Publish(evt)

	status := m.Status()
	for _, p := range m.Players {
		e.notify(m, Notification{
			MatchID:    matchID,
			Recipients: []int{p.UserID},
			Push: protocol.Push{
				Kind:   protocol.PushMatchResumed,
				Status: &status,
				UserID: p.UserID,
				State:  m.ConnectionState(p.Seat).String(),
			},
		})
	}
	e.logger.Info("match resumed", zap.String("match_id", matchID))
	return nil
}

// Status returns the status of a match.
func (e *Engine) Status(matchID string) (protocol.Status, error) {
	h, err := e.handle(matchID)
	if err != nil {
		return protocol.Status{}, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.match.Status(), nil
}

// View returns the public board and its checksum.
func (e *Engine) View(matchID string) (MatchView, string, error) {
	h, err := e.handle(matchID)
	if err != nil {
		return MatchView{}, "", err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.match.View(), h.match.Checksum(), nil
}

// ConnectionState returns the state a user's client should be in.
func (e *Engine) ConnectionState(matchID string, userID int) (connstate.State, error) {
	h, err := e.handle(matchID)
	if err != nil {
		return connstate.Lobby, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	seat, ok := h.match.SeatOf(userID)
	if !ok {
		return connstate.Lobby, fmt.Errorf("user %d does not play in match %s", userID, matchID)
	}
	return h.match.ConnectionState(seat), nil
}

// MatchOf returns the running match of a user.
func (e *Engine) MatchOf(userID int) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.users[userID]
	return id, ok
}

// Players returns the user ids of a match in seat order.
func (e *Engine) Players(matchID string) ([]int, error) {
	h, err := e.handle(matchID)
	if err != nil {
		return nil, err
	}
	return e.playersOf(h)
}

func (e *Engine) playersOf(h *matchHandle) ([]int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int, len(h.match.Players))
	for i, p := range h.match.Players {
		ids[i] = p.UserID
	}
	return ids, nil
}

// List returns the status of every match, ordered by id.
func (e *Engine) List() []protocol.Status {
	e.mu.RLock()
	handles := make([]*matchHandle, 0, len(e.matches))
	for _, h := range e.matches {
		handles = append(handles, h)
	}
	e.mu.RUnlock()

	out := make([]protocol.Status, 0, len(handles))
	for _, h := range handles {
		h.mu.RLock()
		out = append(out, h.match.Status())
		h.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out
}

// Replay returns the replay of a running match, or loads a finished one from disk.
func (e *Engine) Replay(matchID string) (*Replay, error) {
	if r, ok := e.replays.GetReplay(matchID); ok {
		return r, nil
	}
	return e.replays.LoadReplay(matchID)
}

// Remove forgets a match.
func (e *Engine) Remove(matchID string) {
	e.mu.Lock()
	h, ok := e.matches[matchID]
	delete(e.matches, matchID)
	e.mu.Unlock()
	if !ok {
		return
	}

	users, _ := e.playersOf(h)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range users {
		if e.users[id] == matchID {
			delete(e.users, id)
		}
	}
}
