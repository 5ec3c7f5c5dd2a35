// Package lobby gathers players before a match: joining by game rule,
// host bookkeeping, team and wizard picks and the ready check.
package lobby

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
)

// GameRule names a player count and mode.
type GameRule string

const (
	Simple2   GameRule = "SIMPLE_2"
	Simple3   GameRule = "SIMPLE_3"
	Simple4   GameRule = "SIMPLE_4"
	Advanced2 GameRule = "ADVANCED_2"
	Advanced3 GameRule = "ADVANCED_3"
	Advanced4 GameRule = "ADVANCED_4"
)

// ParseGameRule converts a rule name (case-insensitive) to a GameRule.
func ParseGameRule(name string) (GameRule, error) {
	r := GameRule(strings.ToUpper(strings.TrimSpace(name)))
	switch r {
	case Simple2, Simple3, Simple4, Advanced2, Advanced3, Advanced4:
		return r, nil
	}
	return "", rules.Violationf(rules.InvalidSelection, "unknown game rule %q", name)
}

// Players returns the seat count of the rule.
func (r GameRule) Players() int {
	switch r {
	case Simple3, Advanced3:
		return 3
	case Simple4, Advanced4:
		return 4
	default:
		return 2
	}
}

// Expert reports whether the rule plays with coins and character cards.
func (r GameRule) Expert() bool {
	return strings.HasPrefix(string(r), "ADVANCED")
}

// State is the lifecycle of a lobby.
type State int

const (
	StateWaiting State = iota
	StateStarted
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateStarted:
		return "STARTED"
	default:
		return "UNKNOWN"
	}
}

// PlayerSnapshot describes one lobby member.
type PlayerSnapshot struct {
	UserID   int    `json:"userId"`
	Nickname string `json:"nickname"`
	Ready    bool   `json:"ready"`
	Host     bool   `json:"host"`
	Team     string `json:"team,omitempty"`
	Wizard   string `json:"wizard,omitempty"`
}

// Snapshot is a consistent copy of a lobby, as pushed with LOBBY_UPDATED.
type Snapshot struct {
	ID               string           `json:"id"`
	Rule             GameRule         `json:"gameRule"`
	State            string           `json:"state"`
	Players          []PlayerSnapshot `json:"players"`
	EmptySeats       int              `json:"emptySeats"`
	AvailableTeams   []string         `json:"availableTeams"`
	AvailableWizards []string         `json:"availableWizards"`
	MatchID          string           `json:"matchId,omitempty"`
	CreateTime       time.Time        `json:"createTime"`
}

// Lobby is one pre-match room. Membership and host are guarded by mu, the
// ready list by readyMu and the picks by the Setup's own locks.
type Lobby struct {
	ID         string
	Rule       GameRule
	CreateTime time.Time
	Setup      *Setup

	mu      sync.RWMutex
	players []int
	host    int
	state   State
	matchID string

	readyMu sync.Mutex
	ready   map[int]bool
}

// NewLobby creates an empty lobby for the rule.
func NewLobby(rule GameRule) *Lobby {
	return &Lobby{
		ID:         uuid.NewString(),
		Rule:       rule,
		CreateTime: time.Now(),
		Setup:      NewSetup(rule.Players()),
		ready:      make(map[int]bool),
	}
}

// AddPlayer seats a user. The first user becomes the host.
func (l *Lobby) AddPlayer(userID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateWaiting {
		return rules.Violationf(rules.IllegalPhase, "lobby %s already started", l.ID)
	}
	if l.containsLocked(userID) {
		return rules.Violationf(rules.InvalidSelection, "user %d already joined", userID)
	}
	if len(l.players) >= l.Rule.Players() {
		return rules.Violationf(rules.ResourceExhausted, "lobby %s is full", l.ID)
	}
	l.players = append(l.players, userID)
	l.assignHostLocked()
	return nil
}

// RemovePlayer takes a user out, frees their picks and hands the host role
// on when needed. It returns the number of players left.
func (l *Lobby) RemovePlayer(userID int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, id := range l.players {
		if id == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(l.players), rules.Violationf(rules.InvalidSelection, "user %d is not in lobby %s", userID, l.ID)
	}
	l.players = append(l.players[:idx], l.players[idx+1:]...)
	l.assignHostLocked()

	l.readyMu.Lock()
	delete(l.ready, userID)
	l.readyMu.Unlock()
	l.Setup.Release(userID)

	return len(l.players), nil
}

func (l *Lobby) assignHostLocked() {
	if len(l.players) == 0 {
		l.host = 0
		return
	}
	if !l.containsLocked(l.host) {
		l.host = l.players[0]
	}
}

func (l *Lobby) containsLocked(userID int) bool {
	for _, id := range l.players {
		if id == userID {
			return true
		}
	}
	return false
}

// Host returns the host's user id, 0 when the lobby is empty.
func (l *Lobby) Host() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.host
}

// Players returns the members in join order.
func (l *Lobby) Players() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]int(nil), l.players...)
}

// Full reports whether every seat is taken.
func (l *Lobby) Full() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.players) >= l.Rule.Players()
}

// State returns the lobby state.
func (l *Lobby) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// SetReady marks a member ready or not ready.
func (l *Lobby) SetReady(userID int, ready bool) error {
	l.mu.RLock()
	member := l.containsLocked(userID)
	l.mu.RUnlock()
	if !member {
		return rules.Violationf(rules.InvalidSelection, "user %d is not in lobby %s", userID, l.ID)
	}

	l.readyMu.Lock()
	defer l.readyMu.Unlock()
	if ready {
		l.ready[userID] = true
	} else {
		delete(l.ready, userID)
	}
	return nil
}

// EveryoneReady reports whether the lobby is full and every member is ready.
func (l *Lobby) EveryoneReady() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.everyoneReadyLocked()
}

func (l *Lobby) everyoneReadyLocked() bool {
	if len(l.players) != l.Rule.Players() {
		return false
	}
	l.readyMu.Lock()
	defer l.readyMu.Unlock()
	for _, id := range l.players {
		if !l.ready[id] {
			return false
		}
	}
	return true
}

// Start closes the lobby and returns the seats of the match. Only the host
// may start, and only once everyone is ready. Users without a wizard get
// the first free one.
func (l *Lobby) Start(userID int, nickname func(int) string) ([]game.Seat, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateWaiting {
		return nil, rules.Violationf(rules.IllegalPhase, "lobby %s already started", l.ID)
	}
	if userID != l.host {
		return nil, rules.Violationf(rules.IllegalPhase, "only the host can start the match")
	}
	if !l.everyoneReadyLocked() {
		return nil, rules.Violationf(rules.IllegalPhase, "waiting for %d players to join and get ready", l.Rule.Players())
	}

	l.Setup.assignWizards(l.players)
	seats := make([]game.Seat, len(l.players))
	for i, id := range l.players {
		seats[i] = game.Seat{
			UserID:   id,
			Nickname: nickname(id),
			Team:     l.Setup.Team(id),
			Wizard:   l.Setup.Wizard(id),
		}
	}
	l.state = StateStarted
	return seats, nil
}

// SetMatch records the match the lobby turned into.
func (l *Lobby) SetMatch(matchID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.matchID = matchID
}

// Snapshot returns a consistent copy of the lobby.
func (l *Lobby) Snapshot(nickname func(int) string) Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	l.readyMu.Lock()
	players := make([]PlayerSnapshot, 0, len(l.players))
	for _, id := range l.players {
		players = append(players, PlayerSnapshot{
			UserID:   id,
			Nickname: nickname(id),
			Ready:    l.ready[id],
			Host:     id == l.host,
		})
	}
	l.readyMu.Unlock()

	for i := range players {
		if t := l.Setup.Team(players[i].UserID); t != board.TeamNone {
			players[i].Team = t.String()
		}
		if w := l.Setup.Wizard(players[i].UserID); w != board.WizardNone {
			players[i].Wizard = w.String()
		}
	}

	snap := Snapshot{
		ID:         l.ID,
		Rule:       l.Rule,
		State:      l.state.String(),
		Players:    players,
		EmptySeats: l.Rule.Players() - len(l.players),
		MatchID:    l.matchID,
		CreateTime: l.CreateTime,
	}
	for _, t := range l.Setup.AvailableTeams() {
		snap.AvailableTeams = append(snap.AvailableTeams, t.String())
	}
	for _, w := range l.Setup.AvailableWizards() {
		snap.AvailableWizards = append(snap.AvailableWizards, w.String())
	}
	return snap
}

func (l *Lobby) String() string {
	return fmt.Sprintf("lobby %s (%s)", l.ID, l.Rule)
}
