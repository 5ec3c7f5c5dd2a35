package lobby

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
)

// Manager keeps the nickname registry and every open lobby.
type Manager struct {
	logger *zap.Logger

	mu      sync.RWMutex
	lobbies map[string]*Lobby
	members map[int]string

	nickMu    sync.RWMutex
	nicknames map[int]string
	byName    map[string]int
	nextID    int
}

// NewManager creates a lobby manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger,
		lobbies:   make(map[string]*Lobby),
		members:   make(map[int]string),
		nicknames: make(map[int]string),
		byName:    make(map[string]int),
		nextID:    1,
	}
}

// Register reserves a nickname and returns the new user id.
func (m *Manager) Register(nickname string) (int, error) {
	name := strings.TrimSpace(nickname)
	if name == "" {
		return 0, rules.Violationf(rules.InvalidSelection, "nickname is required")
	}

	m.nickMu.Lock()
	defer m.nickMu.Unlock()

	key := strings.ToLower(name)
	if _, taken := m.byName[key]; taken {
		return 0, rules.Violationf(rules.ResourceExhausted, "nickname %q is taken", name)
	}
	id := m.nextID
	m.nextID++
	m.nicknames[id] = name
	m.byName[key] = id

	m.logger.Info("user registered", zap.Int("user_id", id), zap.String("nickname", name))
	return id, nil
}

// Unregister frees a user's nickname and takes them out of their lobby.
func (m *Manager) Unregister(userID int) {
	_ = m.Leave(userID)

	m.nickMu.Lock()
	defer m.nickMu.Unlock()
	if name, ok := m.nicknames[userID]; ok {
		delete(m.byName, strings.ToLower(name))
		delete(m.nicknames, userID)
	}
}

// Nickname returns the nickname of a registered user.
func (m *Manager) Nickname(userID int) (string, bool) {
	m.nickMu.RLock()
	defer m.nickMu.RUnlock()
	name, ok := m.nicknames[userID]
	return name, ok
}

// Registered reports whether the user id was handed out and not released.
func (m *Manager) Registered(userID int) bool {
	_, ok := m.Nickname(userID)
	return ok
}

func (m *Manager) nickname(userID int) string {
	name, _ := m.Nickname(userID)
	return name
}

// Join seats the user in an open lobby for the rule, creating one when
// every lobby for it is full.
func (m *Manager) Join(userID int, rule GameRule) (*Lobby, error) {
	if !m.Registered(userID) {
		return nil, rules.Violationf(rules.InvalidSelection, "user %d is not logged in", userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.members[userID]; ok {
		return nil, rules.Violationf(rules.IllegalPhase, "user %d is already in lobby %s", userID, current)
	}

	var target *Lobby
	for _, l := range m.sortedLocked() {
		if l.Rule == rule && l.State() == StateWaiting && !l.Full() {
			target = l
			break
		}
	}
	if target == nil {
		target = NewLobby(rule)
		m.lobbies[target.ID] = target
		m.logger.Info("lobby created", zap.String("lobby_id", target.ID), zap.String("rule", string(rule)))
	}
	if err := target.AddPlayer(userID); err != nil {
		return nil, err
	}
	m.members[userID] = target.ID

	m.logger.Info("user joined lobby",
		zap.String("lobby_id", target.ID),
		zap.Int("user_id", userID),
		zap.Int("host", target.Host()),
	)
	return target, nil
}

// Leave takes the user out of their lobby. An emptied lobby is removed.
func (m *Manager) Leave(userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.members[userID]
	if !ok {
		return rules.Violationf(rules.IllegalPhase, "user %d is not in a lobby", userID)
	}
	delete(m.members, userID)

	l, ok := m.lobbies[id]
	if !ok {
		return nil
	}
	left, err := l.RemovePlayer(userID)
	if err != nil {
		return err
	}
	if left == 0 {
		delete(m.lobbies, id)
		m.logger.Info("lobby removed", zap.String("lobby_id", id))
	}
	return nil
}

// LobbyOf returns the lobby a user sits in.
func (m *Manager) LobbyOf(userID int) (*Lobby, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.members[userID]
	if !ok {
		return nil, false
	}
	l, ok := m.lobbies[id]
	return l, ok
}

// Get returns a lobby by id.
func (m *Manager) Get(lobbyID string) (*Lobby, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lobbies[lobbyID]
	return l, ok
}

// Start starts the user's lobby and releases its members, who now belong
// to the match.
func (m *Manager) Start(userID int) (*Lobby, []game.Seat, error) {
	l, ok := m.LobbyOf(userID)
	if !ok {
		return nil, nil, rules.Violationf(rules.IllegalPhase, "user %d is not in a lobby", userID)
	}
	seats, err := l.Start(userID, m.nickname)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	for _, s := range seats {
		delete(m.members, s.UserID)
	}
	delete(m.lobbies, l.ID)
	m.mu.Unlock()

	m.logger.Info("lobby started", zap.String("lobby_id", l.ID), zap.Int("players", len(seats)))
	return l, seats, nil
}

// Snapshot describes a lobby with nicknames resolved.
func (m *Manager) Snapshot(l *Lobby) Snapshot {
	return l.Snapshot(m.nickname)
}

// List returns every open lobby, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	lobbies := m.sortedLocked()
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(lobbies))
	for _, l := range lobbies {
		out = append(out, l.Snapshot(m.nickname))
	}
	return out
}

// Count returns the number of open lobbies.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lobbies)
}

func (m *Manager) sortedLocked() []*Lobby {
	out := make([]*Lobby, 0, len(m.lobbies))
	for _, l := range m.lobbies {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreateTime.Equal(out[j].CreateTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreateTime.Before(out[j].CreateTime)
	})
	return out
}
