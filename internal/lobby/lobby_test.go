package lobby

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
)

func register(t *testing.T, m *Manager, names ...string) []int {
	t.Helper()
	ids := make([]int, len(names))
	for i, n := range names {
		id, err := m.Register(n)
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestParseGameRule(t *testing.T) {
	tests := []struct {
		in      string
		players int
		expert  bool
	}{
		{"SIMPLE_2", 2, false},
		{"simple_3", 3, false},
		{"ADVANCED_4", 4, true},
		{" advanced_2 ", 2, true},
	}
	for _, tt := range tests {
		r, err := ParseGameRule(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.players, r.Players())
		assert.Equal(t, tt.expert, r.Expert())
	}

	_, err := ParseGameRule("SIMPLE_5")
	assert.Equal(t, rules.InvalidSelection, rules.KindOf(err))
}

func TestRegisterNicknames(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))

	ids := register(t, m, "alice", "bob")
	assert.Equal(t, []int{1, 2}, ids)

	_, err := m.Register("Alice")
	assert.Equal(t, rules.ResourceExhausted, rules.KindOf(err), "nicknames are case-insensitive")
	_, err = m.Register("   ")
	assert.Equal(t, rules.InvalidSelection, rules.KindOf(err))

	name, ok := m.Nickname(2)
	assert.True(t, ok)
	assert.Equal(t, "bob", name)

	m.Unregister(1)
	assert.False(t, m.Registered(1))
	id, err := m.Register("alice")
	require.NoError(t, err)
	assert.Equal(t, 3, id, "ids are never reused")
}

func TestJoinFillsLobbies(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	ids := register(t, m, "a", "b", "c", "d")

	first, err := m.Join(ids[0], Simple2)
	require.NoError(t, err)
	second, err := m.Join(ids[1], Simple2)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Full())

	third, err := m.Join(ids[2], Simple2)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID, "a full lobby is skipped")

	other, err := m.Join(ids[3], Advanced3)
	require.NoError(t, err)
	assert.NotEqual(t, third.ID, other.ID, "rules never mix")

	_, err = m.Join(ids[0], Simple2)
	assert.Equal(t, rules.IllegalPhase, rules.KindOf(err))
	_, err = m.Join(99, Simple2)
	assert.Equal(t, rules.InvalidSelection, rules.KindOf(err))

	assert.Equal(t, 3, m.Count())
	assert.Len(t, m.List(), 3)
}

func TestHostReassignment(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	ids := register(t, m, "a", "b", "c")

	l, err := m.Join(ids[0], Simple3)
	require.NoError(t, err)
	_, err = m.Join(ids[1], Simple3)
	require.NoError(t, err)
	_, err = m.Join(ids[2], Simple3)
	require.NoError(t, err)
	assert.Equal(t, ids[0], l.Host())

	require.NoError(t, m.Leave(ids[0]))
	assert.Equal(t, ids[1], l.Host(), "the oldest remaining member hosts")
	assert.Equal(t, []int{ids[1], ids[2]}, l.Players())

	require.NoError(t, m.Leave(ids[2]))
	assert.Equal(t, ids[1], l.Host())
	require.NoError(t, m.Leave(ids[1]))
	assert.Zero(t, l.Host())
	_, ok := m.Get(l.ID)
	assert.False(t, ok, "an empty lobby is removed")

	assert.Equal(t, rules.IllegalPhase, rules.KindOf(m.Leave(ids[1])))
}

func TestStartRequiresHostAndReady(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	ids := register(t, m, "host", "guest")

	l, err := m.Join(ids[0], Advanced2)
	require.NoError(t, err)

	_, _, err = m.Start(ids[0])
	assert.Equal(t, rules.IllegalPhase, rules.KindOf(err), "lobby not full")

	_, err = m.Join(ids[1], Advanced2)
	require.NoError(t, err)
	require.NoError(t, l.SetReady(ids[0], true))
	require.NoError(t, l.SetReady(ids[1], true))
	require.NoError(t, l.SetReady(ids[1], false))
	assert.False(t, l.EveryoneReady())

	_, _, err = m.Start(ids[0])
	assert.Equal(t, rules.IllegalPhase, rules.KindOf(err), "guest not ready")

	require.NoError(t, l.SetReady(ids[1], true))
	_, _, err = m.Start(ids[1])
	assert.Equal(t, rules.IllegalPhase, rules.KindOf(err), "only the host starts")

	require.NoError(t, l.Setup.SelectWizard(ids[1], board.WizardKing))
	started, seats, err := m.Start(ids[0])
	require.NoError(t, err)
	assert.Equal(t, l.ID, started.ID)
	assert.Equal(t, StateStarted, l.State())
	require.Len(t, seats, 2)
	assert.Equal(t, "host", seats[0].Nickname)
	assert.Equal(t, board.WizardPixie, seats[0].Wizard, "the first free wizard")
	assert.Equal(t, board.WizardKing, seats[1].Wizard)

	_, inLobby := m.LobbyOf(ids[0])
	assert.False(t, inLobby, "players now belong to the match")
	_, err = m.Join(ids[0], Advanced2)
	assert.NoError(t, err)

	assert.Equal(t, rules.InvalidSelection, rules.KindOf(l.SetReady(42, true)))
}

func TestSetupPools(t *testing.T) {
	s := NewSetup(4)

	require.NoError(t, s.SelectTeam(1, board.TeamWhite))
	require.NoError(t, s.SelectTeam(2, board.TeamWhite))
	assert.Equal(t, rules.ResourceExhausted, rules.KindOf(s.SelectTeam(3, board.TeamWhite)))
	assert.Equal(t, rules.InvalidSelection, rules.KindOf(s.SelectTeam(3, board.TeamGrey)), "grey plays only with three")
	assert.Equal(t, []board.Team{board.TeamBlack}, s.AvailableTeams())
	require.NoError(t, s.SelectTeam(1, board.TeamWhite), "re-picking the same team is fine")

	require.NoError(t, s.SelectWizard(1, board.WizardSorcerer))
	assert.Equal(t, rules.ResourceExhausted, rules.KindOf(s.SelectWizard(2, board.WizardSorcerer)))
	require.NoError(t, s.SelectWizard(1, board.WizardKing), "changing one's mind frees the old wizard")
	require.NoError(t, s.SelectWizard(2, board.WizardSorcerer))
	assert.Equal(t, []board.Wizard{board.WizardPixie, board.WizardWizard}, s.AvailableWizards())

	s.Release(1)
	assert.Equal(t, board.TeamNone, s.Team(1))
	assert.Equal(t, board.WizardNone, s.Wizard(1))
	assert.Len(t, s.AvailableTeams(), 2)
}

func TestSnapshot(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	ids := register(t, m, "a", "b")
	l, err := m.Join(ids[0], Simple3)
	require.NoError(t, err)
	_, err = m.Join(ids[1], Simple3)
	require.NoError(t, err)
	require.NoError(t, l.SetReady(ids[1], true))
	require.NoError(t, l.Setup.SelectTeam(ids[1], board.TeamGrey))

	snap := m.Snapshot(l)
	assert.Equal(t, "WAITING", snap.State)
	assert.Equal(t, 1, snap.EmptySeats)
	require.Len(t, snap.Players, 2)
	assert.True(t, snap.Players[0].Host)
	assert.False(t, snap.Players[0].Ready)
	assert.True(t, snap.Players[1].Ready)
	assert.Equal(t, "GREY", snap.Players[1].Team)
	assert.Equal(t, []string{"WHITE", "BLACK"}, snap.AvailableTeams)
	assert.Len(t, snap.AvailableWizards, 4)
}

func TestConcurrentPicks(t *testing.T) {
	s := NewSetup(4)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wizardWins := map[board.Wizard]int{}
	teamWins := map[board.Team]int{}
	for user := 1; user <= 16; user++ {
		wg.Add(2)
		go func(user int) {
			defer wg.Done()
			w := board.AllWizards()[user%4]
			if s.SelectWizard(user, w) == nil {
				mu.Lock()
				wizardWins[w]++
				mu.Unlock()
			}
		}(user)
		go func(user int) {
			defer wg.Done()
			team := board.TeamWhite
			if user%2 == 0 {
				team = board.TeamBlack
			}
			if s.SelectTeam(user, team) == nil {
				mu.Lock()
				teamWins[team]++
				mu.Unlock()
			}
		}(user)
	}
	wg.Wait()

	for _, w := range board.AllWizards() {
		assert.Equal(t, 1, wizardWins[w], "wizard %s", w)
	}
	assert.Equal(t, 2, teamWins[board.TeamWhite])
	assert.Equal(t, 2, teamWins[board.TeamBlack])
	assert.Empty(t, s.AvailableWizards())
	assert.Empty(t, s.AvailableTeams())
}

func TestConcurrentJoins(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	var ids []int
	for i := 0; i < 40; i++ {
		ids = append(ids, register(t, m, fmt.Sprintf("p%d", i))...)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := m.Join(id, Simple4)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 10, m.Count())
	for _, snap := range m.List() {
		assert.Zero(t, snap.EmptySeats)
	}
}
