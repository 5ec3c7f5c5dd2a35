package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eriantys/eriantys-server-go/internal/connstate"
	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/characters"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

func testSeats(n int) []Seat {
	seats := make([]Seat, n)
	for i := range seats {
		seats[i] = Seat{UserID: 100 + i, Nickname: string(rune('a' + i)), Wizard: board.AllWizards()[i]}
	}
	return seats
}

func newTestMatch(t *testing.T, players int, expert bool, cards ...characters.ID) *Match {
	t.Helper()
	m, err := NewMatch("match-test", testSeats(players), Options{Expert: expert, Seed: [2]uint64{1, 2}, Characters: cards})
	require.NoError(t, err)
	return m
}

func cmd(kind protocol.CommandKind) protocol.Command {
	return protocol.Command{Kind: kind}
}

func playAssistant(p int) protocol.Command {
	c := cmd(protocol.CommandPlayAssistant)
	c.Priority = p
	return c
}

func mustApply(t *testing.T, m *Match, seat int, c protocol.Command) Result {
	t.Helper()
	res, err := m.Apply(seat, c)
	require.NoError(t, err, "%s by seat %d", c.Kind, seat)
	return res
}

// planRound has every seat play the given priorities in planning order.
func planRound(t *testing.T, m *Match, priorities map[int]int) {
	t.Helper()
	for _, seat := range m.Turn.PlanningOrder() {
		mustApply(t, m, seat, playAssistant(priorities[seat]))
	}
}

// moveStudentsToIsland spends the current player's student moves on the first island.
func moveStudentsToIsland(t *testing.T, m *Match, seat int) {
	t.Helper()
	for m.moreStudentsToMove() {
		sel := cmd(protocol.CommandSelectStudent)
		mustApply(t, m, seat, sel)
		put := cmd(protocol.CommandPutInIsland)
		put.IslandID = m.Islands.Groups[0].ID
		mustApply(t, m, seat, put)
	}
}

// skipToMotherNature jumps the current player past their student moves.
func skipToMotherNature(m *Match) {
	m.Turn.AdvanceStep()
}

// driver picks a legal-looking command for whoever is to act, from that
// seat's connection state alone.
type driver struct {
	rng *rand.Rand
	m   *Match
}

func (d *driver) next(seat int, state connstate.State) protocol.Command {
	m, p := d.m, d.m.Players[seat]
	switch state {
	case connstate.PlanningTurn:
		for _, a := range p.Hand {
			if !m.Turn.PlayedByOther(seat, a.Priority) {
				return playAssistant(a.Priority)
			}
		}
		return playAssistant(p.Hand[0].Priority)
	case connstate.StudentChoosing:
		if m.Expert && d.rng.IntN(6) == 0 && !m.Effects.CardUsed {
			return d.selectCharacter()
		}
		c := cmd(protocol.CommandSelectStudent)
		c.Slot = d.rng.IntN(len(p.Entrance))
		return c
	case connstate.StudentMoving:
		color := p.Entrance[m.Selection.Pending]
		if p.Tables.Count(color) < board.TableCapacity && d.rng.IntN(2) == 0 {
			return cmd(protocol.CommandPutInHall)
		}
		c := cmd(protocol.CommandPutInIsland)
		c.IslandID = d.randomIsland()
		return c
	case connstate.MNMoving:
		if m.Expert && d.rng.IntN(4) == 0 && !m.Effects.CardUsed {
			return d.selectCharacter()
		}
		c := cmd(protocol.CommandMoveMN)
		c.Steps = 1 + d.rng.IntN(p.Played.Movement+m.Effects.MovementBonus)
		return c
	case connstate.CloudChoosing:
		c := cmd(protocol.CommandChooseCloud)
		for _, cloud := range m.Clouds {
			if !cloud.Taken {
				c.CloudID = cloud.ID
				break
			}
		}
		return c
	case connstate.EndTurn:
		return cmd(protocol.CommandEndTurn)
	case connstate.CharacterCardActivation:
		return d.cardStep(seat)
	}
	return cmd(protocol.CommandEndTurn)
}

func (d *driver) selectCharacter() protocol.Command {
	c := cmd(protocol.CommandSelectCharacter)
	c.Character = int(d.m.Characters[d.rng.IntN(len(d.m.Characters))].ID)
	return c
}

func (d *driver) randomIsland() int {
	groups := d.m.Islands.Groups
	return groups[d.rng.IntN(len(groups))].ID
}

// cardStep fills the first missing requirement of the active card, then plays it.
func (d *driver) cardStep(seat int) protocol.Command {
	m := d.m
	card := m.Characters[m.ActiveCard]
	req := card.Requirements()
	sel := m.Selection
	n := req.Entrance.Min
	if req.Paired {
		n = 1
	}
	switch {
	case req.Islands.Min > 0 && len(sel.Islands) == 0:
		c := cmd(protocol.CommandSelectIslandGroup)
		c.IslandID = d.randomIsland()
		return c
	case req.Colors.Min > 0 && len(sel.Colors) == 0:
		c := cmd(protocol.CommandSelectStudentColors)
		c.Colors = []students.Color{students.AllColors()[d.rng.IntN(students.NumColors)]}
		return c
	case req.OnCard.Min > 0 && len(sel.CardStudents) == 0 && len(card.Students) > 0:
		c := cmd(protocol.CommandSelectStudentsOnCard)
		c.Positions = []int{d.rng.IntN(len(card.Students))}
		return c
	case n > 0 && len(sel.EntranceSlots) == 0:
		c := cmd(protocol.CommandSelectEntranceStudents)
		c.Slots = []int{d.rng.IntN(len(m.Players[seat].Entrance))}
		return c
	}
	return cmd(protocol.CommandPlayCharacter)
}

// towersInPlay counts a team's towers on the leader's board and on islands.
func towersInPlay(m *Match, t board.Team) int {
	n := m.leader(t).Towers
	for _, g := range m.Islands.Groups {
		if g.Owner == t {
			n += g.Size()
		}
	}
	return n
}
