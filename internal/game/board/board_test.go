package board

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

func TestParamsFor(t *testing.T) {
	p, err := ParamsFor(3)
	require.NoError(t, err)
	assert.Equal(t, 9, p.EntranceSize)
	assert.Equal(t, 4, p.StudentsPerTurn)
	assert.Equal(t, 6, p.TowersPerTeam)

	_, err = ParamsFor(5)
	assert.Error(t, err)
}

func TestNewDeckMovement(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, DeckSize)
	assert.Equal(t, Assistant{Priority: 1, Movement: 1}, deck[0])
	assert.Equal(t, Assistant{Priority: 4, Movement: 2}, deck[3])
	assert.Equal(t, Assistant{Priority: 10, Movement: 5}, deck[9])
}

func TestBagDrawIsDeterministicAndFinite(t *testing.T) {
	a := NewBag(2)
	b := NewBag(2)
	drawnA := a.DrawN(rand.New(rand.NewPCG(1, 2)), 20)
	drawnB := b.DrawN(rand.New(rand.NewPCG(1, 2)), 20)

	assert.Equal(t, drawnA, drawnB)
	assert.Len(t, drawnA, 10, "bag only held ten students")
	assert.True(t, a.Empty())
	assert.Equal(t, students.Of(2), students.FromSlice(drawnA))
}

func TestPlayerAssistantsAndEntrance(t *testing.T) {
	p := &Player{Hand: NewDeck(), Entrance: []students.Color{students.Red, students.Blue, students.Pink}}

	a, ok := p.TakeAssistant(6)
	require.True(t, ok)
	assert.Equal(t, 3, a.Movement)
	assert.Equal(t, a, p.Played)
	assert.False(t, p.HasAssistant(6))
	_, ok = p.TakeAssistant(6)
	assert.False(t, ok)

	c, ok := p.RemoveEntrance(1)
	require.True(t, ok)
	assert.Equal(t, students.Blue, c)
	assert.Equal(t, []students.Color{students.Red, students.Pink}, p.Entrance)
	_, ok = p.RemoveEntrance(5)
	assert.False(t, ok)

	clone := p.Clone()
	clone.Entrance[0] = students.Green
	assert.Equal(t, students.Red, p.Entrance[0])
}

func TestParseIdentity(t *testing.T) {
	team, err := ParseTeam("grey")
	require.NoError(t, err)
	assert.Equal(t, TeamGrey, team)
	_, err = ParseTeam("none")
	assert.Error(t, err)

	w, err := ParseWizard("Pixie")
	require.NoError(t, err)
	assert.Equal(t, WizardPixie, w)
	assert.Len(t, TeamsFor(3), 3)
	assert.Len(t, TeamsFor(4), 2)
}
