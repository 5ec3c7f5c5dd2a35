package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

func TestMoveMotherNatureWrapsAround(t *testing.T) {
	a := NewArchipelago(NumIslands)
	a.MotherNature = 10

	assert.Equal(t, 1, a.MoveMotherNature(3))
	assert.Equal(t, 2, a.Next(1))
	assert.Equal(t, 11, a.Prev(0))
	assert.Equal(t, 7, a.Opposite(1))
}

func TestMergeAroundJoinsSameOwnerNeighbours(t *testing.T) {
	a := NewArchipelago(NumIslands)
	a.Groups[0].Owner = TeamWhite
	a.Groups[1].Owner = TeamWhite
	a.Groups[11].Owner = TeamWhite
	a.Groups[2].Owner = TeamBlack
	a.Groups[1].Students.Add(students.Red, 2)
	a.Groups[11].NoEntry = 1
	a.MotherNature = 11

	absorbed := a.MergeAround(0)

	assert.ElementsMatch(t, []int{1, 11}, absorbed)
	assert.Equal(t, 10, a.Len())
	g, ok := a.Group(0)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 11}, g.Islands)
	assert.Equal(t, 2, g.Students.Count(students.Red))
	assert.Equal(t, 1, g.NoEntry)
	assert.Equal(t, 0, a.MotherNature, "pawn follows the merged group")

	_, ok = a.Group(11)
	assert.False(t, ok, "absorbed ids disappear")
	assert.Equal(t, 2, a.Next(0))
	assert.Equal(t, 10, a.Prev(0))
}

func TestMergeAroundIgnoresUnowned(t *testing.T) {
	a := NewArchipelago(NumIslands)
	assert.Empty(t, a.MergeAround(3))
	assert.Equal(t, NumIslands, a.Len())
}

func TestMergeDownToSingleGroup(t *testing.T) {
	a := NewArchipelago(3)
	for i := range a.Groups {
		a.Groups[i].Owner = TeamGrey
	}
	a.MergeAround(1)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, []int{0, 1, 2}, a.Groups[0].Islands)
}

func TestCloneIsDeep(t *testing.T) {
	a := NewArchipelago(4)
	c := a.Clone()
	c.Groups[0].Islands[0] = 99
	c.Groups[1].Students.Add(students.Blue, 1)

	assert.Equal(t, 0, a.Groups[0].Islands[0])
	assert.Equal(t, 0, a.Groups[1].Students.Total())
}
