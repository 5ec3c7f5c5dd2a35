package characters

import "github.com/eriantys/eriantys-server-go/internal/game/students"

// Context is the slice of the match a card effect may touch. It always acts
// on behalf of the player who activated the card.
type Context interface {
	// Draw takes a student from the supply
	Draw() (students.Color, bool)
	// PlaceOnIsland puts a student on an island group
	PlaceOnIsland(islandID int, c students.Color) error
	// AddToTable moves a student onto the acting player's table
	AddToTable(c students.Color) error
	// Entrance returns the acting player's entrance
	Entrance() []students.Color
	// SwapEntrance replaces the student in an entrance slot, returning the old one
	SwapEntrance(slot int, c students.Color) (students.Color, error)
	// ExchangeWithTables swaps entrance slots with table students of the given colours
	ExchangeWithTables(slots []int, colors []students.Color) error
	// ResolveIsland computes influence on an island group as if mother nature ended there
	ResolveIsland(islandID int) error
	// PlaceNoEntry puts a block token on an island group
	PlaceNoEntry(islandID int) error
	// ReturnFromTables sends up to max students of a colour from every table to the supply
	ReturnFromTables(c students.Color, max int)
	// Effects returns the turn effects to modify
	Effects() *TurnEffects
}
