package characters

import "github.com/eriantys/eriantys-server-go/internal/game/students"

// TurnEffects holds the modifiers a character card grants until the end of
// the acting player's turn.
type TurnEffects struct {
	// CardUsed is set once a card was activated this turn.
	CardUsed bool

	MovementBonus  int
	InfluenceBonus int
	IgnoreTowers   bool
	IgnoreColor    bool
	IgnoredColor   students.Color
	// ProfessorTies lets the acting player take professors on equal counts.
	ProfessorTies bool
}

// ClearMovement drops the bonus once mother nature moved.
func (e *TurnEffects) ClearMovement() {
	e.MovementBonus = 0
}

// Reset clears every effect at the end of a turn.
func (e *TurnEffects) Reset() {
	*e = TurnEffects{}
}
