package characters

import (
	"fmt"

	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/selection"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// Card is a character card in play.
type Card struct {
	ID   ID
	Cost int
	// Activated is set after the first successful activation, which bumps Cost once.
	Activated bool
	Students  []students.Color
	NoEntry   int
}

// NewCard creates a card and runs its setup, drawing resident students with draw.
func NewCard(id ID, draw func() (students.Color, bool)) (*Card, error) {
	spec, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown character %d", int(id))
	}
	card := &Card{ID: id, Cost: spec.Cost, NoEntry: spec.InitialNoEntry}
	for i := 0; i < spec.InitialStudents; i++ {
		c, ok := draw()
		if !ok {
			return nil, fmt.Errorf("supply exhausted while setting up %s", spec.Name)
		}
		card.Students = append(card.Students, c)
	}
	return card, nil
}

// Spec returns the card's static description.
func (c *Card) Spec() Spec {
	spec, _ := Lookup(c.ID)
	return spec
}

// Requirements returns what must be selected before activation.
func (c *Card) Requirements() selection.Requirements {
	return c.Spec().Requirements
}

// Clone returns a deep copy.
func (c *Card) Clone() *Card {
	cp := *c
	cp.Students = append([]students.Color(nil), c.Students...)
	return &cp
}

// Activate validates the selection, runs the effect and bumps the cost after
// the first success. Payment is the caller's concern.
func (c *Card) Activate(ctx Context, sel selection.State) error {
	spec := c.Spec()
	if err := sel.Satisfies(spec.Requirements); err != nil {
		return err
	}
	if err := spec.Activate(ctx, c, sel); err != nil {
		return fmt.Errorf("%s: %w", spec.Name, err)
	}
	if !c.Activated {
		c.Activated = true
		c.Cost++
	}
	ctx.Effects().CardUsed = true
	return nil
}

// take removes the resident students at the given positions, highest first so
// earlier positions stay valid.
func (c *Card) take(positions []int) ([]students.Color, error) {
	out := make([]students.Color, len(positions))
	for i, pos := range positions {
		if pos < 0 || pos >= len(c.Students) {
			return nil, invalidf("card position %d out of range", pos)
		}
		out[i] = c.Students[pos]
	}
	remaining := make([]students.Color, 0, len(c.Students))
	for i, s := range c.Students {
		if !contains(positions, i) {
			remaining = append(remaining, s)
		}
	}
	c.Students = remaining
	return out, nil
}

// refill tops the card up from the supply; a short supply is not an error.
func (c *Card) refill(ctx Context, n int) {
	for i := 0; i < n; i++ {
		s, ok := ctx.Draw()
		if !ok {
			return
		}
		c.Students = append(c.Students, s)
	}
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ReturnNoEntry puts a block token back on the card after it was consumed on an island.
func (c *Card) ReturnNoEntry() {
	c.NoEntry++
}

func exhaustedf(format string, args ...any) error {
	return rules.Violationf(rules.ResourceExhausted, format, args...)
}
