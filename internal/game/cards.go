package game

import (
	"strconv"

	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/characters"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/selection"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// selectCharacter opens the activation of a card in play. The player must
// afford it and not have used a card this turn.
func (m *Match) selectCharacter(seat, id int) (*selection.Requirements, []rules.Event, error) {
	if !m.Expert {
		return nil, nil, rules.Violationf(rules.IllegalPhase, "character cards are only played in expert matches")
	}
	if m.Effects.CardUsed {
		return nil, nil, rules.Violationf(rules.ResourceExhausted, "a character card was already played this turn")
	}
	if m.Selection.HasPending {
		return nil, nil, rules.Violationf(rules.IllegalPhase, "place the selected student first")
	}
	idx, ok := m.cardWithID(characters.ID(id))
	if !ok {
		return nil, nil, rules.Violationf(rules.InvalidSelection, "character %d is not in play", id)
	}
	card := m.Characters[idx]
	if !m.Players[seat].Purse.CanSpend(card.Cost) {
		return nil, nil, rules.Violationf(rules.ResourceExhausted, "%s costs %d coins, purse holds %d", card.ID, card.Cost, m.Players[seat].Purse.Coins)
	}

	m.ActiveCard = idx
	m.Selection.Reset()
	req := card.Requirements()
	return &req, []rules.Event{rules.NewEventWithAmount(rules.EventCharacterSelected, seat, card.ID.String(), card.Cost)}, nil
}

func (m *Match) activeCard() (*characters.Card, error) {
	if m.ActiveCard < 0 || m.ActiveCard >= len(m.Characters) {
		return nil, rules.Violationf(rules.IllegalPhase, "no character card selected")
	}
	return m.Characters[m.ActiveCard], nil
}

func (m *Match) selectCardEntrance(seat int, slots []int) error {
	card, err := m.activeCard()
	if err != nil {
		return err
	}
	return m.Selection.SetEntrance(slots, card.Requirements(), len(m.Players[seat].Entrance))
}

func (m *Match) selectCardColors(cmd protocol.Command) error {
	card, err := m.activeCard()
	if err != nil {
		return err
	}
	return m.Selection.SetColors(cmd.Colors, card.Requirements())
}

func (m *Match) selectCardIsland(id int) error {
	card, err := m.activeCard()
	if err != nil {
		return err
	}
	_, exists := m.Islands.Group(id)
	return m.Selection.SetIsland(id, card.Requirements(), exists)
}

func (m *Match) selectCardStudents(positions []int) error {
	card, err := m.activeCard()
	if err != nil {
		return err
	}
	return m.Selection.SetCardStudents(positions, card.Requirements(), len(card.Students))
}

// playCharacter runs the selected card and charges its pre-activation cost.
func (m *Match) playCharacter(seat int) ([]rules.Event, error) {
	card, err := m.activeCard()
	if err != nil {
		return nil, err
	}
	cost := card.Cost
	p := m.Players[seat]
	if !p.Purse.CanSpend(cost) {
		return nil, rules.Violationf(rules.ResourceExhausted, "%s costs %d coins, purse holds %d", card.ID, cost, p.Purse.Coins)
	}

	ctx := &cardContext{m: m, seat: seat}
	if err := card.Activate(ctx, m.Selection); err != nil {
		return nil, err
	}
	if err := p.Purse.Transfer(&m.Bank, cost); err != nil {
		return nil, rules.Violationf(rules.ResourceExhausted, "paying %s: %v", card.ID, err)
	}
	m.endActivation()

	events := []rules.Event{rules.NewEventWithAmount(rules.EventCharacterActivated, seat, card.ID.String(), cost)}
	events = append(events, ctx.events...)
	events = append(events, m.checkInstantEnd()...)
	return events, nil
}

// endActivation leaves the card activation and drops its selections.
func (m *Match) endActivation() {
	m.ActiveCard = -1
	m.Selection.Reset()
}

// returnNoEntry puts a consumed block token back on the card that placed it.
func (m *Match) returnNoEntry() {
	if idx, ok := m.cardWithID(characters.Herbalist); ok {
		m.Characters[idx].ReturnNoEntry()
	}
}

func (m *Match) cardWithID(id characters.ID) (int, bool) {
	for i, card := range m.Characters {
		if card.ID == id {
			return i, true
		}
	}
	return 0, false
}

// cardContext exposes the match to a card effect on behalf of one seat and
// collects the events the effect caused.
type cardContext struct {
	m      *Match
	seat   int
	events []rules.Event
}

var _ characters.Context = (*cardContext)(nil)

func (c *cardContext) player() *board.Player {
	return c.m.Players[c.seat]
}

func (c *cardContext) Draw() (students.Color, bool) {
	return c.m.draw()
}

func (c *cardContext) PlaceOnIsland(islandID int, color students.Color) error {
	g, ok := c.m.Islands.Group(islandID)
	if !ok {
		return rules.Violationf(rules.InvalidSelection, "island %d does not exist", islandID)
	}
	g.Students.Add(color, 1)
	c.events = append(c.events, rules.NewEvent(rules.EventStudentMoved, c.seat, "island:"+strconv.Itoa(islandID)+":"+color.String()))
	return nil
}

func (c *cardContext) AddToTable(color students.Color) error {
	p := c.player()
	if p.Tables.Count(color) >= board.TableCapacity {
		return rules.Violationf(rules.ResourceExhausted, "%s table is full", color)
	}
	p.Tables.Add(color, 1)
	c.events = append(c.events, rules.NewEvent(rules.EventStudentMoved, c.seat, "hall:"+color.String()))
	c.events = append(c.events, c.m.afterTableGain(c.seat, color)...)
	return nil
}

func (c *cardContext) Entrance() []students.Color {
	return append([]students.Color(nil), c.player().Entrance...)
}

func (c *cardContext) SwapEntrance(slot int, color students.Color) (students.Color, error) {
	p := c.player()
	if slot < 0 || slot >= len(p.Entrance) {
		return 0, rules.Violationf(rules.InvalidSelection, "entrance slot %d out of range", slot)
	}
	old := p.Entrance[slot]
	p.Entrance[slot] = color
	return old, nil
}

// ExchangeWithTables swaps entrance students with table students pairwise.
func (c *cardContext) ExchangeWithTables(slots []int, colors []students.Color) error {
	p := c.player()
	if len(slots) != len(colors) {
		return rules.Violationf(rules.InvalidSelection, "need as many colours as entrance students")
	}
	gained := make(map[students.Color]bool)
	for i, slot := range slots {
		if slot < 0 || slot >= len(p.Entrance) {
			return rules.Violationf(rules.InvalidSelection, "entrance slot %d out of range", slot)
		}
		out := colors[i]
		in := p.Entrance[slot]
		if !p.Tables.Remove(out, 1) {
			return rules.Violationf(rules.InvalidSelection, "no %s student on the table", out)
		}
		if p.Tables.Count(in) >= board.TableCapacity {
			return rules.Violationf(rules.ResourceExhausted, "%s table is full", in)
		}
		p.Tables.Add(in, 1)
		p.Entrance[slot] = out
		gained[in] = true
	}
	c.events = append(c.events, c.m.updateProfessors(c.seat)...)
	for _, color := range students.AllColors() {
		if !gained[color] {
			continue
		}
		if evt, ok := c.m.grantCoin(c.seat, color); ok {
			c.events = append(c.events, evt)
		}
	}
	return nil
}

func (c *cardContext) ResolveIsland(islandID int) error {
	if _, ok := c.m.Islands.Group(islandID); !ok {
		return rules.Violationf(rules.InvalidSelection, "island %d does not exist", islandID)
	}
	c.events = append(c.events, c.m.resolveIsland(c.seat, islandID)...)
	return nil
}

func (c *cardContext) PlaceNoEntry(islandID int) error {
	g, ok := c.m.Islands.Group(islandID)
	if !ok {
		return rules.Violationf(rules.InvalidSelection, "island %d does not exist", islandID)
	}
	g.NoEntry++
	return nil
}

func (c *cardContext) ReturnFromTables(color students.Color, limit int) {
	for _, p := range c.m.Players {
		n := min(p.Tables.Count(color), limit)
		if n == 0 {
			continue
		}
		p.Tables.Remove(color, n)
		c.m.Bag.Return(color, n)
	}
	c.events = append(c.events, c.m.updateProfessor(c.seat, color)...)
}

func (c *cardContext) Effects() *characters.TurnEffects {
	return &c.m.Effects
}
