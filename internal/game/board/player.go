package board

import (
	"github.com/eriantys/eriantys-server-go/internal/game/coins"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// Assistant is a planning card. Lower priority acts earlier; movement bounds
// how far mother nature may travel during the owner's action turn.
type Assistant struct {
	Priority int
	Movement int
}

// NewDeck returns the ten assistants every player starts with.
func NewDeck() []Assistant {
	deck := make([]Assistant, DeckSize)
	for i := range deck {
		priority := i + 1
		deck[i] = Assistant{Priority: priority, Movement: (priority + 1) / 2}
	}
	return deck
}

// Player is one seat's school board and hand.
type Player struct {
	UserID   int
	Nickname string
	Seat     int
	Team     Team
	// Leader is set for the one team member whose board holds the towers.
	Leader bool
	Wizard Wizard

	Entrance []students.Color
	Tables   students.Counts
	Towers   int

	Hand   []Assistant
	Played Assistant

	Purse coins.Pool
	// CoinsAwarded counts how many table thresholds already paid, per colour.
	CoinsAwarded [students.NumColors]int
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	c := *p
	c.Entrance = append([]students.Color(nil), p.Entrance...)
	c.Hand = append([]Assistant(nil), p.Hand...)
	return &c
}

// HasAssistant reports whether the priority is still in hand.
func (p *Player) HasAssistant(priority int) bool {
	for _, a := range p.Hand {
		if a.Priority == priority {
			return true
		}
	}
	return false
}

// TakeAssistant removes the assistant with the given priority from the hand.
func (p *Player) TakeAssistant(priority int) (Assistant, bool) {
	for i, a := range p.Hand {
		if a.Priority == priority {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			p.Played = a
			return a, true
		}
	}
	return Assistant{}, false
}

// RemoveEntrance takes the student in the given entrance slot.
func (p *Player) RemoveEntrance(slot int) (students.Color, bool) {
	if slot < 0 || slot >= len(p.Entrance) {
		return 0, false
	}
	c := p.Entrance[slot]
	p.Entrance = append(p.Entrance[:slot], p.Entrance[slot+1:]...)
	return c, true
}

// EntranceCounts returns the entrance as a multiset.
func (p *Player) EntranceCounts() students.Counts {
	return students.FromSlice(p.Entrance)
}

// StudentCount returns every student on the school board.
func (p *Player) StudentCount() int {
	return len(p.Entrance) + p.Tables.Total()
}
