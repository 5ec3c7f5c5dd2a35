package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/eriantys/eriantys-server-go/internal/connstate"
	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/characters"
	"github.com/eriantys/eriantys-server-go/internal/game/coins"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/selection"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// Seat describes one participant at match creation.
type Seat struct {
	UserID   int
	Nickname string
	Team     board.Team
	Wizard   board.Wizard
}

// Options controls match setup.
type Options struct {
	Expert bool
	// Seed makes setup and every draw reproducible.
	Seed [2]uint64
	// Characters forces the character cards of an expert match; drawn at random when empty.
	Characters []characters.ID
	// FirstSeat plans first in round one.
	FirstSeat int
}

// Outcome is the terminal state of a match.
type Outcome struct {
	Winner board.Team
	// Draw is set when the tie-breakers could not separate the best teams.
	Draw bool
	// Interrupted is set when a disconnection ended the match.
	Interrupted bool
	Reason      string
}

// noProfessor marks a professor nobody controls yet.
const noProfessor = -1

// Match is the authoritative state of one game. It is not safe for
// concurrent use; the Engine serializes access.
type Match struct {
	ID      string
	Params  board.Params
	Expert  bool
	Players []*board.Player

	Islands    board.Archipelago
	Clouds     []board.Cloud
	Bag        board.Bag
	Bank       coins.Pool
	Professors [students.NumColors]int
	Characters []*characters.Card

	Turn      *rules.TurnManager
	Selection selection.State
	// ActiveCard is the index of the character being activated, -1 when none.
	ActiveCard int
	Effects    characters.TurnEffects
	// StudentsMoved counts moves made in the current action turn.
	StudentsMoved int
	// LastRound is set once a deferred end condition was met.
	LastRound bool
	Outcome   *Outcome
	suspended bool

	rng      *rand.Rand
	legality *rules.LegalityChecker
}

// NewMatch sets up a match for 2 to 4 seats.
func NewMatch(id string, seats []Seat, opts Options) (*Match, error) {
	params, err := board.ParamsFor(len(seats))
	if err != nil {
		return nil, err
	}
	if opts.FirstSeat < 0 || opts.FirstSeat >= len(seats) {
		return nil, fmt.Errorf("first seat %d out of range", opts.FirstSeat)
	}

	m := &Match{
		ID:         id,
		Params:     params,
		Expert:     opts.Expert,
		Islands:    board.NewArchipelago(board.NumIslands),
		ActiveCard: -1,
		rng:        rand.New(rand.NewPCG(opts.Seed[0], opts.Seed[1])),
	}
	for i := range m.Professors {
		m.Professors[i] = noProfessor
	}
	m.legality = rules.NewLegalityChecker(m)

	teams, err := assignTeams(seats, params)
	if err != nil {
		return nil, err
	}

	m.seedIslands()
	m.Bag = board.NewBag(students.PerColor - board.SetupStudentsPerColor)

	leaders := make(map[board.Team]bool)
	for i, s := range seats {
		p := &board.Player{
			UserID:   s.UserID,
			Nickname: s.Nickname,
			Seat:     i,
			Team:     teams[i],
			Wizard:   s.Wizard,
			Hand:     board.NewDeck(),
		}
		if !leaders[p.Team] {
			leaders[p.Team] = true
			p.Leader = true
			p.Towers = params.TowersPerTeam
		}
		p.Entrance = m.Bag.DrawN(m.rng, params.EntranceSize)
		m.Players = append(m.Players, p)
	}

	m.Clouds = make([]board.Cloud, params.Clouds)
	for i := range m.Clouds {
		m.Clouds[i].ID = i
	}

	if opts.Expert {
		m.Bank = coins.NewBank()
		for _, p := range m.Players {
			if err := m.Bank.Transfer(&p.Purse, coins.StartingCoins); err != nil {
				return nil, fmt.Errorf("setup coins: %w", err)
			}
		}
		if err := m.setupCharacters(opts.Characters); err != nil {
			return nil, err
		}
	}

	m.Turn = rules.NewTurnManager(len(seats), opts.FirstSeat)
	m.refillClouds()
	return m, nil
}

// seedIslands places mother nature and one student on every island except
// hers and the opposite one.
func (m *Match) seedIslands() {
	setup := board.NewBag(board.SetupStudentsPerColor)
	m.Islands.MotherNature = m.rng.IntN(board.NumIslands)
	opposite := m.Islands.Opposite(m.Islands.MotherNature)
	for i := range m.Islands.Groups {
		g := &m.Islands.Groups[i]
		if g.ID == m.Islands.MotherNature || g.ID == opposite {
			continue
		}
		if c, ok := setup.Draw(m.rng); ok {
			g.Students.Add(c, 1)
		}
	}
}

func (m *Match) setupCharacters(forced []characters.ID) error {
	ids := forced
	if len(ids) == 0 {
		all := characters.IDs()
		m.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		ids = all[:characters.PerMatch]
	}
	for _, id := range ids {
		card, err := characters.NewCard(id, m.draw)
		if err != nil {
			return fmt.Errorf("setup characters: %w", err)
		}
		m.Characters = append(m.Characters, card)
	}
	return nil
}

// assignTeams validates chosen teams or fills in defaults in seat order.
func assignTeams(seats []Seat, params board.Params) ([]board.Team, error) {
	available := board.TeamsFor(params.Players)
	teams := make([]board.Team, len(seats))
	counts := make(map[board.Team]int)
	for i, s := range seats {
		if s.Team == board.TeamNone {
			continue
		}
		if !containsTeam(available, s.Team) {
			return nil, fmt.Errorf("team %s not available with %d players", s.Team, params.Players)
		}
		counts[s.Team]++
		if counts[s.Team] > params.PlayersPerTeam {
			return nil, fmt.Errorf("team %s is full", s.Team)
		}
		teams[i] = s.Team
	}
	for i := range teams {
		if teams[i] != board.TeamNone {
			continue
		}
		for _, t := range available {
			if counts[t] < params.PlayersPerTeam {
				teams[i] = t
				counts[t]++
				break
			}
		}
	}
	return teams, nil
}

func containsTeam(teams []board.Team, t board.Team) bool {
	for _, x := range teams {
		if x == t {
			return true
		}
	}
	return false
}

// Clone returns a deep copy sharing only the random source.
func (m *Match) Clone() *Match {
	c := *m
	c.Players = make([]*board.Player, len(m.Players))
	for i, p := range m.Players {
		c.Players[i] = p.Clone()
	}
	c.Islands = m.Islands.Clone()
	c.Clouds = append([]board.Cloud(nil), m.Clouds...)
	c.Characters = make([]*characters.Card, len(m.Characters))
	for i, card := range m.Characters {
		c.Characters[i] = card.Clone()
	}
	c.Turn = m.Turn.Clone()
	c.Selection = m.Selection.Clone()
	if m.Outcome != nil {
		o := *m.Outcome
		c.Outcome = &o
	}
	c.legality = rules.NewLegalityChecker(&c)
	return &c
}

// commit replaces m's state with work's.
func (m *Match) commit(work *Match) {
	*m = *work
	m.legality = rules.NewLegalityChecker(m)
}

func (m *Match) draw() (students.Color, bool) {
	c, ok := m.Bag.Draw(m.rng)
	if ok && m.Bag.Empty() {
		m.LastRound = true
	}
	return c, ok
}

// refillClouds fills every cloud from the bag. A short bag makes this the last round.
func (m *Match) refillClouds() {
	for i := range m.Clouds {
		drawn := m.Bag.DrawN(m.rng, m.Params.CloudSize)
		m.Clouds[i].Fill(drawn)
	}
	if m.Bag.Empty() {
		m.LastRound = true
	}
}

// Over reports whether the match has ended.
func (m *Match) Over() bool {
	return m.Outcome != nil
}

// Suspended reports whether the match waits for a disconnected player.
func (m *Match) Suspended() bool {
	return m.suspended
}

// CurrentSeat returns the seat whose turn it is.
func (m *Match) CurrentSeat() int {
	return m.Turn.ActivePlayer()
}

// SeatOf returns the seat of a user.
func (m *Match) SeatOf(userID int) (int, bool) {
	for _, p := range m.Players {
		if p.UserID == userID {
			return p.Seat, true
		}
	}
	return 0, false
}

// ConnectionState derives which commands a seat may send from the phase machine.
func (m *Match) ConnectionState(seat int) connstate.State {
	switch {
	case m.Over():
		return connstate.GameOver
	case seat != m.CurrentSeat():
		return connstate.WaitingForControl
	case m.Turn.CurrentPhase() == rules.PhasePlanning:
		return connstate.PlanningTurn
	case m.ActiveCard >= 0:
		return connstate.CharacterCardActivation
	}
	switch m.Turn.CurrentStep() {
	case rules.StepMoveStudents:
		if m.Selection.HasPending {
			return connstate.StudentMoving
		}
		return connstate.StudentChoosing
	case rules.StepMoveMotherNature:
		return connstate.MNMoving
	case rules.StepChooseCloud:
		return connstate.CloudChoosing
	default:
		return connstate.EndTurn
	}
}

// leader returns the player holding the towers of a team.
func (m *Match) leader(t board.Team) *board.Player {
	for _, p := range m.Players {
		if p.Team == t && p.Leader {
			return p
		}
	}
	return nil
}

// teams returns the teams in play, in seat order of their leaders.
func (m *Match) teams() []board.Team {
	var out []board.Team
	for _, p := range m.Players {
		if p.Leader {
			out = append(out, p.Team)
		}
	}
	return out
}

// moreStudentsToMove reports whether the current player still owes student
// moves, bounded by what is left in their entrance.
func (m *Match) moreStudentsToMove() bool {
	if m.Turn.CurrentPhase() != rules.PhaseAction || m.Turn.CurrentStep() != rules.StepMoveStudents {
		return false
	}
	p := m.Players[m.CurrentSeat()]
	return m.StudentsMoved < m.Params.StudentsPerTurn && len(p.Entrance) > 0
}

// StudentTotal counts every student in the match. It is constant over the
// whole match.
func (m *Match) StudentTotal() int {
	total := m.Bag.Len() + m.Islands.StudentCount()
	for _, p := range m.Players {
		total += p.StudentCount()
	}
	for _, c := range m.Clouds {
		total += c.Students.Total()
	}
	for _, card := range m.Characters {
		total += len(card.Students)
	}
	return total
}

// CoinTotal counts every coin in the match.
func (m *Match) CoinTotal() int {
	total := m.Bank.Coins
	for _, p := range m.Players {
		total += p.Purse.Coins
	}
	return total
}
