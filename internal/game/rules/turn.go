package rules

import (
	"fmt"
	"sort"
)

// Phase represents the two halves of a round.
type Phase int

const (
	PhasePlanning Phase = iota
	PhaseAction
)

var phaseNames = map[Phase]string{
	PhasePlanning: "PLANNING",
	PhaseAction:   "ACTION",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// Step represents the sub-phases of a player's action turn.
type Step int

const (
	StepNone Step = iota
	StepMoveStudents
	StepMoveMotherNature
	StepChooseCloud
	StepEndTurn
)

var stepNames = map[Step]string{
	StepNone:             "NONE",
	StepMoveStudents:     "MOVE_STUDENTS",
	StepMoveMotherNature: "MOVE_MOTHER_NATURE",
	StepChooseCloud:      "CHOOSE_CLOUD",
	StepEndTurn:          "END_TURN",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// actionSequence is the fixed order of steps inside an action turn.
var actionSequence = []Step{
	StepMoveStudents,
	StepMoveMotherNature,
	StepChooseCloud,
	StepEndTurn,
}

// TurnManager tracks the round, the phase and whose turn it is.
// Seats are indices into the match's player list.
type TurnManager struct {
	players       int
	phase         Phase
	stepIndex     int
	round         int
	seq           int64
	planningOrder []int
	actionOrder   []int
	position      int
	// played holds the priority each seat committed this round, 0 when none.
	played []int
}

// NewTurnManager creates a turn manager at round 1 planning, starting at firstSeat.
func NewTurnManager(players, firstSeat int) *TurnManager {
	tm := &TurnManager{
		players: players,
		phase:   PhasePlanning,
		round:   1,
		seq:     1,
		played:  make([]int, players),
	}
	tm.planningOrder = clockwiseFrom(firstSeat, players)
	return tm
}

// Clone returns an independent copy.
func (tm *TurnManager) Clone() *TurnManager {
	c := *tm
	c.planningOrder = append([]int(nil), tm.planningOrder...)
	c.actionOrder = append([]int(nil), tm.actionOrder...)
	c.played = append([]int(nil), tm.played...)
	return &c
}

// CurrentPhase returns the phase in progress.
func (tm *TurnManager) CurrentPhase() Phase {
	return tm.phase
}

// CurrentStep returns the action step in progress, StepNone while planning.
func (tm *TurnManager) CurrentStep() Step {
	if tm.phase != PhaseAction {
		return StepNone
	}
	return actionSequence[tm.stepIndex]
}

// Round returns the current round number (1-based).
func (tm *TurnManager) Round() int {
	return tm.round
}

// Seq increases every time the current player or the phase changes.
func (tm *TurnManager) Seq() int64 {
	return tm.seq
}

// ActivePlayer returns the seat whose turn it is.
func (tm *TurnManager) ActivePlayer() int {
	if tm.phase == PhasePlanning {
		return tm.planningOrder[tm.position]
	}
	return tm.actionOrder[tm.position]
}

// PlanningOrder returns the seats in this round's planning order.
func (tm *TurnManager) PlanningOrder() []int {
	return append([]int(nil), tm.planningOrder...)
}

// ActionOrder returns the seats in this round's action order; empty while planning.
func (tm *TurnManager) ActionOrder() []int {
	return append([]int(nil), tm.actionOrder...)
}

// Played returns the priority the seat committed this round.
func (tm *TurnManager) Played(seat int) (int, bool) {
	if seat < 0 || seat >= len(tm.played) || tm.played[seat] == 0 {
		return 0, false
	}
	return tm.played[seat], true
}

// PlayedByOther reports whether a seat other than seat already committed priority this round.
func (tm *TurnManager) PlayedByOther(seat, priority int) bool {
	for s, p := range tm.played {
		if s != seat && p == priority {
			return true
		}
	}
	return false
}

// CommitAssistant records the active planner's card and hands control on.
// It returns true when the last planner committed and the action phase began.
func (tm *TurnManager) CommitAssistant(priority int) bool {
	seat := tm.ActivePlayer()
	tm.played[seat] = priority
	tm.position++
	tm.seq++
	if tm.position < len(tm.planningOrder) {
		return false
	}

	tm.actionOrder = ActionOrder(tm.planningOrder, tm.played)
	tm.phase = PhaseAction
	tm.stepIndex = 0
	tm.position = 0
	return true
}

// AdvanceStep moves to the next step of the current action turn.
// The end-turn step is terminal; use EndTurn to leave it.
func (tm *TurnManager) AdvanceStep() Step {
	if tm.phase == PhaseAction && tm.stepIndex < len(actionSequence)-1 {
		tm.stepIndex++
	}
	return tm.CurrentStep()
}

// EndTurn hands the action phase to the next seat. It returns true when the
// last seat finished and the round is over; call StartRound to continue.
func (tm *TurnManager) EndTurn() bool {
	if tm.position+1 >= len(tm.actionOrder) {
		return true
	}
	tm.position++
	tm.stepIndex = 0
	tm.seq++
	return false
}

// StartRound begins the planning phase of the next round. Planning starts
// with the seat that acted first in the previous round and proceeds clockwise.
func (tm *TurnManager) StartRound() {
	first := tm.planningOrder[0]
	if len(tm.actionOrder) > 0 {
		first = tm.actionOrder[0]
	}
	tm.round++
	tm.phase = PhasePlanning
	tm.stepIndex = 0
	tm.position = 0
	tm.planningOrder = clockwiseFrom(first, tm.players)
	tm.actionOrder = nil
	for i := range tm.played {
		tm.played[i] = 0
	}
	tm.seq++
}

// Bump marks a status change that is not a change of turn, such as the end of the match.
func (tm *TurnManager) Bump() {
	tm.seq++
}

// ActionOrder sorts seats by ascending committed priority. Equal priorities
// keep their relative planning order.
func ActionOrder(planningOrder, played []int) []int {
	order := append([]int(nil), planningOrder...)
	sort.SliceStable(order, func(i, j int) bool {
		return played[order[i]] < played[order[j]]
	})
	return order
}

func clockwiseFrom(first, players int) []int {
	order := make([]int, players)
	for i := range order {
		order[i] = (first + i) % players
	}
	return order
}
