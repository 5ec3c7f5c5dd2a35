package game

import (
	"fmt"
	"strconv"

	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/selection"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// Result describes a successfully applied command.
type Result struct {
	Events []rules.Event
	// Requirements is set when a character card was selected.
	Requirements *selection.Requirements
}

// Apply validates cmd for seat and applies it. The command runs on a copy of
// the match that replaces the original only on success, so a rejected
// command leaves no trace. A rejected PLAY_CHARACTER still ends the activation.
func (m *Match) Apply(seat int, cmd protocol.Command) (Result, error) {
	if seat < 0 || seat >= len(m.Players) {
		return Result{}, rules.Violationf(rules.InvalidSelection, "unknown seat %d", seat)
	}
	if err := m.legality.Check(seat, cmd.Kind).Err(); err != nil {
		return Result{}, err
	}

	work := m.Clone()
	res, err := work.dispatch(seat, cmd)
	if err != nil {
		if cmd.Kind == protocol.CommandPlayCharacter {
			m.endActivation()
		}
		return Result{}, fmt.Errorf("%s: %w", cmd.Kind, err)
	}

	m.commit(work)
	return res, nil
}

func (m *Match) dispatch(seat int, cmd protocol.Command) (Result, error) {
	var (
		events []rules.Event
		res    Result
		err    error
	)
	switch cmd.Kind {
	case protocol.CommandPlayAssistant:
		events, err = m.playAssistant(seat, cmd.Priority)
	case protocol.CommandSelectStudent:
		err = m.Selection.SelectStudent(cmd.Slot, len(m.Players[seat].Entrance))
	case protocol.CommandDeselectStudent:
		err = m.Selection.Deselect()
	case protocol.CommandPutInHall:
		events, err = m.putInHall(seat)
	case protocol.CommandPutInIsland:
		events, err = m.putInIsland(seat, cmd.IslandID)
	case protocol.CommandMoveMN:
		events, err = m.moveMotherNature(seat, cmd.Steps)
	case protocol.CommandChooseCloud:
		events, err = m.chooseCloud(seat, cmd.CloudID)
	case protocol.CommandEndTurn:
		events = m.endTurn(seat)
	case protocol.CommandSelectCharacter:
		res.Requirements, events, err = m.selectCharacter(seat, cmd.Character)
	case protocol.CommandSelectEntranceStudents:
		err = m.selectCardEntrance(seat, cmd.Slots)
	case protocol.CommandSelectStudentColors:
		err = m.selectCardColors(cmd)
	case protocol.CommandSelectIslandGroup:
		err = m.selectCardIsland(cmd.IslandID)
	case protocol.CommandSelectStudentsOnCard:
		err = m.selectCardStudents(cmd.Positions)
	case protocol.CommandPlayCharacter:
		events, err = m.playCharacter(seat)
	default:
		err = rules.Violationf(rules.IllegalPhase, "%s is not a match command", cmd.Kind)
	}
	if err != nil {
		return Result{}, err
	}
	for i := range events {
		events[i].MatchID = m.ID
	}
	res.Events = events
	return res, nil
}

// playAssistant commits a planning card. A priority already played by
// someone else this round is refused unless every card left in the hand was.
func (m *Match) playAssistant(seat, priority int) ([]rules.Event, error) {
	p := m.Players[seat]
	if !p.HasAssistant(priority) {
		return nil, rules.Violationf(rules.InvalidSelection, "assistant %d is not in hand", priority)
	}
	if m.Turn.PlayedByOther(seat, priority) && m.hasUnplayedAlternative(seat) {
		return nil, rules.Violationf(rules.InvalidSelection, "assistant %d was already played this round", priority)
	}

	p.TakeAssistant(priority)
	events := []rules.Event{rules.NewEventWithAmount(rules.EventAssistantPlayed, seat, strconv.Itoa(priority), priority)}
	if len(p.Hand) == 0 {
		m.LastRound = true
		events = append(events, rules.NewEvent(rules.EventLastRound, seat, "assistants"))
	}

	if m.Turn.CommitAssistant(priority) {
		m.StudentsMoved = 0
		events = append(events, rules.NewEvent(rules.EventPhaseChanged, -1, rules.PhaseAction.String()))
	}
	events = append(events, rules.NewEvent(rules.EventTurnChanged, m.CurrentSeat(), ""))
	return events, nil
}

func (m *Match) hasUnplayedAlternative(seat int) bool {
	for _, a := range m.Players[seat].Hand {
		if !m.Turn.PlayedByOther(seat, a.Priority) {
			return true
		}
	}
	return false
}

func (m *Match) putInHall(seat int) ([]rules.Event, error) {
	p := m.Players[seat]
	slot, err := m.Selection.TakePending()
	if err != nil {
		return nil, err
	}
	c := p.Entrance[slot]
	if p.Tables.Count(c) >= board.TableCapacity {
		return nil, rules.Violationf(rules.ResourceExhausted, "%s table is full", c)
	}
	p.RemoveEntrance(slot)
	p.Tables.Add(c, 1)

	events := []rules.Event{rules.NewEvent(rules.EventStudentMoved, seat, "hall:"+c.String())}
	events = append(events, m.afterTableGain(seat, c)...)
	return m.countStudentMove(events), nil
}

func (m *Match) putInIsland(seat, islandID int) ([]rules.Event, error) {
	g, ok := m.Islands.Group(islandID)
	if !ok {
		return nil, rules.Violationf(rules.InvalidSelection, "island %d does not exist", islandID)
	}
	slot, err := m.Selection.TakePending()
	if err != nil {
		return nil, err
	}
	c, _ := m.Players[seat].RemoveEntrance(slot)
	g.Students.Add(c, 1)

	events := []rules.Event{rules.NewEvent(rules.EventStudentMoved, seat, fmt.Sprintf("island:%d:%s", islandID, c))}
	return m.countStudentMove(events), nil
}

// countStudentMove advances to mother nature once the quota is met.
func (m *Match) countStudentMove(events []rules.Event) []rules.Event {
	m.StudentsMoved++
	if !m.moreStudentsToMove() {
		m.Turn.AdvanceStep()
	}
	return events
}

func (m *Match) moveMotherNature(seat, steps int) ([]rules.Event, error) {
	p := m.Players[seat]
	limit := p.Played.Movement + m.Effects.MovementBonus
	if steps < 1 || steps > limit {
		return nil, rules.Violationf(rules.InvalidSelection, "mother nature moves 1..%d steps, got %d", limit, steps)
	}

	landed := m.Islands.MoveMotherNature(steps)
	m.Effects.ClearMovement()
	events := []rules.Event{rules.NewEventWithAmount(rules.EventMotherNatureMoved, seat, strconv.Itoa(landed), steps)}

	g, _ := m.Islands.Group(landed)
	if g.NoEntry > 0 {
		g.NoEntry--
		m.returnNoEntry()
		events = append(events, rules.NewEvent(rules.EventNoEntryConsumed, seat, strconv.Itoa(landed)))
	} else {
		events = append(events, m.resolveIsland(seat, landed)...)
	}

	m.Turn.AdvanceStep()
	events = append(events, m.checkInstantEnd()...)
	return events, nil
}

func (m *Match) chooseCloud(seat, cloudID int) ([]rules.Event, error) {
	if cloudID < 0 || cloudID >= len(m.Clouds) {
		return nil, rules.Violationf(rules.InvalidSelection, "cloud %d does not exist", cloudID)
	}
	cloud := &m.Clouds[cloudID]
	if cloud.Taken {
		return nil, rules.Violationf(rules.InvalidSelection, "cloud %d was already taken this round", cloudID)
	}
	p := m.Players[seat]
	if len(p.Entrance)+cloud.Students.Total() > m.Params.EntranceSize {
		return nil, rules.Violationf(rules.ResourceExhausted, "entrance cannot hold %d more students", cloud.Students.Total())
	}

	taken := cloud.Take()
	for _, c := range taken.Colors() {
		p.Entrance = append(p.Entrance, c)
	}
	m.Turn.AdvanceStep()
	return []rules.Event{rules.NewEventWithAmount(rules.EventCloudTaken, seat, strconv.Itoa(cloudID), taken.Total())}, nil
}

// endTurn hands the action phase on, or closes the round: deferred end
// conditions are checked and the next planning phase starts with fresh clouds.
func (m *Match) endTurn(seat int) []rules.Event {
	m.Effects.Reset()
	m.Selection.Reset()
	m.StudentsMoved = 0

	if !m.Turn.EndTurn() {
		return []rules.Event{rules.NewEvent(rules.EventTurnChanged, m.CurrentSeat(), "")}
	}

	if m.LastRound {
		return m.finish(m.rank(m.teams()), "last round completed")
	}

	m.Turn.StartRound()
	m.refillClouds()
	events := []rules.Event{
		rules.NewEventWithAmount(rules.EventRoundStarted, seat, "", m.Turn.Round()),
		rules.NewEvent(rules.EventCloudsRefilled, -1, ""),
		rules.NewEvent(rules.EventPhaseChanged, -1, rules.PhasePlanning.String()),
		rules.NewEvent(rules.EventTurnChanged, m.CurrentSeat(), ""),
	}
	if m.LastRound {
		events = append(events, rules.NewEvent(rules.EventLastRound, -1, "bag"))
	}
	return events
}
