package game

import (
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// Status summarizes whose turn it is and where the match stands.
func (m *Match) Status() protocol.Status {
	st := protocol.Status{
		MatchID:            m.ID,
		Seq:                m.Turn.Seq(),
		Started:            true,
		Phase:              protocol.PhasePlanning,
		Round:              m.Turn.Round(),
		CurrentUser:        m.Players[m.CurrentSeat()].UserID,
		MoreStudentsToMove: m.moreStudentsToMove(),
		Over:               m.Over(),
		Suspended:          m.suspended,
	}
	if m.Turn.CurrentPhase() == rules.PhaseAction {
		st.Phase = protocol.PhaseAction
		st.Subphase = m.Turn.CurrentStep().String()
	}
	if m.Outcome != nil {
		st.Winner = m.Outcome.WinnerName()
		st.Reason = m.Outcome.Reason
	}
	return st
}

// WinnerName returns the winning team, DRAW or empty for an interrupted match.
func (o Outcome) WinnerName() string {
	switch {
	case o.Interrupted:
		return ""
	case o.Draw:
		return "DRAW"
	}
	return o.Winner.String()
}

// Interrupt ends the match without a winner.
func (m *Match) Interrupt(reason string) []rules.Event {
	if m.Over() {
		return nil
	}
	events := m.finish(Outcome{Interrupted: true}, reason)
	for i := range events {
		events[i].MatchID = m.ID
		events[i].Target = ""
	}
	return events
}

// Suspend pauses the match until Resume. Half-made choices of the current
// player are dropped.
func (m *Match) Suspend() {
	if m.Over() || m.suspended {
		return
	}
	m.suspended = true
	m.endActivation()
	m.Turn.Bump()
}

// Resume lifts a suspension.
func (m *Match) Resume() bool {
	if !m.suspended {
		return false
	}
	m.suspended = false
	m.Turn.Bump()
	return true
}
