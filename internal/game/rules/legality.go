package rules

import (
	"fmt"

	"github.com/eriantys/eriantys-server-go/internal/connstate"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// LegalityChecker decides whether a command may be attempted by a seat before
// any handler runs. It uses the same connection-state table the client
// mirrors, so both sides reject the same commands.
type LegalityChecker struct {
	match MatchStateAccessor
}

// MatchStateAccessor provides the match state needed for legality checks.
type MatchStateAccessor interface {
	// Over reports whether the match has ended
	Over() bool
	// Suspended reports whether the match waits for a reconnection
	Suspended() bool
	// CurrentSeat returns the seat whose turn it is
	CurrentSeat() int
	// ConnectionState derives the connection state of a seat
	ConnectionState(seat int) connstate.State
}

// LegalityResult represents the result of a legality check.
type LegalityResult struct {
	Legal   bool
	Kind    ViolationKind
	Reason  string
	Details map[string]string
}

// Err converts an illegal result to a Violation.
func (r LegalityResult) Err() error {
	if r.Legal {
		return nil
	}
	return &Violation{Kind: r.Kind, Message: r.Reason}
}

// NewLegalityChecker creates a new legality checker.
func NewLegalityChecker(match MatchStateAccessor) *LegalityChecker {
	return &LegalityChecker{match: match}
}

// Check validates that seat may send cmd right now.
func (lc *LegalityChecker) Check(seat int, cmd protocol.CommandKind) LegalityResult {
	if lc.match.Over() {
		return LegalityResult{Kind: IllegalPhase, Reason: "match is over"}
	}
	if lc.match.Suspended() {
		return LegalityResult{Kind: IllegalPhase, Reason: "match is suspended"}
	}

	state := lc.match.ConnectionState(seat)
	if state.Allows(cmd) {
		return LegalityResult{Legal: true}
	}

	details := map[string]string{
		"state":   state.String(),
		"command": string(cmd),
	}
	if current := lc.match.CurrentSeat(); current != seat {
		return LegalityResult{
			Kind:    NotYourTurn,
			Reason:  fmt.Sprintf("seat %d cannot act during seat %d's turn", seat, current),
			Details: details,
		}
	}
	return LegalityResult{
		Kind:    IllegalPhase,
		Reason:  fmt.Sprintf("%s is not allowed in state %s", cmd, state),
		Details: details,
	}
}
