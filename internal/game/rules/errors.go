package rules

import (
	"errors"
	"fmt"
)

// ViolationKind classifies why a command was rejected.
type ViolationKind string

const (
	InvalidSelection  ViolationKind = "INVALID_SELECTION"
	IllegalPhase      ViolationKind = "ILLEGAL_PHASE"
	ResourceExhausted ViolationKind = "RESOURCE_EXHAUSTED"
	NotYourTurn       ViolationKind = "NOT_YOUR_TURN"
	TransportFailure  ViolationKind = "TRANSPORT_FAILURE"
	UnknownMatch      ViolationKind = "UNKNOWN_MATCH"
)

// Violation is a rule failure reported back to the acting player.
// It never ends the match.
type Violation struct {
	Kind    ViolationKind
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Message)
}

// Violationf builds a violation with a formatted message.
func Violationf(kind ViolationKind, format string, args ...any) error {
	return &Violation{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsViolation extracts the violation wrapped in err, if any.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// KindOf returns the violation kind of err, or "" when err is not a violation.
func KindOf(err error) ViolationKind {
	if v, ok := AsViolation(err); ok {
		return v.Kind
	}
	return ""
}
