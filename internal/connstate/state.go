// Package connstate holds the per-connection state machine that both the
// server and the client use to decide which commands may be sent next.
package connstate

import (
	"fmt"

	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// State is a named connection state.
type State int

const (
	Lobby State = iota
	WaitingForControl
	PlanningTurn
	StudentChoosing
	StudentMoving
	MNMoving
	CloudChoosing
	EndTurn
	CharacterCardActivation
	GameOver
)

var stateNames = map[State]string{
	Lobby:                   "LOBBY",
	WaitingForControl:       "WAITING_FOR_CONTROL",
	PlanningTurn:            "PLANNING_TURN",
	StudentChoosing:         "STUDENT_CHOOSING",
	StudentMoving:           "STUDENT_MOVING",
	MNMoving:                "MN_MOVING",
	CloudChoosing:           "CLOUD_CHOOSING",
	EndTurn:                 "END_TURN",
	CharacterCardActivation: "CHARACTER_CARD_ACTIVATION",
	GameOver:                "GAME_OVER",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE_%d", int(s))
}

// Parse converts a state name back to a State.
func Parse(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown connection state %q", name)
}

var allowed = map[State][]protocol.CommandKind{
	Lobby: {
		protocol.CommandJoinLobby,
		protocol.CommandLeaveLobby,
		protocol.CommandSelectTeam,
		protocol.CommandSelectWizard,
		protocol.CommandReady,
		protocol.CommandNotReady,
		protocol.CommandStartGame,
	},
	PlanningTurn: {
		protocol.CommandPlayAssistant,
	},
	StudentChoosing: {
		protocol.CommandSelectStudent,
		protocol.CommandSelectCharacter,
	},
	StudentMoving: {
		protocol.CommandPutInHall,
		protocol.CommandPutInIsland,
		protocol.CommandDeselectStudent,
	},
	MNMoving: {
		protocol.CommandMoveMN,
		protocol.CommandSelectCharacter,
	},
	CloudChoosing: {
		protocol.CommandChooseCloud,
		protocol.CommandSelectCharacter,
	},
	EndTurn: {
		protocol.CommandEndTurn,
		protocol.CommandSelectCharacter,
	},
	CharacterCardActivation: {
		protocol.CommandSelectEntranceStudents,
		protocol.CommandSelectStudentColors,
		protocol.CommandSelectIslandGroup,
		protocol.CommandSelectStudentsOnCard,
		protocol.CommandPlayCharacter,
	},
}

// Allows reports whether cmd may be sent while in state s.
func (s State) Allows(cmd protocol.CommandKind) bool {
	for _, k := range allowed[s] {
		if k == cmd {
			return true
		}
	}
	return false
}

// AllowedCommands returns the commands legal in state s.
func (s State) AllowedCommands() []protocol.CommandKind {
	out := make([]protocol.CommandKind, len(allowed[s]))
	copy(out, allowed[s])
	return out
}
