package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/eriantys/eriantys-server-go/internal/game/students"
)

// CommandKind names a client command.
type CommandKind string

const (
	// Pre-match setup
	CommandJoinLobby    CommandKind = "JOIN_LOBBY"
	CommandLeaveLobby   CommandKind = "LEAVE_LOBBY"
	CommandSelectTeam   CommandKind = "SELECT_TEAM"
	CommandSelectWizard CommandKind = "SELECT_WIZARD"
	CommandReady        CommandKind = "READY"
	CommandNotReady     CommandKind = "NOT_READY"
	CommandStartGame    CommandKind = "START_GAME"

	// Planning phase
	CommandPlayAssistant CommandKind = "PLAY_ASSISTANT"

	// Action phase
	CommandSelectStudent   CommandKind = "SELECT_STUDENT"
	CommandDeselectStudent CommandKind = "DESELECT_STUDENT"
	CommandPutInHall       CommandKind = "PUT_IN_HALL"
	CommandPutInIsland     CommandKind = "PUT_IN_ISLAND"
	CommandMoveMN          CommandKind = "MOVE_MN"
	CommandChooseCloud     CommandKind = "CHOOSE_CLOUD"
	CommandEndTurn         CommandKind = "END_TURN"

	// Character cards
	CommandSelectCharacter        CommandKind = "SELECT_CHARACTER"
	CommandSelectEntranceStudents CommandKind = "SELECT_ENTRANCE_STUDENTS"
	CommandSelectStudentColors    CommandKind = "SELECT_STUDENT_COLORS"
	CommandSelectIslandGroup      CommandKind = "SELECT_ISLAND_GROUP"
	CommandSelectStudentsOnCard   CommandKind = "SELECT_STUDENTS_ON_CARD"
	CommandPlayCharacter          CommandKind = "PLAY_CHARACTER"
)

// IsLobbyCommand reports whether the command is handled by pre-match setup
// rather than by a running match.
func (k CommandKind) IsLobbyCommand() bool {
	switch k {
	case CommandJoinLobby, CommandLeaveLobby, CommandSelectTeam, CommandSelectWizard,
		CommandReady, CommandNotReady, CommandStartGame:
		return true
	}
	return false
}

// Command is a request sent by a client on the command channel.
type Command struct {
	Kind      CommandKind `json:"command"`
	RequestID int64       `json:"requestId"`
	UserID    int         `json:"userId"`

	GameRule  string           `json:"gameRule,omitempty"`
	Team      string           `json:"team,omitempty"`
	Wizard    string           `json:"wizard,omitempty"`
	Priority  int              `json:"priority,omitempty"`
	Slot      int              `json:"slot,omitempty"`
	IslandID  int              `json:"islandId,omitempty"`
	Steps     int              `json:"steps,omitempty"`
	CloudID   int              `json:"cloudId,omitempty"`
	Character int              `json:"character,omitempty"`
	Slots     []int            `json:"slots,omitempty"`
	Colors    []students.Color `json:"colors,omitempty"`
	Positions []int            `json:"positions,omitempty"`
}

// Result is the outcome carried by a reply.
type Result string

const (
	ResultOK  Result = "OK"
	ResultErr Result = "ERR"
)

// Phase values carried in a Status.
const (
	PhasePlanning = "PLANNING"
	PhaseAction   = "ACTION"
)

// Status summarizes whose turn it is. Seq increases every time the current
// player or the phase changes, so receivers can discard stale statuses.
type Status struct {
	MatchID            string `json:"matchId,omitempty"`
	Seq                int64  `json:"seq"`
	Started            bool   `json:"started"`
	Phase              string `json:"phase,omitempty"`
	Subphase           string `json:"subphase,omitempty"`
	Round              int    `json:"round,omitempty"`
	CurrentUser        int    `json:"currentUser,omitempty"`
	MoreStudentsToMove bool   `json:"moreStudentsToMove,omitempty"`
	Over               bool   `json:"over,omitempty"`
	Winner             string `json:"winner,omitempty"`
	Reason             string `json:"reason,omitempty"`
	Suspended          bool   `json:"suspended,omitempty"`
}

// Bounds is an inclusive count range.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Requirements describes what a character card needs selected before it can be played.
type Requirements struct {
	Entrance Bounds `json:"entrance"`
	Colors   Bounds `json:"colors"`
	Islands  Bounds `json:"islands"`
	OnCard   Bounds `json:"onCard"`
}

// Reply answers exactly one Command.
type Reply struct {
	RequestID    int64         `json:"requestId"`
	Result       Result        `json:"result"`
	ErrorKind    string        `json:"errorKind,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Status       *Status       `json:"status,omitempty"`
	Requirements *Requirements `json:"requirements,omitempty"`
	LobbyID      string        `json:"lobbyId,omitempty"`
}

// OK reports whether the command succeeded.
func (r Reply) OK() bool {
	return r.Result == ResultOK
}

// MoreStudentsToMove reports whether the acting player still owes student moves.
func (r Reply) MoreStudentsToMove() bool {
	return r.Status != nil && r.Status.MoreStudentsToMove
}

// PushKind names an asynchronous server notification.
type PushKind string

const (
	PushGameStarted        PushKind = "GAME_STARTED"
	PushBoardUpdated       PushKind = "BOARD_UPDATED"
	PushTurnChanged        PushKind = "TURN_CHANGED"
	PushMatchEnded         PushKind = "MATCH_ENDED"
	PushPlayerDisconnected PushKind = "PLAYER_DISCONNECTED"
	PushMatchResumed       PushKind = "MATCH_RESUMED"
	PushLobbyUpdated       PushKind = "LOBBY_UPDATED"
	// PushConnected is the first frame on every event connection.
	PushConnected PushKind = "CONNECTED"
)

// Push is a server-initiated message on the event channel.
type Push struct {
	Kind     PushKind        `json:"kind"`
	Status   *Status         `json:"status,omitempty"`
	View     json.RawMessage `json:"view,omitempty"`
	Checksum string          `json:"checksum,omitempty"`
	UserID   int             `json:"userId,omitempty"`
	// State is the receiver's connection state, set only on MATCH_RESUMED.
	State string `json:"state,omitempty"`
	// Lobby is set on LOBBY_UPDATED.
	Lobby json.RawMessage `json:"lobby,omitempty"`
}

// Heartbeat is the liveness probe exchanged on the heartbeat channel.
type Heartbeat struct {
	Sequence int64 `json:"sequence"`
}

// LoginRequest registers a nickname.
type LoginRequest struct {
	Nickname string `json:"nickname"`
}

// LoginResponse carries the user id to present on every channel.
type LoginResponse struct {
	UserID int    `json:"userId"`
	Error  string `json:"error,omitempty"`
}

// DecodeCommand parses a command frame.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if cmd.Kind == "" {
		return Command{}, fmt.Errorf("decode command: missing command kind")
	}
	return cmd, nil
}
