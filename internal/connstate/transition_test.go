package connstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

const me = 7

func okReply(st *protocol.Status) *protocol.Reply {
	return &protocol.Reply{Result: protocol.ResultOK, Status: st}
}

func errReply() *protocol.Reply {
	return &protocol.Reply{Result: protocol.ResultErr, ErrorKind: "INVALID_SELECTION"}
}

func TestAllowedCommands(t *testing.T) {
	assert.True(t, PlanningTurn.Allows(protocol.CommandPlayAssistant))
	assert.False(t, PlanningTurn.Allows(protocol.CommandSelectStudent))
	assert.True(t, StudentMoving.Allows(protocol.CommandDeselectStudent))
	assert.False(t, StudentMoving.Allows(protocol.CommandSelectCharacter))
	assert.True(t, CharacterCardActivation.Allows(protocol.CommandPlayCharacter))
	assert.Empty(t, WaitingForControl.AllowedCommands())
	assert.Empty(t, GameOver.AllowedCommands())
}

func TestReplyTransitions(t *testing.T) {
	action := &protocol.Status{Seq: 3, Started: true, Phase: protocol.PhaseAction, CurrentUser: me}
	other := &protocol.Status{Seq: 3, Started: true, Phase: protocol.PhaseAction, CurrentUser: 1}
	more := &protocol.Status{Seq: 3, Started: true, Phase: protocol.PhaseAction, CurrentUser: me, MoreStudentsToMove: true}

	tests := []struct {
		name  string
		from  State
		sent  protocol.CommandKind
		reply *protocol.Reply
		want  State
	}{
		{"assistant hands control away", PlanningTurn, protocol.CommandPlayAssistant, okReply(other), WaitingForControl},
		{"last planner acts first", PlanningTurn, protocol.CommandPlayAssistant, okReply(action), StudentChoosing},
		{"select student", StudentChoosing, protocol.CommandSelectStudent, okReply(more), StudentMoving},
		{"deselect student", StudentMoving, protocol.CommandDeselectStudent, okReply(more), StudentChoosing},
		{"more students to move", StudentMoving, protocol.CommandPutInHall, okReply(more), StudentChoosing},
		{"quota reached", StudentMoving, protocol.CommandPutInIsland, okReply(action), MNMoving},
		{"move mother nature", MNMoving, protocol.CommandMoveMN, okReply(action), CloudChoosing},
		{"choose cloud", CloudChoosing, protocol.CommandChooseCloud, okReply(action), EndTurn},
		{"end turn", EndTurn, protocol.CommandEndTurn, okReply(other), WaitingForControl},
		{"rejected command keeps state", StudentMoving, protocol.CommandPutInHall, errReply(), StudentMoving},
		{"lobby command stays in lobby", Lobby, protocol.CommandReady, okReply(nil), Lobby},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Next(Input{State: tt.from, Me: me, Sent: tt.sent, Reply: tt.reply})
			assert.Equal(t, tt.want, out.State)
		})
	}
}

func TestMoveMotherNatureEndingMatch(t *testing.T) {
	over := &protocol.Status{Seq: 9, Started: true, Over: true, Winner: "WHITE"}
	out := Next(Input{State: MNMoving, Me: me, Sent: protocol.CommandMoveMN, Reply: okReply(over)})
	assert.Equal(t, GameOver, out.State)
}

func TestCharacterActivationRestoresCallback(t *testing.T) {
	st := &protocol.Status{Seq: 4, Started: true, Phase: protocol.PhaseAction, CurrentUser: me}

	for _, result := range []*protocol.Reply{okReply(st), errReply()} {
		out := Next(Input{State: MNMoving, Me: me, Sent: protocol.CommandSelectCharacter, Reply: okReply(st)})
		assert.Equal(t, CharacterCardActivation, out.State)
		assert.Equal(t, MNMoving, out.Callback)

		out = Next(Input{State: out.State, Callback: out.Callback, Me: me, Sent: protocol.CommandSelectIslandGroup, Reply: okReply(st)})
		assert.Equal(t, CharacterCardActivation, out.State)

		out = Next(Input{State: out.State, Callback: out.Callback, Me: me, Sent: protocol.CommandPlayCharacter, Reply: result})
		assert.Equal(t, MNMoving, out.State)
	}
}

func TestTurnPushOnlyAppliesWhenFresh(t *testing.T) {
	mine := &protocol.Status{Seq: 5, Started: true, Phase: protocol.PhasePlanning, CurrentUser: me}

	out := Next(Input{State: WaitingForControl, Me: me, Seen: 6, Push: &protocol.Push{Kind: protocol.PushTurnChanged, Status: mine}})
	assert.Equal(t, WaitingForControl, out.State, "stale push ignored")

	out = Next(Input{State: WaitingForControl, Me: me, Seen: 4, Push: &protocol.Push{Kind: protocol.PushTurnChanged, Status: mine}})
	assert.Equal(t, PlanningTurn, out.State)
	assert.Equal(t, int64(5), out.Seen)
}

func TestPushBeforeReplyIsNotLost(t *testing.T) {
	m := NewMirror(me)
	m.state = EndTurn

	// The next round reaches this player before the END_TURN reply arrives.
	m.OnPush(protocol.Push{Kind: protocol.PushTurnChanged, Status: &protocol.Status{Seq: 12, Started: true, Phase: protocol.PhasePlanning, CurrentUser: me}})
	assert.Equal(t, EndTurn, m.State())

	m.OnReply(protocol.CommandEndTurn, protocol.Reply{Result: protocol.ResultOK, Status: &protocol.Status{Seq: 10, Started: true, Phase: protocol.PhaseAction, CurrentUser: 1}})
	assert.Equal(t, PlanningTurn, m.State())
}

func TestMatchEndedAndResumedPushes(t *testing.T) {
	out := Next(Input{State: CloudChoosing, Me: me, Push: &protocol.Push{Kind: protocol.PushMatchEnded}})
	assert.Equal(t, GameOver, out.State)

	out = Next(Input{State: Lobby, Me: me, Push: &protocol.Push{Kind: protocol.PushMatchResumed, UserID: me, State: MNMoving.String()}})
	assert.Equal(t, MNMoving, out.State)
}
