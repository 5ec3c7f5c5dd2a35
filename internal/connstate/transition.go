package connstate

import "github.com/eriantys/eriantys-server-go/internal/protocol"

// Input is everything a transition may depend on.
type Input struct {
	State State
	// Callback is the state to resume once a character card activation ends.
	Callback State
	Me       int
	// Seen is the highest status sequence observed so far.
	Seen int64
	// Latest is the newest status delivered by a push, if any.
	Latest *protocol.Status

	// Exactly one of Reply or Push is set. Sent names the command a reply answers.
	Sent  protocol.CommandKind
	Reply *protocol.Reply
	Push  *protocol.Push
}

// Output is the result of a transition.
type Output struct {
	State    State
	Callback State
	Seen     int64
	Latest   *protocol.Status
}

// Next computes the state that follows a reply or push. It never looks at
// anything but its input, so the server can replay it to check agreement.
func Next(in Input) Output {
	out := Output{State: in.State, Callback: in.Callback, Seen: in.Seen, Latest: in.Latest}
	switch {
	case in.Reply != nil:
		out = onReply(in, out)
		if st := in.Reply.Status; st != nil && st.Seq > out.Seen {
			out.Seen = st.Seq
		}
	case in.Push != nil:
		out = onPush(in, out)
	}
	return out
}

func onReply(in Input, out Output) Output {
	r := in.Reply
	if !r.OK() {
		// A failed activation still ends it.
		if in.Sent == protocol.CommandPlayCharacter && in.State == CharacterCardActivation {
			out.State = in.Callback
		}
		return out
	}

	switch in.Sent {
	case protocol.CommandStartGame, protocol.CommandPlayAssistant, protocol.CommandEndTurn:
		out.State = fromStatus(r.Status, in.Latest, in.Me)
	case protocol.CommandSelectStudent:
		out.State = StudentMoving
	case protocol.CommandDeselectStudent:
		out.State = StudentChoosing
	case protocol.CommandPutInHall, protocol.CommandPutInIsland:
		if overIn(r.Status) {
			out.State = GameOver
		} else if r.MoreStudentsToMove() {
			out.State = StudentChoosing
		} else {
			out.State = MNMoving
		}
	case protocol.CommandMoveMN:
		if overIn(r.Status) {
			out.State = GameOver
		} else {
			out.State = CloudChoosing
		}
	case protocol.CommandChooseCloud:
		out.State = EndTurn
	case protocol.CommandSelectCharacter:
		out.Callback = in.State
		out.State = CharacterCardActivation
	case protocol.CommandPlayCharacter:
		if overIn(r.Status) {
			out.State = GameOver
		} else {
			out.State = in.Callback
		}
	}
	return out
}

func onPush(in Input, out Output) Output {
	p := in.Push
	st := p.Status
	fresh := st != nil && st.Seq > in.Seen
	if fresh {
		out.Seen = st.Seq
		out.Latest = st
	}

	switch p.Kind {
	case protocol.PushMatchEnded:
		out.State = GameOver
	case protocol.PushPlayerDisconnected:
		if overIn(st) {
			out.State = GameOver
		}
	case protocol.PushMatchResumed:
		if s, err := Parse(p.State); err == nil && p.UserID == in.Me {
			out.State = s
		}
	case protocol.PushGameStarted, protocol.PushTurnChanged:
		if !fresh {
			return out
		}
		if in.State == Lobby || in.State == WaitingForControl {
			out.State = fromStatus(st, nil, in.Me)
		}
	}
	return out
}

// fromStatus maps a turn summary to the state of the receiving user. A newer
// pushed status wins over the one attached to a reply.
func fromStatus(st, latest *protocol.Status, me int) State {
	if latest != nil && (st == nil || latest.Seq > st.Seq) {
		st = latest
	}
	switch {
	case st == nil:
		return WaitingForControl
	case st.Over:
		return GameOver
	case !st.Started:
		return Lobby
	case st.CurrentUser != me:
		return WaitingForControl
	case st.Phase == protocol.PhasePlanning:
		return PlanningTurn
	default:
		return StudentChoosing
	}
}

func overIn(st *protocol.Status) bool {
	return st != nil && st.Over
}
