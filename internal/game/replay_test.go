package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eriantys/eriantys-server-go/internal/game/rules"
	"github.com/eriantys/eriantys-server-go/internal/game/students"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

// recordedReplay plays a short opening and records every command, rejected ones included.
func recordedReplay(t *testing.T) (*Replay, *Match) {
	t.Helper()
	setup := Setup{MatchID: "replay-test", Seats: testSeats(2), Options: Options{Expert: true, Seed: [2]uint64{11, 12}}}
	m, err := NewMatch(setup.MatchID, setup.Seats, setup.Options)
	require.NoError(t, err)

	replay := NewReplay(setup)
	steps := []struct {
		seat int
		cmd  protocol.Command
	}{
		{0, playAssistant(4)},
		{0, playAssistant(5)},
		{1, playAssistant(4)},
		{1, playAssistant(6)},
		{0, cmd(protocol.CommandSelectStudent)},
		{0, cmd(protocol.CommandPutInHall)},
	}
	for _, s := range steps {
		_, err := m.Apply(s.seat, s.cmd)
		entry := ReplayEntry{Seat: s.seat, Command: s.cmd, OK: err == nil, Checksum: m.Checksum(), Timestamp: time.Now()}
		if err != nil {
			entry.Error = err.Error()
		}
		replay.Record(entry)
	}
	return replay, m
}

func TestReplayNavigation(t *testing.T) {
	replay, _ := recordedReplay(t)
	require.Equal(t, 6, replay.Size())

	_, ok := replay.Previous()
	assert.False(t, ok)

	first, ok := replay.Next()
	require.True(t, ok)
	assert.Equal(t, 4, first.Command.Priority)
	second, _ := replay.Next()
	assert.False(t, second.OK, "seat 0 already played")

	back, ok := replay.Previous()
	require.True(t, ok)
	assert.Equal(t, second, back)

	for range 5 {
		_, ok = replay.Next()
		require.True(t, ok)
	}
	_, ok = replay.Next()
	assert.False(t, ok)

	replay.Start()
	again, _ := replay.Next()
	assert.Equal(t, first, again)
}

func TestReplayVerify(t *testing.T) {
	replay, m := recordedReplay(t)
	assert.NoError(t, replay.Verify())

	rebuilt, err := replay.MatchAt(replay.Size())
	require.NoError(t, err)
	assert.Equal(t, m.Checksum(), rebuilt.Checksum())

	opening, err := replay.MatchAt(0)
	require.NoError(t, err)
	assert.Equal(t, 1, opening.Turn.Round())
	_, err = replay.MatchAt(replay.Size() + 1)
	assert.Error(t, err)

	replay.Entries[3].Checksum = "tampered"
	assert.Error(t, replay.Verify())
}

func TestReplaySaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	replay, m := recordedReplay(t)
	require.NoError(t, replay.SaveToFile(dir))

	loaded, err := LoadReplayFromFile(dir, replay.Setup.MatchID)
	require.NoError(t, err)
	assert.Equal(t, replay.Setup, loaded.Setup)
	require.Equal(t, replay.Size(), loaded.Size())
	assert.NoError(t, loaded.Verify())

	rebuilt, err := loaded.MatchAt(loaded.Size())
	require.NoError(t, err)
	assert.Equal(t, m.Checksum(), rebuilt.Checksum())

	_, err = LoadReplayFromFile(dir, "missing")
	assert.Error(t, err)
}

func TestReplayRecorder(t *testing.T) {
	dir := t.TempDir()
	rr := NewReplayRecorder(zaptest.NewLogger(t), dir)
	replay, _ := recordedReplay(t)

	rr.StartRecording(replay.Setup)
	for _, e := range replay.Entries {
		rr.Record(replay.Setup.MatchID, e)
	}
	rr.Record("unknown", replay.Entries[0])

	live, ok := rr.GetReplay(replay.Setup.MatchID)
	require.True(t, ok)
	assert.Equal(t, replay.Size(), live.Size())

	require.NoError(t, rr.Finish(replay.Setup.MatchID))
	_, ok = rr.GetReplay(replay.Setup.MatchID)
	assert.False(t, ok)
	assert.Error(t, rr.Finish(replay.Setup.MatchID))

	stored, err := rr.LoadReplay(replay.Setup.MatchID)
	require.NoError(t, err)
	assert.NoError(t, stored.Verify())

	memory := NewReplayRecorder(zaptest.NewLogger(t), "")
	_, err = memory.LoadReplay("any")
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	a := newTestMatch(t, 3, true)
	b := newTestMatch(t, 3, true)
	assert.Equal(t, a.Checksum(), b.Checksum(), "same seed, same match")
	assert.True(t, a.VerifyChecksum(b.Checksum()))

	clone := a.Clone()
	clone.Players[2].Tables.Add(students.Blue, 1)
	assert.NotEqual(t, a.Checksum(), clone.Checksum())
	assert.False(t, a.VerifyChecksum(clone.Checksum()))

	other, err := NewMatch("match-test", testSeats(3), Options{Expert: true, Seed: [2]uint64{2, 1}})
	require.NoError(t, err)
	assert.NotEqual(t, a.Checksum(), other.Checksum())
}

func TestReplayFollowsSuspension(t *testing.T) {
	e, _ := newTestEngine(t, "")
	id, err := e.Create(testSeats(2), Options{Seed: [2]uint64{5, 6}})
	require.NoError(t, err)

	require.NoError(t, e.Disconnect(id, 101, SuspendOnDisconnect))
	_, _, err = e.Process(id, 100, playAssistant(1))
	assert.Equal(t, rules.IllegalPhase, rules.KindOf(err), "suspended")
	require.NoError(t, e.Resume(id, 101))

	steps := []struct {
		user int
		cmd  protocol.Command
	}{
		{100, playAssistant(1)},
		{101, playAssistant(2)},
		{100, cmd(protocol.CommandSelectStudent)},
	}
	for _, s := range steps {
		_, _, err := e.Process(id, s.user, s.cmd)
		require.NoError(t, err)
	}

	// a pending selection is dropped by the second suspension
	require.NoError(t, e.Disconnect(id, 100, SuspendOnDisconnect))
	require.NoError(t, e.Resume(id, 100))
	_, _, err = e.Process(id, 100, cmd(protocol.CommandPutInHall))
	assert.Error(t, err, "nothing is selected any more")

	replay, err := e.Replay(id)
	require.NoError(t, err)
	require.Equal(t, 9, replay.Size())
	assert.NoError(t, replay.Verify())

	kinds := make([]Lifecycle, 0, replay.Size())
	for _, entry := range replay.Entries {
		kinds = append(kinds, entry.Lifecycle)
	}
	assert.Equal(t, []Lifecycle{LifecycleSuspend, "", LifecycleResume, "", "", "", LifecycleSuspend, LifecycleResume, ""}, kinds)

	paused, err := replay.MatchAt(2)
	require.NoError(t, err)
	assert.True(t, paused.Suspended())

	rebuilt, err := replay.MatchAt(replay.Size())
	require.NoError(t, err)
	_, checksum, err := e.View(id)
	require.NoError(t, err)
	assert.Equal(t, checksum, rebuilt.Checksum())
	assert.False(t, rebuilt.Suspended())
}

func TestReplayRecordsInterruption(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())
	id, err := e.Create(testSeats(2), Options{Seed: [2]uint64{5, 6}})
	require.NoError(t, err)
	_, _, err = e.Process(id, 100, playAssistant(3))
	require.NoError(t, err)
	require.NoError(t, e.Disconnect(id, 101, EndOnDisconnect))

	replay, err := e.Replay(id)
	require.NoError(t, err, "finished replays are read back from disk")
	require.Equal(t, 2, replay.Size())
	last := replay.Entries[1]
	assert.Equal(t, LifecycleInterrupt, last.Lifecycle)
	assert.Equal(t, "b disconnected", last.Reason)
	assert.NoError(t, replay.Verify())

	rebuilt, err := replay.MatchAt(replay.Size())
	require.NoError(t, err)
	require.True(t, rebuilt.Over())
	assert.True(t, rebuilt.Outcome.Interrupted)
}
