package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eriantys/eriantys-server-go/internal/config"
	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/game/board"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
)

func endedEvent(matchID string, o game.Outcome) rules.Event {
	evt := rules.NewEvent(rules.EventMatchEnded, -1, o.WinnerName())
	evt.MatchID = matchID
	evt.Amount = 4
	evt.Payload = o
	evt.Metadata["reason"] = "no towers left"
	evt.Metadata["players"] = "alice,bob"
	evt.Metadata["expert"] = "true"
	return evt
}

func TestResultFromEvent(t *testing.T) {
	res, ok := ResultFromEvent(endedEvent("m1", game.Outcome{Winner: board.TeamBlack}))
	require.True(t, ok)
	assert.Equal(t, "m1", res.MatchID)
	assert.Equal(t, "BLACK", res.Winner)
	assert.Equal(t, []string{"alice", "bob"}, res.Players)
	assert.True(t, res.Expert)
	assert.Equal(t, 4, res.Rounds)
	assert.Equal(t, "no towers left", res.Reason)
	assert.False(t, res.Draw)

	res, ok = ResultFromEvent(endedEvent("m2", game.Outcome{Draw: true}))
	require.True(t, ok)
	assert.True(t, res.Draw)
	assert.Empty(t, res.Winner)

	res, ok = ResultFromEvent(endedEvent("m3", game.Outcome{Interrupted: true}))
	require.True(t, ok)
	assert.True(t, res.Interrupted)
	assert.Empty(t, res.Winner)

	_, ok = ResultFromEvent(rules.NewEvent(rules.EventTurnChanged, 0, ""))
	assert.False(t, ok)
}

type memoryStore struct {
	mu      sync.Mutex
	results []MatchResult
}

func (s *memoryStore) RecordResult(_ context.Context, res MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func TestRecorderWritesEndedMatches(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store, zaptest.NewLogger(t))
	bus := rules.NewEventBus()
	rec.Attach(bus)

	bus.Publish(rules.NewEvent(rules.EventTurnChanged, 1, ""))
	bus.Publish(endedEvent("m1", game.Outcome{Winner: board.TeamWhite}))
	rec.Close()

	bus.Publish(endedEvent("m2", game.Outcome{Winner: board.TeamWhite}))

	require.Len(t, store.results, 1, "closed recorders stop listening")
	assert.Equal(t, "m1", store.results[0].MatchID)
}

func TestRecorderFollowsEngine(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store, zaptest.NewLogger(t))
	engine := game.NewEngine(zaptest.NewLogger(t), "")
	rec.Attach(engine.Events())

	id, err := engine.Create([]game.Seat{
		{UserID: 1, Nickname: "alice"},
		{UserID: 2, Nickname: "bob"},
	}, game.Options{Seed: [2]uint64{1, 2}})
	require.NoError(t, err)
	require.NoError(t, engine.Disconnect(id, 2, game.EndOnDisconnect))
	rec.Close()

	require.Len(t, store.results, 1)
	res := store.results[0]
	assert.Equal(t, id, res.MatchID)
	assert.True(t, res.Interrupted)
	assert.Equal(t, []string{"alice", "bob"}, res.Players)
	assert.False(t, res.Expert)
}

func newTestRepository(t *testing.T) *MatchRepository {
	t.Helper()
	url := os.Getenv("ERIANTYS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ERIANTYS_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewMatchRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func TestMatchRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	res := MatchResult{
		MatchID: uuid.NewString(),
		Players: []string{"alice", "bob", "carol"},
		Expert:  true,
		Winner:  "GREY",
		Reason:  "three island groups left",
		Rounds:  7,
		EndedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.RecordResult(ctx, res))

	dup := res
	dup.Winner = "WHITE"
	require.NoError(t, repo.RecordResult(ctx, dup), "a second write is ignored")

	got, err := repo.GetResult(ctx, res.MatchID)
	require.NoError(t, err)
	assert.Equal(t, res.Winner, got.Winner)
	assert.Equal(t, res.Players, got.Players)
	assert.True(t, res.EndedAt.Equal(got.EndedAt))

	recent, err := repo.RecentResults(ctx, 50)
	require.NoError(t, err)
	found := false
	for _, r := range recent {
		if r.MatchID == res.MatchID {
			found = true
		}
	}
	assert.True(t, found)

	_, err = repo.GetResult(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}
