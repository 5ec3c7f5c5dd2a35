package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/game"
	"github.com/eriantys/eriantys-server-go/internal/game/rules"
)

// MatchResult is one finished match.
type MatchResult struct {
	MatchID     string
	Players     []string
	Expert      bool
	Winner      string
	Draw        bool
	Interrupted bool
	Reason      string
	Rounds      int
	EndedAt     time.Time
}

// ErrNotFound is returned when a match has no stored result.
var ErrNotFound = errors.New("match result not found")

const schema = `
CREATE TABLE IF NOT EXISTS match_results (
	match_id    TEXT PRIMARY KEY,
	players     TEXT[] NOT NULL,
	expert      BOOLEAN NOT NULL,
	winner      TEXT NOT NULL DEFAULT '',
	draw        BOOLEAN NOT NULL DEFAULT FALSE,
	interrupted BOOLEAN NOT NULL DEFAULT FALSE,
	reason      TEXT NOT NULL DEFAULT '',
	rounds      INTEGER NOT NULL DEFAULT 0,
	ended_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS match_results_ended_at_idx ON match_results (ended_at DESC);
`

// MatchRepository stores match results.
type MatchRepository struct {
	db *DB
}

// NewMatchRepository creates a repository on db.
func NewMatchRepository(db *DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Migrate creates the results table when missing.
func (r *MatchRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate match_results: %w", err)
	}
	return nil
}

// RecordResult stores a result. Recording the same match twice keeps the first.
func (r *MatchRepository) RecordResult(ctx context.Context, res MatchResult) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO match_results (match_id, players, expert, winner, draw, interrupted, reason, rounds, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (match_id) DO NOTHING`,
		res.MatchID, res.Players, res.Expert, res.Winner, res.Draw, res.Interrupted, res.Reason, res.Rounds, res.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record result of match %s: %w", res.MatchID, err)
	}
	return nil
}

// GetResult loads the result of one match.
func (r *MatchRepository) GetResult(ctx context.Context, matchID string) (MatchResult, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT match_id, players, expert, winner, draw, interrupted, reason, rounds, ended_at
		FROM match_results WHERE match_id = $1`, matchID)

	res, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MatchResult{}, ErrNotFound
	}
	if err != nil {
		return MatchResult{}, fmt.Errorf("failed to load result of match %s: %w", matchID, err)
	}
	return res, nil
}

// RecentResults returns up to limit results, newest first.
func (r *MatchRepository) RecentResults(ctx context.Context, limit int) ([]MatchResult, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT match_id, players, expert, winner, draw, interrupted, reason, rounds, ended_at
		FROM match_results ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results: %w", err)
	}
	defer rows.Close()

	var out []MatchResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanResult(row pgx.Row) (MatchResult, error) {
	var res MatchResult
	err := row.Scan(&res.MatchID, &res.Players, &res.Expert, &res.Winner, &res.Draw,
		&res.Interrupted, &res.Reason, &res.Rounds, &res.EndedAt)
	return res, err
}

// ResultStore is where a Recorder writes.
type ResultStore interface {
	RecordResult(ctx context.Context, res MatchResult) error
}

// ResultFromEvent builds a result from a MATCH_ENDED event.
func ResultFromEvent(evt rules.Event) (MatchResult, bool) {
	if evt.Type != rules.EventMatchEnded || evt.MatchID == "" {
		return MatchResult{}, false
	}
	res := MatchResult{
		MatchID: evt.MatchID,
		Reason:  evt.Metadata["reason"],
		Rounds:  evt.Amount,
		EndedAt: evt.Timestamp,
	}
	if names := evt.Metadata["players"]; names != "" {
		res.Players = strings.Split(names, ",")
	}
	res.Expert, _ = strconv.ParseBool(evt.Metadata["expert"])

	if o, ok := evt.Payload.(game.Outcome); ok {
		res.Draw = o.Draw
		res.Interrupted = o.Interrupted
		res.Winner = o.WinnerName()
	} else {
		res.Winner = evt.Target
		res.Draw = evt.Target == "DRAW"
	}
	if res.Draw {
		res.Winner = ""
	}
	return res, true
}

// Recorder writes a result for every match that ends. Event callbacks run
// under the match lock, so writes happen on their own goroutine.
type Recorder struct {
	store   ResultStore
	logger  *zap.Logger
	timeout time.Duration

	wg     sync.WaitGroup
	mu     sync.Mutex
	bus    *rules.EventBus
	handle int
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store ResultStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger, timeout: 5 * time.Second, handle: -1}
}

// Attach subscribes the recorder to MATCH_ENDED events on bus.
func (rec *Recorder) Attach(bus *rules.EventBus) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.bus = bus
	rec.handle = bus.SubscribeTyped(rules.EventMatchEnded, rec.onMatchEnded)
}

func (rec *Recorder) onMatchEnded(evt rules.Event) {
	res, ok := ResultFromEvent(evt)
	if !ok {
		return
	}
	rec.wg.Add(1)
	go func() {
		defer rec.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), rec.timeout)
		defer cancel()
		if err := rec.store.RecordResult(ctx, res); err != nil {
			rec.logger.Error("failed to record match result", zap.String("match_id", res.MatchID), zap.Error(err))
			return
		}
		rec.logger.Info("match result recorded",
			zap.String("match_id", res.MatchID),
			zap.String("winner", res.Winner),
			zap.Bool("interrupted", res.Interrupted),
		)
	}()
}

// Close unsubscribes and waits for pending writes.
func (rec *Recorder) Close() {
	rec.mu.Lock()
	if rec.bus != nil {
		rec.bus.Unsubscribe(rec.handle)
		rec.bus = nil
	}
	rec.mu.Unlock()
	rec.wg.Wait()
}
