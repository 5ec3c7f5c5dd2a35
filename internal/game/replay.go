package game

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

const replayVersion = 2

// Setup is everything needed to rebuild a match from scratch.
type Setup struct {
	MatchID string
	Seats   []Seat
	Options Options
}

// Lifecycle marks a replay entry that pauses, resumes or ends the match
// instead of carrying a command.
type Lifecycle string

const (
	LifecycleSuspend   Lifecycle = "SUSPEND"
	LifecycleResume    Lifecycle = "RESUME"
	LifecycleInterrupt Lifecycle = "INTERRUPT"
)

// ReplayEntry records one processed command, or one lifecycle change, and
// the state it left behind.
type ReplayEntry struct {
	Seat      int
	Command   protocol.Command
	Lifecycle Lifecycle
	// Reason is the interruption reason of a LifecycleInterrupt entry.
	Reason    string
	OK        bool
	Error     string
	Checksum  string
	Timestamp time.Time
}

// apply re-executes the entry against m.
func (e ReplayEntry) apply(m *Match) error {
	switch e.Lifecycle {
	case LifecycleSuspend:
		m.Suspend()
	case LifecycleResume:
		m.Resume()
	case LifecycleInterrupt:
		m.Interrupt(e.Reason)
	default:
		_, err := m.Apply(e.Seat, e.Command)
		return err
	}
	return nil
}

func (e ReplayEntry) label() string {
	if e.Lifecycle != "" {
		return string(e.Lifecycle)
	}
	return string(e.Command.Kind)
}

// Replay is the command log of one match. Rebuilding the match from Setup
// and applying every entry reproduces each recorded checksum.
type Replay struct {
	Setup        Setup
	Entries      []ReplayEntry
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay for a match set up with setup.
func NewReplay(setup Setup) *Replay {
	return &Replay{Setup: setup}
}

// Record appends an entry.
func (r *Replay) Record(entry ReplayEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Entries = append(r.Entries, entry)
}

// Start rewinds playback.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the entry at the cursor and advances it.
func (r *Replay) Next() (ReplayEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Entries) {
		e := r.Entries[r.CurrentIndex]
		r.CurrentIndex++
		return e, true
	}
	return ReplayEntry{}, false
}

// Previous moves the cursor back and returns that entry.
func (r *Replay) Previous() (ReplayEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.Entries[r.CurrentIndex], true
	}
	return ReplayEntry{}, false
}

// Size returns the number of recorded entries.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Entries)
}

// MatchAt rebuilds the match as it stood after the first n entries.
func (r *Replay) MatchAt(n int) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n < 0 || n > len(r.Entries) {
		return nil, fmt.Errorf("replay has %d entries, asked for %d", len(r.Entries), n)
	}
	m, err := NewMatch(r.Setup.MatchID, r.Setup.Seats, r.Setup.Options)
	if err != nil {
		return nil, fmt.Errorf("rebuild match: %w", err)
	}
	for _, e := range r.Entries[:n] {
		// Rejections are replayed too: a failed card activation still ends it.
		_ = e.apply(m)
	}
	return m, nil
}

// Verify re-executes every entry and checks outcome and checksum.
func (r *Replay) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, err := NewMatch(r.Setup.MatchID, r.Setup.Seats, r.Setup.Options)
	if err != nil {
		return fmt.Errorf("rebuild match: %w", err)
	}
	for i, e := range r.Entries {
		err := e.apply(m)
		if ok := err == nil; ok != e.OK {
			return fmt.Errorf("entry %d (%s): recorded ok=%t, replayed error %v", i, e.label(), e.OK, err)
		}
		if got := m.Checksum(); got != e.Checksum {
			return fmt.Errorf("entry %d (%s): checksum %s, recorded %s", i, e.label(), got, e.Checksum)
		}
	}
	return nil
}

// SaveToFile writes the replay as gzipped gob to directory/<match id>.replay.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.Setup.MatchID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		Setup:      r.Setup,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		EntryCount: len(r.Entries),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range r.Entries {
		if err := encoder.Encode(&r.Entries[i]); err != nil {
			return fmt.Errorf("failed to encode entry %d: %w", i, err)
		}
	}

	return gzipWriter.Close()
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, matchID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", matchID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.Setup)
	for i := 0; i < metadata.EntryCount; i++ {
		var entry ReplayEntry
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry %d: %w", i, err)
		}
		replay.Entries = append(replay.Entries, entry)
	}

	return replay, nil
}

type replayMetadata struct {
	Setup      Setup
	Timestamp  time.Time
	Version    int
	EntryCount int
}

// ReplayRecorder keeps the replays of running matches and writes them out
// when a match ends.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	saveDir string
}

// NewReplayRecorder creates a recorder. An empty saveDir keeps replays in memory only.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		saveDir: saveDir,
	}
}

// StartRecording begins a replay for a new match.
func (rr *ReplayRecorder) StartRecording(setup Setup) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[setup.MatchID] = NewReplay(setup)
	rr.logger.Debug("started replay recording", zap.String("match_id", setup.MatchID))
}

// Record appends an entry to a match's replay, if one is being recorded.
func (rr *ReplayRecorder) Record(matchID string, entry ReplayEntry) {
	rr.mu.RLock()
	replay := rr.replays[matchID]
	rr.mu.RUnlock()

	if replay == nil {
		return
	}
	replay.Record(entry)
}

// GetReplay returns the replay of a match.
func (rr *ReplayRecorder) GetReplay(matchID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, ok := rr.replays[matchID]
	return replay, ok
}

// Finish writes the replay to disk, when a directory is configured, and
// forgets it.
func (rr *ReplayRecorder) Finish(matchID string) error {
	rr.mu.Lock()
	replay, ok := rr.replays[matchID]
	delete(rr.replays, matchID)
	rr.mu.Unlock()

	if !ok {
		return fmt.Errorf("no replay found for match %s", matchID)
	}
	if rr.saveDir == "" {
		return nil
	}
	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	rr.logger.Info("saved replay to disk",
		zap.String("match_id", matchID),
		zap.Int("entries", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return nil
}

// LoadReplay reads a saved replay from the recorder's directory.
func (rr *ReplayRecorder) LoadReplay(matchID string) (*Replay, error) {
	if rr.saveDir == "" {
		return nil, errors.New("replay directory not configured")
	}
	return LoadReplayFromFile(rr.saveDir, matchID)
}
