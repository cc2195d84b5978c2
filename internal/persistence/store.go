// Package persistence provides the write-through JSON game document and the
// SQLite archive of finished reigns.
package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/evolving-kingdom/internal/config"
	"github.com/talgya/evolving-kingdom/internal/social"
)

var (
	// ErrNoGame is returned when the store holds no game yet.
	ErrNoGame = errors.New("no game in progress")
	// ErrUnknownFaction is returned for ids outside the roster.
	ErrUnknownFaction = errors.New("unknown faction")
)

// Store owns the game document. Every mutator rewrites the whole file before
// returning. Access is single-threaded; there is no locking.
type Store struct {
	path         string
	roster       []config.FactionSpec
	initialTrust int
	state        *social.GameState

	now func() time.Time
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, cfg config.Config) *Store {
	return &Store{
		path:         path,
		roster:       cfg.Factions,
		initialTrust: cfg.InitialTrust,
		now:          time.Now,
	}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Initialize starts a fresh game, replacing any document on disk.
func (s *Store) Initialize(playerName string) (*social.GameState, error) {
	st := &social.GameState{
		GameID:          uuid.NewString(),
		PlayerName:      playerName,
		CurrentTurn:     1,
		GameStarted:     s.now(),
		Factions:        make(map[string]*social.FactionState, len(s.roster)),
		TurnHistory:     []social.TurnRecord{},
		Chronicles:      []social.Chronicle{},
		StoryBeats:      []social.StoryBeat{},
		Classifications: []social.Classification{},
	}
	for _, f := range s.roster {
		st.Factions[f.ID] = social.NewFactionState(f.ID, f.Name, f.BasePersonality, s.initialTrust)
	}

	prev := s.state
	s.state = st
	if err := s.Save(); err != nil {
		s.state = prev
		return nil, err
	}
	slog.Info("new game initialized", "game_id", st.GameID, "player", playerName, "path", s.path)
	return st, nil
}

// Load reads the document from disk. It returns false when no document exists.
func (s *Store) Load() (bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read game state: %w", err)
	}

	var st social.GameState
	if err := json.Unmarshal(data, &st); err != nil {
		return false, fmt.Errorf("parse game state %s: %w", s.path, err)
	}
	s.state = &st
	return true, nil
}

// Save writes the full document: two-space indent, UTF-8, no HTML escaping.
// The file is replaced atomically via a temp file in the same directory.
func (s *Store) Save() error {
	if s.state == nil {
		return ErrNoGame
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.state); err != nil {
		return fmt.Errorf("marshal game state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".game_state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod game state: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write game state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close game state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace game state: %w", err)
	}
	return nil
}

// RecordTurn appends a finished turn and advances the turn counter by one.
func (s *Store) RecordTurn(rec social.TurnRecord) error {
	if s.state == nil {
		return ErrNoGame
	}
	s.state.TurnHistory = append(s.state.TurnHistory, rec)
	s.state.CurrentTurn++
	return s.Save()
}

// AddChronicle appends a chronicle covering turns from..to.
func (s *Store) AddChronicle(from, to int, text string) error {
	if s.state == nil {
		return ErrNoGame
	}
	s.state.Chronicles = append(s.state.Chronicles, social.Chronicle{
		Turns:     social.TurnRange(from, to),
		Text:      text,
		Timestamp: s.now(),
	})
	return s.Save()
}

// UpdatePersonality replaces a faction's current personality and logs why.
func (s *Store) UpdatePersonality(id string, turn int, personality, reason string) error {
	f, err := s.Faction(id)
	if err != nil {
		return err
	}
	f.Evolve(turn, personality, reason)
	return s.Save()
}

// UpdateTrust applies a clamped delta and returns the new score.
func (s *Store) UpdateTrust(id string, delta int) (int, error) {
	f, err := s.Faction(id)
	if err != nil {
		return 0, err
	}
	trust := f.AdjustTrust(delta)
	if err := s.Save(); err != nil {
		return trust, err
	}
	return trust, nil
}

// AddMemory appends to a faction's memory.
func (s *Store) AddMemory(id string, m social.MemoryEntry) error {
	f, err := s.Faction(id)
	if err != nil {
		return err
	}
	f.Memory = append(f.Memory, m)
	return s.Save()
}

// AddStoryBeat appends a narrative beat.
func (s *Store) AddStoryBeat(b social.StoryBeat) error {
	if s.state == nil {
		return ErrNoGame
	}
	s.state.StoryBeats = append(s.state.StoryBeats, b)
	return s.Save()
}

// AddClassification appends to the kingdom-state history.
func (s *Store) AddClassification(c social.Classification) error {
	if s.state == nil {
		return ErrNoGame
	}
	s.state.Classifications = append(s.state.Classifications, c)
	return s.Save()
}

// Faction returns the live state of one faction.
func (s *Store) Faction(id string) (*social.FactionState, error) {
	if s.state == nil {
		return nil, ErrNoGame
	}
	f, ok := s.state.Factions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFaction, id)
	}
	return f, nil
}

// AllFactions returns factions in roster order.
func (s *Store) AllFactions() []*social.FactionState {
	if s.state == nil {
		return nil
	}
	out := make([]*social.FactionState, 0, len(s.roster))
	for _, spec := range s.roster {
		if f, ok := s.state.Factions[spec.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}

// AverageTrust is the arithmetic mean of all faction trust scores.
func (s *Store) AverageTrust() float64 {
	if s.state == nil {
		return 0
	}
	return s.state.AverageTrust()
}

// LatestChronicle returns the newest chronicle text.
func (s *Store) LatestChronicle() (string, bool) {
	if s.state == nil || len(s.state.Chronicles) == 0 {
		return "", false
	}
	return s.state.Chronicles[len(s.state.Chronicles)-1].Text, true
}

// RecentTurns returns at most the last n turn records.
func (s *Store) RecentTurns(n int) []social.TurnRecord {
	if s.state == nil || n <= 0 || len(s.state.TurnHistory) == 0 {
		return []social.TurnRecord{}
	}
	start := max(0, len(s.state.TurnHistory)-n)
	return s.state.TurnHistory[start:]
}

// ContextSnapshot packages the world state for a generation call.
func (s *Store) ContextSnapshot() social.Snapshot {
	if s.state == nil {
		return social.Snapshot{}
	}
	chronicle, _ := s.LatestChronicle()
	snap := social.Snapshot{
		Turn:            s.state.CurrentTurn,
		LatestChronicle: chronicle,
		AverageTrust:    s.AverageTrust(),
		Factions:        make(map[string]social.FactionSummary, len(s.state.Factions)),
	}
	for id, f := range s.state.Factions {
		snap.Factions[id] = social.FactionSummary{
			Name:        f.Name,
			Personality: f.CurrentPersonality,
			Trust:       f.TrustScore,
		}
	}
	return snap
}

// FullState returns the whole document for the final review.
func (s *Store) FullState() *social.GameState {
	return s.state
}
