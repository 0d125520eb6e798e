package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/quizwire/quizwire/internal/protocol"
)

// state is the on-disk layout of the session file.
type state struct {
	Identity    Identity               `yaml:"identity"`
	Winner      *protocol.PlayerScore  `yaml:"winner,omitempty"`
	Leaderboard []protocol.PlayerScore `yaml:"leaderboard,omitempty"`
}

// Store persists session state to a single YAML file. Every mutator writes
// through to disk so a process restart sees the last confirmed state.
type Store struct {
	path string

	mu sync.Mutex
	st state
}

// Open reads the session file at path, treating a missing file as an empty
// session.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.st); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}

	log.Debug().
		Str("path", path).
		Str("room_code", s.st.Identity.RoomCode).
		Bool("is_host", s.st.Identity.IsHost).
		Msg("session loaded")
	return s, nil
}

// Identity returns the stored identity, zero-valued for a fresh session.
func (s *Store) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Identity
}

// SetIdentity replaces the stored identity and writes through.
func (s *Store) SetIdentity(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Identity = id
	return s.flushLocked()
}

// SaveGameEnd records the final leaderboard and winner for the results view.
func (s *Store) SaveGameEnd(winner protocol.PlayerScore, leaderboard []protocol.PlayerScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := winner
	s.st.Winner = &w
	s.st.Leaderboard = append([]protocol.PlayerScore(nil), leaderboard...)
	return s.flushLocked()
}

// GameEnd returns the persisted final standings, if any.
func (s *Store) GameEnd() (*protocol.PlayerScore, []protocol.PlayerScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Winner == nil {
		return nil, nil
	}
	w := *s.st.Winner
	return &w, append([]protocol.PlayerScore(nil), s.st.Leaderboard...)
}

// ClearGameEnd drops the final standings but keeps the room identity, used
// when the host resets the room for another game.
func (s *Store) ClearGameEnd() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Winner = nil
	s.st.Leaderboard = nil
	return s.flushLocked()
}

// Clear wipes the whole session, used on explicit leave/home.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = state{}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *Store) flushLocked() error {
	data, err := yaml.Marshal(&s.st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
