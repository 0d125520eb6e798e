package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quizwire/quizwire/internal/protocol"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.yaml")
}

func TestOpenMissingFileIsEmptySession(t *testing.T) {
	s, err := Open(tempStorePath(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if id := s.Identity(); id.CanResume() || id.RoomCode != "" {
		t.Fatalf("expected empty identity, got %+v", id)
	}
	if w, _ := s.GameEnd(); w != nil {
		t.Fatal("expected no persisted standings")
	}
}

func TestIdentitySurvivesReopen(t *testing.T) {
	path := tempStorePath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := Identity{RoomCode: "ABC123", Username: "alice", IsHost: true}
	if err := s.SetIdentity(want); err != nil {
		t.Fatalf("set identity: %v", err)
	}

	// Simulates a process restart after a page-reload style interruption.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := s2.Identity()
	if got != want {
		t.Fatalf("identity lost across reopen: got %+v want %+v", got, want)
	}
	if !got.CanResume() {
		t.Fatal("stored identity should be resumable")
	}
}

func TestSaveGameEndRoundtrip(t *testing.T) {
	path := tempStorePath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	winner := protocol.PlayerScore{PlayerID: "s1", Username: "bob", Score: 42}
	board := []protocol.PlayerScore{winner, {PlayerID: "s2", Username: "alice", Score: 30}}
	if err := s.SaveGameEnd(winner, board); err != nil {
		t.Fatalf("save game end: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	w, lb := s2.GameEnd()
	if w == nil || w.Username != "bob" || w.Score != 42 {
		t.Fatalf("winner not persisted: %+v", w)
	}
	if len(lb) != 2 || lb[1].Username != "alice" {
		t.Fatalf("leaderboard not persisted: %+v", lb)
	}
}

func TestClearGameEndKeepsIdentity(t *testing.T) {
	s, err := Open(tempStorePath(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := Identity{RoomCode: "ABC123", Username: "alice"}
	if err := s.SetIdentity(id); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	if err := s.SaveGameEnd(protocol.PlayerScore{Username: "bob"}, nil); err != nil {
		t.Fatalf("save game end: %v", err)
	}

	if err := s.ClearGameEnd(); err != nil {
		t.Fatalf("clear game end: %v", err)
	}
	if w, _ := s.GameEnd(); w != nil {
		t.Fatal("standings survived ClearGameEnd")
	}
	if got := s.Identity(); got != id {
		t.Fatalf("identity must survive a play-again reset, got %+v", got)
	}
}

func TestClearRemovesFile(t *testing.T) {
	path := tempStorePath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetIdentity(Identity{RoomCode: "ABC123", Username: "alice"}); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file should be gone, stat err: %v", err)
	}
	if id := s.Identity(); id != (Identity{}) {
		t.Fatalf("in-memory identity should be wiped, got %+v", id)
	}

	// Clearing an already-clean session is fine.
	if err := s.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
