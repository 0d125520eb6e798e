package game

import (
	"sort"
	"sync"

	"github.com/quizwire/quizwire/internal/protocol"
)

// Aggregator merges server score pushes into a displayable ranked board and
// tracks the local player's running score. The board is only ever replaced
// wholesale, never patched, so a partial update can't leave it inconsistent.
type Aggregator struct {
	mu       sync.Mutex
	selfID   string
	selfName string
	board    []protocol.PlayerScore
	score    int
}

// NewAggregator returns an aggregator identifying the local player by
// connection id and/or username; either may be empty.
func NewAggregator(selfID, selfName string) *Aggregator {
	return &Aggregator{selfID: selfID, selfName: selfName}
}

// SetSelfID records the local player's connection id once it is learned from
// a score push, tightening future matches.
func (a *Aggregator) SetSelfID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selfID = id
}

// SetSelfName refreshes the username the local player is matched by. Called
// with the live session identity before each snapshot, so a name confirmed
// after construction still matches.
func (a *Aggregator) SetSelfName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selfName = name
}

// ApplySnapshot replaces the board with a freshly sorted copy (descending by
// score, server order preserved on ties) and extracts the local player's
// score. An absent own entry keeps the last known score.
func (a *Aggregator) ApplySnapshot(scores []protocol.PlayerScore) {
	a.mu.Lock()
	defer a.mu.Unlock()

	board := append([]protocol.PlayerScore(nil), scores...)
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	a.board = board

	for _, p := range scores {
		if a.isSelfLocked(p) {
			a.score = p.Score
			a.selfID = p.PlayerID
			break
		}
	}
}

// Board returns a copy of the last ranked board.
func (a *Aggregator) Board() []protocol.PlayerScore {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]protocol.PlayerScore(nil), a.board...)
}

// CurrentScore returns the last known own score, zero before any snapshot.
func (a *Aggregator) CurrentScore() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score
}

// SelfID returns the local player's connection id, if known.
func (a *Aggregator) SelfID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selfID
}

func (a *Aggregator) isSelfLocked(p protocol.PlayerScore) bool {
	if a.selfID != "" && p.PlayerID == a.selfID {
		return true
	}
	return a.selfName != "" && p.Username == a.selfName
}
