package game

import (
	"sync"

	"github.com/quizwire/quizwire/internal/protocol"
)

// Tracker enforces the use-once rule over the wager vocabulary for one game
// session. The consumed set only grows: a value confirmed in any round is
// never offered again. Consumption is tracked client-side so used values can
// be withheld immediately on render; the server stays the final authority and
// may still reject a value independently.
type Tracker struct {
	mu     sync.Mutex
	used   map[protocol.Wager]bool
	staged *protocol.Wager
}

// NewTracker returns a tracker with the full vocabulary available.
func NewTracker() *Tracker {
	return &Tracker{used: make(map[protocol.Wager]bool)}
}

// Offerable returns the legal vocabulary minus everything consumed this game:
// 1..25 in order, then the lucky sentinel.
func (t *Tracker) Offerable() []protocol.Wager {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]protocol.Wager, 0, protocol.MaxWagerPoints+1)
	for n := protocol.MinWagerPoints; n <= protocol.MaxWagerPoints; n++ {
		if w := protocol.PointsWager(n); !t.used[w] {
			out = append(out, w)
		}
	}
	if w := protocol.LuckyWager(); !t.used[w] {
		out = append(out, w)
	}
	return out
}

// Select stages a choice without consuming it. Already-consumed values are
// rejected so a stale UI cannot restage them.
func (t *Tracker) Select(w protocol.Wager) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !w.Valid() {
		return &protocol.ValidationError{Field: "wager", Reason: "select between 1 and 25 or ?"}
	}
	if t.used[w] {
		return &protocol.ValidationError{Field: "wager", Reason: w.String() + " already used this game"}
	}
	staged := w
	t.staged = &staged
	return nil
}

// ClearSelection drops any staged choice, called at round start.
func (t *Tracker) ClearSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = nil
}

// Confirm validates the staged value and consumes it permanently, returning
// the confirmed wager. A nil return with nil error means the player confirmed
// without choosing; that is legal and consumes nothing.
func (t *Tracker) Confirm() (*protocol.Wager, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.staged == nil {
		return nil, nil
	}
	w := *t.staged
	if !w.Valid() {
		return nil, &protocol.ValidationError{Field: "wager", Reason: "select between 1 and 25 or ?"}
	}
	t.used[w] = true
	t.staged = nil
	return &w, nil
}

// ConsumeForced marks a wager as used without staging, for the timeout
// fallback's synthesized minimal wager.
func (t *Tracker) ConsumeForced(w protocol.Wager) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.used[w] = true
	t.staged = nil
}

// Used reports whether a value has been consumed this game.
func (t *Tracker) Used(w protocol.Wager) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used[w]
}
