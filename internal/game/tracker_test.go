package game

import (
	"errors"
	"testing"

	"github.com/quizwire/quizwire/internal/protocol"
)

func TestOfferableStartsWithFullVocabulary(t *testing.T) {
	tr := NewTracker()
	offerable := tr.Offerable()
	if len(offerable) != 26 {
		t.Fatalf("expected 25 numeric wagers plus lucky, got %d", len(offerable))
	}
	if !offerable[len(offerable)-1].Lucky {
		t.Fatal("expected lucky sentinel last")
	}
}

func TestConfirmedWagerNeverOfferedAgain(t *testing.T) {
	tr := NewTracker()

	if err := tr.Select(protocol.PointsWager(5)); err != nil {
		t.Fatalf("select: %v", err)
	}
	confirmed, err := tr.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed == nil || confirmed.Points != 5 {
		t.Fatalf("expected confirmed wager 5, got %v", confirmed)
	}

	for _, w := range tr.Offerable() {
		if !w.Lucky && w.Points == 5 {
			t.Fatal("consumed wager 5 still offerable")
		}
	}
	if err := tr.Select(protocol.PointsWager(5)); err == nil {
		t.Fatal("expected selecting a consumed wager to fail")
	}

	// The lucky sentinel is tracked independently and also consumes.
	if err := tr.Select(protocol.LuckyWager()); err != nil {
		t.Fatalf("select lucky: %v", err)
	}
	if _, err := tr.Confirm(); err != nil {
		t.Fatalf("confirm lucky: %v", err)
	}
	for _, w := range tr.Offerable() {
		if w.Lucky {
			t.Fatal("consumed lucky sentinel still offerable")
		}
	}
}

func TestConfirmWithoutSelectionIsLegalAndConsumesNothing(t *testing.T) {
	tr := NewTracker()
	confirmed, err := tr.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed != nil {
		t.Fatalf("expected nil wager, got %v", confirmed)
	}
	if len(tr.Offerable()) != 26 {
		t.Fatal("empty confirm consumed a value")
	}
}

func TestSelectRejectsIllegalValues(t *testing.T) {
	tr := NewTracker()
	for _, w := range []protocol.Wager{
		protocol.PointsWager(0),
		protocol.PointsWager(26),
		protocol.PointsWager(-3),
	} {
		err := tr.Select(w)
		var verr *protocol.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for %s, got %v", w, err)
		}
	}
}

func TestConsumeForcedMarksUsed(t *testing.T) {
	tr := NewTracker()
	tr.ConsumeForced(protocol.PointsWager(1))
	if !tr.Used(protocol.PointsWager(1)) {
		t.Fatal("forced wager not marked used")
	}
	// Forcing an already-used value stays a no-op rather than an error.
	tr.ConsumeForced(protocol.PointsWager(1))
}
