package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewQuestionDecodeAndClockHelpers(t *testing.T) {
	payload := `{
		"questionNumber": 2,
		"totalQuestions": 5,
		"category": "Science",
		"questionText": "What?",
		"answers": ["A", "B", "C", "D"],
		"questionStartTime": 1700000000000,
		"timeLimit": 30
	}`
	var q NewQuestion
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.QuestionNumber != 2 || q.TotalQuestions != 5 || len(q.Answers) != 4 {
		t.Fatalf("got %+v", q)
	}
	if want := time.UnixMilli(1_700_000_000_000); !q.StartedAt().Equal(want) {
		t.Fatalf("StartedAt = %v, want %v", q.StartedAt(), want)
	}
	if q.Limit() != 30*time.Second {
		t.Fatalf("Limit = %v, want 30s", q.Limit())
	}
}

func TestFractionalTimeLimit(t *testing.T) {
	q := NewQuestion{TimeLimit: 7.5}
	if q.Limit() != 7500*time.Millisecond {
		t.Fatalf("Limit = %v, want 7.5s", q.Limit())
	}
}

func TestEnvelopeRoundtripPreservesRawPayload(t *testing.T) {
	inner, _ := json.Marshal(RoomJoined{RoomCode: "ABC123", Role: RoleHost})
	frame, err := json.Marshal(Envelope{Event: EventRoomJoined, Data: inner})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Event != EventRoomJoined {
		t.Fatalf("event = %q", env.Event)
	}
	var rj RoomJoined
	if err := json.Unmarshal(env.Data, &rj); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if rj.RoomCode != "ABC123" || rj.Role != RoleHost {
		t.Fatalf("got %+v", rj)
	}
}

func TestRosterUpdateHostHandover(t *testing.T) {
	payload := `{
		"players": [{"id":"s2","username":"bob","isHost":true,"score":0}],
		"newHost": {"id":"s2","username":"bob","isHost":true,"score":0},
		"message": "alice left the room"
	}`
	var ru RosterUpdate
	if err := json.Unmarshal([]byte(payload), &ru); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ru.NewHost == nil || ru.NewHost.Username != "bob" {
		t.Fatalf("handover lost: %+v", ru.NewHost)
	}

	// Ordinary roster churn carries no handover.
	var plain RosterUpdate
	if err := json.Unmarshal([]byte(`{"players":[],"message":"x"}`), &plain); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if plain.NewHost != nil {
		t.Fatalf("expected nil newHost, got %+v", plain.NewHost)
	}
}
