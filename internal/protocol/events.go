package protocol

import (
	"encoding/json"
	"time"
)

// Inbound event names (server -> client).
const (
	EventRoomCreated       = "room-created"
	EventRoomJoined        = "room-joined"
	EventLobbyState        = "lobby-state"
	EventPlayerListUpdated = "player-list-updated"
	EventPlayerJoined      = "player-joined"
	EventPlayerLeft        = "player-left"
	EventSettingsUpdated   = "settings-updated"
	EventGameStarted       = "game-started"
	EventNewQuestion       = "new-question"
	EventAnswerSubmitted   = "answer-submitted"
	EventQuestionResults   = "question-results"
	EventQuestionFeedback  = "question-feedback"
	EventGameEnded         = "game-ended"
	EventReturnToSetup     = "return-to-setup"
	EventLeftRoom          = "left-room"
	EventError             = "error"
)

// RoleHost is the role string the server sends for a joining host.
const RoleHost = "HOST"

// Envelope frames every message on the wire in both directions. Data holds
// the event-specific payload and is decoded by the subscriber that owns the
// event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Player is a roster entry as the lobby events carry it.
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsHost   bool   `json:"isHost"`
	Score    int    `json:"score"`
}

// RoomCreated confirms room creation; the creator is the host.
type RoomCreated struct {
	RoomCode string `json:"roomCode"`
}

// RoomJoined confirms a join and reports the assigned role.
type RoomJoined struct {
	RoomCode string `json:"roomCode"`
	Role     string `json:"role"`
}

// LobbyState is the full roster snapshot.
type LobbyState struct {
	RoomCode    string   `json:"roomCode"`
	Players     []Player `json:"players"`
	TotalRounds int      `json:"totalRounds"`
}

// RosterUpdate is the payload of player-joined and player-left. NewHost is
// set when the departure of the previous host handed the role over.
type RosterUpdate struct {
	Players []Player `json:"players"`
	NewHost *Player  `json:"newHost"`
	Message string   `json:"message"`
}

// SettingsUpdated echoes a host settings change to the room.
type SettingsUpdated struct {
	TotalRounds int `json:"totalRounds"`
}

// NewQuestion starts a round. QuestionStartTime is the server clock in Unix
// milliseconds and is the only ground truth for the countdown; TimeLimit is
// in seconds.
type NewQuestion struct {
	QuestionNumber    int      `json:"questionNumber"`
	TotalQuestions    int      `json:"totalQuestions"`
	Category          string   `json:"category"`
	QuestionText      string   `json:"questionText"`
	Answers           []string `json:"answers"`
	QuestionStartTime int64    `json:"questionStartTime"`
	TimeLimit         float64  `json:"timeLimit"`
}

// StartedAt returns the server-issued round start time.
func (q NewQuestion) StartedAt() time.Time {
	return time.UnixMilli(q.QuestionStartTime)
}

// Limit returns the round duration.
func (q NewQuestion) Limit() time.Duration {
	return time.Duration(q.TimeLimit * float64(time.Second))
}

// AnswerSubmitted is the mid-round progress indicator.
type AnswerSubmitted struct {
	PlayerAnswered int `json:"playerAnswered"`
	TotalPlayers   int `json:"totalPlayers"`
}

// PlayerResult is one player's outcome within question-results. Wager is nil
// when the player confirmed without choosing a value. LuckyValue is the
// server-determined delta for the lucky sentinel and is reported as-is.
type PlayerResult struct {
	PlayerID    string `json:"socketId"`
	AnswerIndex int    `json:"answerIndex"`
	IsCorrect   bool   `json:"isCorrect"`
	Wager       *Wager `json:"wager"`
	LuckyValue  int    `json:"luckyValue"`
	Points      int    `json:"points"`
}

// PlayerScore is one entry of a server score push.
type PlayerScore struct {
	PlayerID string `json:"socketId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// QuestionResults terminates a round with the authoritative outcome.
type QuestionResults struct {
	CorrectAnswerIndex int            `json:"correctAnswerIndex"`
	Results            []PlayerResult `json:"results"`
	PlayerScores       []PlayerScore  `json:"playerScores"`
}

// QuestionFeedback is an advisory mid-round note; it never changes state.
type QuestionFeedback struct {
	Message string `json:"message"`
}

// GameEnded is the terminal event of a game.
type GameEnded struct {
	Winner      PlayerScore   `json:"winner"`
	Leaderboard []PlayerScore `json:"leaderboard"`
}

// ErrorEvent is the server's generic failure notice.
type ErrorEvent struct {
	Message string `json:"message"`
}
