package protocol

// Outbound command event names (client -> server).
const (
	CmdCreateRoom     = "create-room"
	CmdJoinRoom       = "join-room"
	CmdLeaveRoom      = "leave-room"
	CmdHostRejoin     = "host-rejoin"
	CmdPlayerRejoin   = "player-rejoin"
	CmdGetLobbyState  = "get-lobby-state"
	CmdUpdateSettings = "update-settings"
	CmdStartGame      = "start-game"
	CmdSelectPoints   = "select-points"
	CmdSubmitAnswer   = "submit-answer"
	CmdPlayAgain      = "play-again"
)

// CreateRoom requests a new room.
type CreateRoom struct {
	Username string `json:"username"`
}

// JoinRoom joins an existing room by code.
type JoinRoom struct {
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
}

// LeaveRoom is a voluntary exit from the current room.
type LeaveRoom struct {
	RoomCode string `json:"roomCode"`
}

// Rejoin rebinds a stored identity to a fresh connection. Sent as
// host-rejoin or player-rejoin depending on the stored host flag.
type Rejoin struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// GetLobbyState pulls the full lobby snapshot explicitly.
type GetLobbyState struct {
	RoomCode string `json:"roomCode"`
}

// UpdateSettings is the host-only round-count change.
type UpdateSettings struct {
	RoomCode    string `json:"roomCode"`
	TotalRounds int    `json:"totalRounds"`
}

// StartGame is the host-only request to begin the round sequence.
type StartGame struct {
	RoomCode string `json:"roomCode"`
	Category string `json:"category"`
}

// SelectPoints confirms the round's wager. Points is nil when the player
// confirmed without choosing a value.
type SelectPoints struct {
	RoomCode string `json:"roomCode"`
	Points   *Wager `json:"points"`
}

// SubmitAnswer submits the round's answer. TimeElapsed is seconds since the
// server-issued question start timestamp.
type SubmitAnswer struct {
	RoomCode    string  `json:"roomCode"`
	AnswerIndex int     `json:"answerIndex"`
	TimeElapsed float64 `json:"timeElapsed"`
}

// PlayAgain is the host-only request to reset the room for another game.
type PlayAgain struct {
	RoomCode string `json:"roomCode"`
}
