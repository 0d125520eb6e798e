// Package session holds the durable facts a client needs to resume
// participation in a room across process restarts: room code, display name
// and host flag, plus the final leaderboard once a game has ended.
package session

// Identity is what the rejoin handshake needs to rebind a fresh connection
// to the existing player record. It is written only in response to
// server-confirmed events, never optimistically.
type Identity struct {
	RoomCode string `yaml:"room_code"`
	Username string `yaml:"username"`
	IsHost   bool   `yaml:"is_host"`
}

// CanResume reports whether the identity is complete enough for a
// host-rejoin or player-rejoin handshake.
func (id Identity) CanResume() bool {
	return id.RoomCode != "" && id.Username != ""
}
