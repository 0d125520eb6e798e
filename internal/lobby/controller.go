// Package lobby drives the flows around the game itself: creating and
// joining rooms, roster and settings sync while waiting, and the results
// screen's play-again/home actions.
package lobby

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/protocol"
	"github.com/quizwire/quizwire/internal/session"
	"github.com/quizwire/quizwire/internal/transport"
)

// Page names for navigation hand-off.
const (
	PageLanding = "landing"
	PageLobby   = "lobby"
	PageGame    = "game"
	PageResults = "results"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 20
	roomCodeLen    = 6

	startedNavDelay  = 1 * time.Second
	leaveNavDelay    = 500 * time.Millisecond
	playAgainTimeout = 5 * time.Second
)

// Emitter sends a command to the server.
type Emitter interface {
	Emit(event string, payload any) error
}

// Subscriber registers inbound event handlers.
type Subscriber interface {
	On(event string, fn func(data json.RawMessage))
}

// View is the rendering collaborator for the lobby and results screens.
type View interface {
	ShowPlayers(players []protocol.Player)
	ShowSettings(totalRounds int)
	ShowStatus(message string)
	ShowError(message string)
}

// Controller owns the room lifecycle around a game. Identity is only written
// on server-confirmed events; a rejected create/join reverts the in-flight
// state and surfaces the message near the action.
type Controller struct {
	emitter  Emitter
	store    *session.Store
	view     View
	clock    clockwork.Clock
	navigate func(page string)

	mu            sync.Mutex
	username      string
	pendingJoin   bool
	pendingStart  bool
	playAgainStop chan struct{}
}

// NewController wires a room-flow controller. navigate hands page transitions
// to the front end and may be nil.
func NewController(emitter Emitter, store *session.Store, view View, clock clockwork.Clock, navigate func(page string)) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if navigate == nil {
		navigate = func(string) {}
	}
	return &Controller{
		emitter:  emitter,
		store:    store,
		view:     view,
		clock:    clock,
		navigate: navigate,
	}
}

// Bind subscribes the controller to the room events it consumes.
func (c *Controller) Bind(sub Subscriber) {
	sub.On(protocol.EventRoomCreated, decodeInto(c.handleRoomCreated))
	sub.On(protocol.EventRoomJoined, decodeInto(c.handleRoomJoined))
	sub.On(protocol.EventLobbyState, decodeInto(c.handleLobbyState))
	sub.On(protocol.EventPlayerListUpdated, decodeInto(c.handlePlayerList))
	sub.On(protocol.EventPlayerJoined, decodeInto(c.handleRosterUpdate))
	sub.On(protocol.EventPlayerLeft, decodeInto(c.handleRosterUpdate))
	sub.On(protocol.EventSettingsUpdated, decodeInto(c.handleSettingsUpdated))
	sub.On(protocol.EventGameStarted, func(json.RawMessage) { c.handleGameStarted() })
	sub.On(protocol.EventReturnToSetup, func(json.RawMessage) { c.handleReturnToSetup() })
	sub.On(protocol.EventLeftRoom, func(json.RawMessage) { c.navigate(PageLanding) })
	sub.On(protocol.EventError, decodeInto(c.handleError))
}

// CreateRoom validates the username locally and requests a new room. The
// caller becomes host when the server confirms.
func (c *Controller) CreateRoom(username string) error {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return err
	}
	c.mu.Lock()
	c.username = username
	c.pendingJoin = true
	c.mu.Unlock()
	return c.emitter.Emit(protocol.CmdCreateRoom, protocol.CreateRoom{Username: username})
}

// JoinRoom validates inputs locally and asks to join an existing room.
func (c *Controller) JoinRoom(username, roomCode string) error {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return err
	}
	roomCode = strings.ToUpper(strings.TrimSpace(roomCode))
	if len(roomCode) != roomCodeLen {
		return &protocol.ValidationError{Field: "room code", Reason: "must be 6 characters"}
	}
	c.mu.Lock()
	c.username = username
	c.pendingJoin = true
	c.mu.Unlock()
	return c.emitter.Emit(protocol.CmdJoinRoom, protocol.JoinRoom{Username: username, RoomCode: roomCode})
}

// UpdateSettings is host-only and forwards the new round count.
func (c *Controller) UpdateSettings(totalRounds int) error {
	id := c.store.Identity()
	if !id.IsHost {
		return &transport.ServerRejection{Message: "only the host can update settings"}
	}
	return c.emitter.Emit(protocol.CmdUpdateSettings, protocol.UpdateSettings{
		RoomCode:    id.RoomCode,
		TotalRounds: totalRounds,
	})
}

// StartGame is host-only. The in-flight state is reverted by handleError if
// the server rejects the start.
func (c *Controller) StartGame(category string) error {
	id := c.store.Identity()
	if !id.IsHost {
		return &transport.ServerRejection{Message: "only the host can start the game"}
	}
	c.mu.Lock()
	c.pendingStart = true
	c.mu.Unlock()
	c.view.ShowStatus("Starting...")
	return c.emitter.Emit(protocol.CmdStartGame, protocol.StartGame{
		RoomCode: id.RoomCode,
		Category: category,
	})
}

// LeaveRoom exits voluntarily and wipes the stored session.
func (c *Controller) LeaveRoom() error {
	id := c.store.Identity()
	if id.RoomCode != "" {
		if err := c.emitter.Emit(protocol.CmdLeaveRoom, protocol.LeaveRoom{RoomCode: id.RoomCode}); err != nil {
			return err
		}
	}
	if err := c.store.Clear(); err != nil {
		return err
	}
	go func() {
		c.clock.Sleep(leaveNavDelay)
		c.navigate(PageLanding)
	}()
	return nil
}

// PlayAgain is the host-only room reset. A missing return-to-setup within the
// response deadline reverts the loading state instead of hanging.
func (c *Controller) PlayAgain() error {
	id := c.store.Identity()
	if !id.IsHost {
		return &transport.ServerRejection{Message: "only the host can start a new game"}
	}

	c.mu.Lock()
	stop := make(chan struct{})
	c.playAgainStop = stop
	c.mu.Unlock()

	c.view.ShowStatus("Loading...")
	if err := c.emitter.Emit(protocol.CmdPlayAgain, protocol.PlayAgain{RoomCode: id.RoomCode}); err != nil {
		return err
	}

	go func() {
		select {
		case <-c.clock.After(playAgainTimeout):
			c.mu.Lock()
			c.playAgainStop = nil
			c.mu.Unlock()
			log.Warn().Msg("play-again got no response before the deadline")
			c.view.ShowError("Play again failed. Please try again.")
		case <-stop:
		}
	}()
	return nil
}

// FinalStandings returns the persisted winner and leaderboard for the
// results screen, nil when no game has ended.
func (c *Controller) FinalStandings() (*protocol.PlayerScore, []protocol.PlayerScore) {
	return c.store.GameEnd()
}

func (c *Controller) handleRoomCreated(p protocol.RoomCreated) {
	c.mu.Lock()
	username := c.username
	c.pendingJoin = false
	c.mu.Unlock()

	if err := c.store.SetIdentity(session.Identity{
		RoomCode: p.RoomCode,
		Username: username,
		IsHost:   true,
	}); err != nil {
		log.Error().Err(err).Msg("persist identity failed")
	}
	log.Info().Str("room_code", p.RoomCode).Msg("room created")
	c.navigate(PageLobby)
}

func (c *Controller) handleRoomJoined(p protocol.RoomJoined) {
	c.mu.Lock()
	username := c.username
	c.pendingJoin = false
	c.mu.Unlock()

	if err := c.store.SetIdentity(session.Identity{
		RoomCode: p.RoomCode,
		Username: username,
		IsHost:   p.Role == protocol.RoleHost,
	}); err != nil {
		log.Error().Err(err).Msg("persist identity failed")
	}
	log.Info().Str("room_code", p.RoomCode).Str("role", p.Role).Msg("room joined")
	c.navigate(PageLobby)
}

func (c *Controller) handleLobbyState(p protocol.LobbyState) {
	c.view.ShowPlayers(p.Players)
	c.view.ShowSettings(p.TotalRounds)
}

func (c *Controller) handlePlayerList(players []protocol.Player) {
	c.view.ShowPlayers(players)
}

// handleRosterUpdate covers player-joined and player-left, including the
// host-handover case where this player inherits the role.
func (c *Controller) handleRosterUpdate(p protocol.RosterUpdate) {
	if p.Players != nil {
		c.view.ShowPlayers(p.Players)
	}
	if p.NewHost == nil {
		return
	}

	id := c.store.Identity()
	if p.NewHost.Username != id.Username || id.IsHost {
		return
	}
	id.IsHost = true
	if err := c.store.SetIdentity(id); err != nil {
		log.Error().Err(err).Msg("persist host handover failed")
	}
	log.Info().Str("room_code", id.RoomCode).Msg("host role inherited")
	c.view.ShowStatus("You are now the host")
}

func (c *Controller) handleSettingsUpdated(p protocol.SettingsUpdated) {
	c.view.ShowSettings(p.TotalRounds)
}

func (c *Controller) handleGameStarted() {
	c.mu.Lock()
	c.pendingStart = false
	c.mu.Unlock()
	go func() {
		c.clock.Sleep(startedNavDelay)
		c.navigate(PageGame)
	}()
}

func (c *Controller) handleReturnToSetup() {
	c.mu.Lock()
	if c.playAgainStop != nil {
		close(c.playAgainStop)
		c.playAgainStop = nil
	}
	c.mu.Unlock()

	if err := c.store.ClearGameEnd(); err != nil {
		log.Error().Err(err).Msg("clear game end failed")
	}
	go func() {
		c.clock.Sleep(leaveNavDelay)
		c.navigate(PageLobby)
	}()
}

// handleError surfaces a server rejection and reverts whatever loading state
// was in flight when it arrived.
func (c *Controller) handleError(p protocol.ErrorEvent) {
	msg := p.Message
	if msg == "" {
		msg = "An error occurred"
	}
	rej := &transport.ServerRejection{Message: msg}

	c.mu.Lock()
	wasStarting := c.pendingStart
	wasJoining := c.pendingJoin
	c.pendingStart = false
	c.pendingJoin = false
	if c.playAgainStop != nil {
		close(c.playAgainStop)
		c.playAgainStop = nil
	}
	c.mu.Unlock()

	log.Warn().
		Str("message", msg).
		Bool("was_starting", wasStarting).
		Bool("was_joining", wasJoining).
		Msg("server rejection")
	c.view.ShowError(rej.Message)
}

func validateUsername(username string) error {
	if len(username) < minUsernameLen {
		return &protocol.ValidationError{Field: "username", Reason: "must be at least 2 characters"}
	}
	if len(username) > maxUsernameLen {
		return &protocol.ValidationError{Field: "username", Reason: "must not exceed 20 characters"}
	}
	return nil
}

func decodeInto[T any](handle func(T)) func(json.RawMessage) {
	return func(data json.RawMessage) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			log.Warn().Err(err).Msg("ignoring malformed event payload")
			return
		}
		handle(v)
	}
}
