// Package game implements the per-round question cycle: wager selection,
// gated answer submission, server-clock countdown and result display, along
// with the trackers those pieces share.
package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/protocol"
	"github.com/quizwire/quizwire/internal/session"
)

// State is the question-cycle state.
type State int

const (
	StateAwaitingQuestion State = iota
	StateAwaitingWager
	StateAwaitingAnswer
	StateAwaitingResults
	StateShowingResults
	StateGameEnded
)

func (s State) String() string {
	switch s {
	case StateAwaitingQuestion:
		return "awaiting-question"
	case StateAwaitingWager:
		return "awaiting-wager"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateAwaitingResults:
		return "awaiting-results"
	case StateShowingResults:
		return "showing-results"
	case StateGameEnded:
		return "game-ended"
	default:
		return "unknown"
	}
}

// Emitter sends a command to the server. *transport.Client satisfies it.
type Emitter interface {
	Emit(event string, payload any) error
}

// Subscriber registers inbound event handlers. *transport.Client satisfies it.
type Subscriber interface {
	On(event string, fn func(data json.RawMessage))
}

// IdentitySource yields the live room identity. Consulted at emit and match
// time, never cached: a room confirmed after the cycle was built must flow
// into every round command. *session.Store satisfies it.
type IdentitySource interface {
	Identity() session.Identity
}

// GameEndRecorder persists the final standings for the results view.
// *session.Store satisfies it.
type GameEndRecorder interface {
	SaveGameEnd(winner protocol.PlayerScore, leaderboard []protocol.PlayerScore) error
}

// Outcome is the local player's rendered result for one round.
type Outcome struct {
	Correct            bool
	Points             int
	Wager              *protocol.Wager
	LuckyValue         int
	AnswerIndex        int
	CorrectAnswerIndex int
	CorrectAnswer      string
	AutoSubmitted      bool
}

// Presenter is the rendering collaborator. Rendering itself is outside this
// package; implementations must not call back into the Cycle.
type Presenter interface {
	ShowQuestion(q protocol.NewQuestion, offerable []protocol.Wager)
	ShowCountdown(remaining time.Duration)
	ShowStatus(message string)
	ShowProgress(answered, total int)
	ShowOutcome(o Outcome)
	ShowScoreboard(board []protocol.PlayerScore, ownScore int)
	ShowFeedback(message string)
}

// CycleConfig wires a Cycle's collaborators and timings. Identity is
// required; zero durations get defaults; a nil Presenter renders nowhere.
type CycleConfig struct {
	Identity  IdentitySource
	Emitter   Emitter
	Tracker   *Tracker
	Countdown *Countdown
	Scores    *Aggregator
	Recorder  GameEndRecorder
	Presenter Presenter
	Clock     clockwork.Clock

	// SettleDelay separates the forced wager from the forced answer on the
	// timeout path, giving the wager acknowledgment a head start. Best
	// effort, not transactional.
	SettleDelay time.Duration
	// ResultsWindow is how long the round outcome stays up before
	// auto-dismissing.
	ResultsWindow time.Duration
	// EndDelay is the pause before handing off navigation after game end.
	EndDelay time.Duration

	// OnGameEnd hands navigation to the results view. Called once, after
	// EndDelay.
	OnGameEnd func()
}

// Cycle is the per-round controller. All transitions run under one mutex, so
// the check-and-set on hasAnswered is atomic with the submission it guards:
// the user path and the timeout path can never both submit.
type Cycle struct {
	cfg CycleConfig

	mu             sync.Mutex
	state          State
	question       *protocol.NewQuestion
	startedAt      time.Time
	hasAnswered    bool
	wagerConfirmed bool
	autoSubmitted  bool
	ended          bool
}

// NewCycle returns a cycle in AwaitingQuestion.
func NewCycle(cfg CycleConfig) *Cycle {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 200 * time.Millisecond
	}
	if cfg.ResultsWindow == 0 {
		cfg.ResultsWindow = 3 * time.Second
	}
	if cfg.EndDelay == 0 {
		cfg.EndDelay = 2 * time.Second
	}
	if cfg.Presenter == nil {
		cfg.Presenter = nopPresenter{}
	}
	return &Cycle{cfg: cfg}
}

// Bind subscribes the cycle to the round events it consumes.
func (c *Cycle) Bind(sub Subscriber) {
	sub.On(protocol.EventGameStarted, func(json.RawMessage) {
		c.HandleGameStarted()
	})
	sub.On(protocol.EventNewQuestion, decodeInto(c.HandleNewQuestion))
	sub.On(protocol.EventAnswerSubmitted, decodeInto(c.HandleAnswerSubmitted))
	sub.On(protocol.EventQuestionResults, decodeInto(c.HandleResults))
	sub.On(protocol.EventQuestionFeedback, decodeInto(c.HandleFeedback))
	sub.On(protocol.EventGameEnded, decodeInto(c.HandleGameEnded))
}

// State returns the current cycle state.
func (c *Cycle) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasAnswered reports whether this round already produced a submission.
func (c *Cycle) HasAnswered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasAnswered
}

// AutoSubmitted reports whether this round's submission came from the
// timeout fallback.
func (c *Cycle) AutoSubmitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoSubmitted
}

// HandleGameStarted acknowledges the start of the round sequence.
func (c *Cycle) HandleGameStarted() {
	c.cfg.Presenter.ShowStatus("Waiting for first question...")
}

// HandleNewQuestion begins a round: per-round flags reset, wager choices
// re-rendered from the tracker, answer input gated off, countdown started
// against the server timestamp.
func (c *Cycle) HandleNewQuestion(q protocol.NewQuestion) {
	c.mu.Lock()
	c.question = &q
	c.startedAt = q.StartedAt()
	c.hasAnswered = false
	c.wagerConfirmed = false
	c.autoSubmitted = false
	c.state = StateAwaitingWager
	c.cfg.Tracker.ClearSelection()
	offerable := c.cfg.Tracker.Offerable()
	c.mu.Unlock()

	log.Info().
		Int("question", q.QuestionNumber).
		Int("of", q.TotalQuestions).
		Str("category", q.Category).
		Float64("time_limit", q.TimeLimit).
		Msg("new question")

	c.cfg.Presenter.ShowQuestion(q, offerable)
	c.cfg.Presenter.ShowStatus("Select your wager to continue...")
	c.cfg.Countdown.Start(q.StartedAt(), q.Limit(), c.cfg.Presenter.ShowCountdown, c.handleTimeout)
}

// SelectWager stages a wager choice for the round.
func (c *Cycle) SelectWager(w protocol.Wager) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingWager {
		return fmt.Errorf("cannot select wager in state %s", c.state)
	}
	return c.cfg.Tracker.Select(w)
}

// ConfirmWager consumes the staged wager, forwards it to the server and
// unlocks answer submission. Confirming with nothing staged is legal and
// sends a null wager. Validation errors never reach the wire.
func (c *Cycle) ConfirmWager() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingWager {
		return fmt.Errorf("cannot confirm wager in state %s", c.state)
	}

	confirmed, err := c.cfg.Tracker.Confirm()
	if err != nil {
		c.cfg.Presenter.ShowStatus("Invalid wager. Select between 1 and 25 or ?.")
		return err
	}
	if err := c.cfg.Emitter.Emit(protocol.CmdSelectPoints, protocol.SelectPoints{
		RoomCode: c.roomCode(),
		Points:   confirmed,
	}); err != nil {
		return err
	}

	c.wagerConfirmed = true
	c.state = StateAwaitingAnswer
	c.cfg.Presenter.ShowStatus("Answer the question!")
	log.Info().Stringer("state", c.state).Msg("wager confirmed")
	return nil
}

// roomCode reads the live room code so commands follow a room confirmed
// after construction.
func (c *Cycle) roomCode() string {
	return c.cfg.Identity.Identity().RoomCode
}

// SubmitAnswer submits the user's answer. Idempotent by guard: once a
// submission exists for the round, further calls are no-ops. Answering ahead
// of the wager gets a prompt instead of silence.
func (c *Cycle) SubmitAnswer(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaitingWager {
		c.cfg.Presenter.ShowStatus("Confirm your wager first.")
		return nil
	}
	if c.state != StateAwaitingAnswer || c.hasAnswered {
		return nil
	}
	if c.question == nil || index < 0 || index >= len(c.question.Answers) {
		return &protocol.ValidationError{Field: "answer", Reason: "option out of range"}
	}
	return c.submitLocked(index, false)
}

// submitLocked performs the one submission a round may produce. Caller holds
// the mutex, which makes the hasAnswered check-and-set atomic.
func (c *Cycle) submitLocked(index int, auto bool) error {
	elapsed := c.cfg.Clock.Now().Sub(c.startedAt).Seconds()
	if err := c.cfg.Emitter.Emit(protocol.CmdSubmitAnswer, protocol.SubmitAnswer{
		RoomCode:    c.roomCode(),
		AnswerIndex: index,
		TimeElapsed: elapsed,
	}); err != nil {
		return err
	}

	c.hasAnswered = true
	c.autoSubmitted = auto
	c.state = StateAwaitingResults
	if auto {
		c.cfg.Presenter.ShowStatus("Time's up! Auto-submitted...")
	} else {
		c.cfg.Presenter.ShowStatus("Waiting for other players...")
	}
	log.Info().
		Int("answer_index", index).
		Float64("time_elapsed", elapsed).
		Bool("auto", auto).
		Msg("answer submitted")
	return nil
}

// handleTimeout is the countdown's one-shot expiry path. It guarantees the
// round produces exactly one submission even under total inaction: a forced
// minimal wager when none was confirmed, then the forced answer after the
// settling delay.
func (c *Cycle) handleTimeout() {
	c.mu.Lock()
	if c.hasAnswered || c.ended {
		c.mu.Unlock()
		return
	}

	if !c.wagerConfirmed {
		forced := protocol.PointsWager(protocol.MinWagerPoints)
		c.cfg.Tracker.ConsumeForced(forced)
		if err := c.cfg.Emitter.Emit(protocol.CmdSelectPoints, protocol.SelectPoints{
			RoomCode: c.roomCode(),
			Points:   &forced,
		}); err != nil {
			log.Error().Err(err).Msg("forced wager emit failed")
		}
		c.wagerConfirmed = true
		c.state = StateAwaitingAnswer
		c.mu.Unlock()

		log.Warn().Msg("timeout with no wager, forced minimal wager")

		// Let the wager acknowledgment land before the forced answer. The
		// ordering is best effort; the server tolerates either order.
		go func() {
			c.cfg.Clock.Sleep(c.cfg.SettleDelay)
			c.autoSubmit()
		}()
		return
	}

	c.state = StateAwaitingAnswer
	if err := c.submitLocked(0, true); err != nil {
		log.Error().Err(err).Msg("timeout auto-submit failed")
	}
	c.mu.Unlock()
}

func (c *Cycle) autoSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Results may land during the settling delay; a round that already moved
	// on must not be dragged back by a late forced answer.
	if c.state != StateAwaitingAnswer || c.hasAnswered || c.ended {
		return
	}
	if err := c.submitLocked(0, true); err != nil {
		log.Error().Err(err).Msg("timeout auto-submit failed")
	}
}

// HandleAnswerSubmitted renders the round's progress indicator.
func (c *Cycle) HandleAnswerSubmitted(p protocol.AnswerSubmitted) {
	c.cfg.Presenter.ShowProgress(p.PlayerAnswered, p.TotalPlayers)
}

// HandleResults terminates the round with the server's authoritative
// outcome. A result for a round with no recorded submission is still
// rendered; scoring correctness is the server's responsibility.
func (c *Cycle) HandleResults(res protocol.QuestionResults) {
	c.cfg.Countdown.Cancel()
	c.cfg.Scores.SetSelfName(c.cfg.Identity.Identity().Username)
	c.cfg.Scores.ApplySnapshot(res.PlayerScores)

	c.mu.Lock()
	question := c.question
	auto := c.autoSubmitted
	c.state = StateShowingResults
	c.mu.Unlock()

	if own := c.ownResult(res); own != nil {
		o := Outcome{
			Correct:            own.IsCorrect,
			Points:             own.Points,
			Wager:              own.Wager,
			LuckyValue:         own.LuckyValue,
			AnswerIndex:        own.AnswerIndex,
			CorrectAnswerIndex: res.CorrectAnswerIndex,
			AutoSubmitted:      auto,
		}
		if question != nil && res.CorrectAnswerIndex >= 0 && res.CorrectAnswerIndex < len(question.Answers) {
			o.CorrectAnswer = question.Answers[res.CorrectAnswerIndex]
		}
		c.cfg.Presenter.ShowOutcome(o)
	} else {
		log.Warn().Msg("no own result in round outcome")
	}
	c.cfg.Presenter.ShowScoreboard(c.cfg.Scores.Board(), c.cfg.Scores.CurrentScore())

	// Auto-dismiss a fixed window later; the next question replaces the
	// state anyway if it arrives first.
	go func() {
		c.cfg.Clock.Sleep(c.cfg.ResultsWindow)
		c.mu.Lock()
		if c.state == StateShowingResults {
			c.state = StateAwaitingQuestion
		}
		c.mu.Unlock()
	}()
}

// ownResult joins the per-player results with the score push to locate the
// local player's entry: the score push carries usernames, the results only
// connection ids.
func (c *Cycle) ownResult(res protocol.QuestionResults) *protocol.PlayerResult {
	selfID := c.cfg.Scores.SelfID()
	if selfID == "" {
		return nil
	}
	for i := range res.Results {
		if res.Results[i].PlayerID == selfID {
			return &res.Results[i]
		}
	}
	return nil
}

// HandleFeedback renders an advisory mid-round note without changing state.
func (c *Cycle) HandleFeedback(f protocol.QuestionFeedback) {
	c.cfg.Presenter.ShowFeedback(f.Message)
}

// HandleGameEnded cancels the countdown, persists the final standings and
// hands navigation to the results view after a short delay. Terminal.
func (c *Cycle) HandleGameEnded(g protocol.GameEnded) {
	c.cfg.Countdown.Cancel()

	c.mu.Lock()
	c.state = StateGameEnded
	c.ended = true
	c.mu.Unlock()

	if c.cfg.Recorder != nil {
		if err := c.cfg.Recorder.SaveGameEnd(g.Winner, g.Leaderboard); err != nil {
			log.Error().Err(err).Msg("persist final standings failed")
		}
	}
	log.Info().
		Str("winner", g.Winner.Username).
		Int("players", len(g.Leaderboard)).
		Msg("game ended")
	c.cfg.Presenter.ShowStatus("Game over!")

	if c.cfg.OnGameEnd != nil {
		go func() {
			c.cfg.Clock.Sleep(c.cfg.EndDelay)
			c.cfg.OnGameEnd()
		}()
	}
}

// decodeInto adapts a typed handler to the raw-payload subscription shape,
// dropping malformed payloads with a warning.
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

type nopPresenter struct{}

func (nopPresenter) ShowQuestion(protocol.NewQuestion, []protocol.Wager)  {}
func (nopPresenter) ShowCountdown(time.Duration)                          {}
func (nopPresenter) ShowStatus(string)                                    {}
func (nopPresenter) ShowProgress(int, int)                                {}
func (nopPresenter) ShowOutcome(Outcome)                                  {}
func (nopPresenter) ShowScoreboard([]protocol.PlayerScore, int)           {}
func (nopPresenter) ShowFeedback(string)                                  {}
