package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/quizwire/quizwire/internal/game"
	"github.com/quizwire/quizwire/internal/protocol"
)

// term renders game and lobby state as plain terminal lines. It implements
// game.Presenter and lobby.View.
type term struct {
	mu  sync.Mutex
	out io.Writer

	// Countdown ticks arrive every 100ms; only whole-second changes print.
	lastCountdown string
}

func newTerm(out io.Writer) *term {
	return &term{out: out}
}

func (t *term) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
}

func (t *term) ShowHelp() {
	t.printf(`commands:
  create <username>         create a room (you become host)
  join <username> <code>    join a room by 6-character code
  rounds <n>                set round count (host)
  start [category]          start the game (host)
  wager <1-25|?>            stage a wager for the round
  confirm                   confirm the staged wager
  answer <1-4>              answer the current question
  again                     play again (host, results screen)
  leave                     leave the room
  quit                      exit`)
}

func (t *term) ShowQuestion(q protocol.NewQuestion, offerable []protocol.Wager) {
	var b strings.Builder
	fmt.Fprintf(&b, "\nQuestion %d/%d [%s]\n%s\n", q.QuestionNumber, q.TotalQuestions, q.Category, q.QuestionText)
	for i, a := range q.Answers {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, a)
	}
	labels := make([]string, len(offerable))
	for i, w := range offerable {
		labels[i] = w.String()
	}
	fmt.Fprintf(&b, "wagers available: %s", strings.Join(labels, " "))
	t.printf("%s", b.String())
}

func (t *term) ShowCountdown(remaining time.Duration) {
	display := game.FormatSeconds(remaining)
	t.mu.Lock()
	changed := display != t.lastCountdown
	t.lastCountdown = display
	t.mu.Unlock()
	if changed {
		t.printf("  %ss left", display)
	}
}

func (t *term) ShowStatus(message string) {
	t.printf("%s", message)
}

func (t *term) ShowProgress(answered, total int) {
	t.printf("%d/%d players answered", answered, total)
}

func (t *term) ShowOutcome(o game.Outcome) {
	wager := "none"
	if o.Wager != nil {
		wager = o.Wager.String()
		if o.Wager.Lucky {
			wager = fmt.Sprintf("? (lucky: %+d)", o.LuckyValue)
		}
	}
	if o.Correct {
		t.printf("Correct! +%d points (wagered %s)", o.Points, wager)
	} else {
		t.printf("Incorrect (wagered %s). Correct answer was %d) %s",
			wager, o.CorrectAnswerIndex+1, o.CorrectAnswer)
	}
	if o.AutoSubmitted {
		t.printf("You didn't select a wager or answer in time!")
	}
}

func (t *term) ShowScoreboard(board []protocol.PlayerScore, ownScore int) {
	var b strings.Builder
	b.WriteString("scoreboard:")
	for i, p := range board {
		fmt.Fprintf(&b, "\n  %d. %-20s %d", i+1, p.Username, p.Score)
	}
	fmt.Fprintf(&b, "\nyour score: %d", ownScore)
	t.printf("%s", b.String())
}

func (t *term) ShowFeedback(message string) {
	t.printf("note: %s", message)
}

func (t *term) ShowPlayers(players []protocol.Player) {
	var b strings.Builder
	b.WriteString("players:")
	for _, p := range players {
		role := ""
		if p.IsHost {
			role = " (host)"
		}
		fmt.Fprintf(&b, "\n  %s%s  %d pts", p.Username, role, p.Score)
	}
	t.printf("%s", b.String())
}

func (t *term) ShowSettings(totalRounds int) {
	t.printf("rounds: %d", totalRounds)
}

func (t *term) ShowError(message string) {
	t.printf("error: %s", message)
}

func (t *term) ShowFinalStandings(winner *protocol.PlayerScore, leaderboard []protocol.PlayerScore) {
	if winner == nil {
		t.printf("game over")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nwinner: %s with %d points\nfinal standings:", winner.Username, winner.Score)
	for i, p := range leaderboard {
		fmt.Fprintf(&b, "\n  %d. %-20s %d", i+1, p.Username, p.Score)
	}
	t.printf("%s", b.String())
}
