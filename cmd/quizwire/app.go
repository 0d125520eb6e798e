package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quizwire/quizwire/internal/game"
	"github.com/quizwire/quizwire/internal/lobby"
	"github.com/quizwire/quizwire/internal/protocol"
	"github.com/quizwire/quizwire/internal/session"
	"github.com/quizwire/quizwire/internal/transport"
)

const (
	readyAttempts = 50
	readyInterval = 100 * time.Millisecond
)

func run(ctx context.Context, cfg *Config) error {
	level, err := zerolog.ParseLevel(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.Open(cfg.sessionPath())
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	clock := clockwork.NewRealClock()
	client := transport.NewClient(cfg.serverURL, transport.DefaultConfig(), store, clock)

	term := newTerm(os.Stdout)
	navCh := make(chan string, 4)
	navigate := func(page string) { navCh <- page }

	rooms := lobby.NewController(client, store, term, clock, navigate)
	rooms.Bind(client)

	cycle := game.NewCycle(game.CycleConfig{
		Identity:  store,
		Emitter:   client,
		Tracker:   game.NewTracker(),
		Countdown: game.NewCountdown(clock),
		Scores:    game.NewAggregator("", ""),
		Recorder:  store,
		Presenter: term,
		Clock:     clock,
		OnGameEnd: func() { navigate(lobby.PageResults) },
	})
	cycle.Bind(client)

	client.OnDisconnect(func(err error) {
		term.ShowError("Connection lost. You have been disconnected from the room.")
		stop()
	})

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to server, please retry: %w", err)
	}
	defer client.Close()

	if err := client.AwaitReady(readyAttempts, readyInterval); err != nil {
		term.ShowError("Server is slow to respond; commands may fail until it catches up.")
	}

	if id := store.Identity(); id.CanResume() {
		term.ShowStatus(fmt.Sprintf("Resumed session in room %s as %s", id.RoomCode, id.Username))
	} else {
		term.ShowStatus("Type 'help' for commands.")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case page := <-navCh:
			showPage(term, rooms, page)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleCommand(term, rooms, cycle, line); quit {
				return nil
			}
		}
	}
}

func showPage(term *term, rooms *lobby.Controller, page string) {
	switch page {
	case lobby.PageResults:
		winner, leaderboard := rooms.FinalStandings()
		term.ShowFinalStandings(winner, leaderboard)
	default:
		term.ShowStatus("-> " + page)
	}
}

// handleCommand maps a terminal line onto controller actions. Errors are
// rendered, never fatal.
func handleCommand(term *term, rooms *lobby.Controller, cycle *game.Cycle, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		term.ShowHelp()
	case "create":
		if len(args) != 1 {
			err = fmt.Errorf("usage: create <username>")
			break
		}
		err = rooms.CreateRoom(args[0])
	case "join":
		if len(args) != 2 {
			err = fmt.Errorf("usage: join <username> <room-code>")
			break
		}
		err = rooms.JoinRoom(args[0], args[1])
	case "rounds":
		var n int
		if n, err = parseIntArg(args, "rounds <n>"); err == nil {
			err = rooms.UpdateSettings(n)
		}
	case "start":
		err = rooms.StartGame(strings.Join(args, " "))
	case "wager":
		if len(args) != 1 {
			err = fmt.Errorf("usage: wager <1-25|?>")
			break
		}
		w := protocol.LuckyWager()
		if args[0] != "?" {
			var n int
			if n, err = strconv.Atoi(args[0]); err != nil {
				err = fmt.Errorf("usage: wager <1-25|?>")
				break
			}
			w = protocol.PointsWager(n)
		}
		err = cycle.SelectWager(w)
	case "confirm":
		err = cycle.ConfirmWager()
	case "answer":
		var n int
		if n, err = parseIntArg(args, "answer <1-4>"); err == nil {
			err = cycle.SubmitAnswer(n - 1)
		}
	case "again":
		err = rooms.PlayAgain()
	case "leave":
		err = rooms.LeaveRoom()
	case "home":
		err = rooms.LeaveRoom()
	case "quit", "exit":
		return true
	default:
		err = fmt.Errorf("unknown command %q, try 'help'", cmd)
	}

	if err != nil {
		term.ShowError(err.Error())
	}
	return false
}

func parseIntArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	return n, nil
}
