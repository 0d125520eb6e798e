package game

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// tickInterval is the countdown render cadence.
const tickInterval = 100 * time.Millisecond

// Countdown derives a round countdown from a server-issued start timestamp.
// Remaining time is always computed against that timestamp, never a locally
// captured start, so clients with different render latencies converge on the
// same deadline. One Countdown serves consecutive rounds; Start replaces any
// running countdown.
type Countdown struct {
	clock clockwork.Clock

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// NewCountdown returns a countdown driven by the given clock.
func NewCountdown(clock clockwork.Clock) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{clock: clock}
}

// Remaining returns the time left in a round started at startedAt with the
// given limit, clamped to zero.
func (c *Countdown) Remaining(startedAt time.Time, limit time.Duration) time.Duration {
	if rem := limit - c.clock.Now().Sub(startedAt); rem > 0 {
		return rem
	}
	return 0
}

// Start begins ticking. onTick receives the clamped remaining time at a fixed
// cadence, starting immediately; when remaining hits zero the ticking stops
// and onTimeout fires exactly once. Any countdown already running is
// cancelled first.
func (c *Countdown) Start(startedAt time.Time, limit time.Duration, onTick func(remaining time.Duration), onTimeout func()) {
	c.mu.Lock()
	if c.running {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.running = true
	c.mu.Unlock()

	log.Debug().
		Time("started_at", startedAt).
		Dur("limit", limit).
		Msg("countdown started")

	go func() {
		ticker := c.clock.NewTicker(tickInterval)
		defer ticker.Stop()

		// Immediate first tick so the display never waits a full interval.
		if done := c.tick(startedAt, limit, onTick, onTimeout, stop); done {
			return
		}
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				if done := c.tick(startedAt, limit, onTick, onTimeout, stop); done {
					return
				}
			}
		}
	}()
}

func (c *Countdown) tick(startedAt time.Time, limit time.Duration, onTick func(time.Duration), onTimeout func(), stop chan struct{}) bool {
	remaining := c.Remaining(startedAt, limit)
	if remaining > 0 {
		onTick(remaining)
		return false
	}

	// Expired: claim the run before firing. A countdown that lost a select
	// race against its own cancellation must not fire.
	c.mu.Lock()
	owns := c.stop == stop && c.running
	if owns {
		c.running = false
	}
	c.mu.Unlock()
	if owns {
		onTimeout()
	}
	return true
}

// Cancel stops the countdown. Idempotent: safe when already stopped, expired
// or never started. Required when results arrive before natural expiry, when
// the game ends, and on teardown.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	close(c.stop)
	c.running = false
	log.Debug().Msg("countdown cancelled")
}

// FormatSeconds renders a remaining duration for display, rounding up to the
// next whole second so the display never shows 0 while time is still
// running, zero-padded to two digits.
func FormatSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d", secs)
}
