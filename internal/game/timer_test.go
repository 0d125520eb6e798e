package game

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRemainingClampedNeverNegative(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)
	start := clock.Now()

	if got := cd.Remaining(start, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected 10s remaining, got %s", got)
	}

	clock.Advance(4 * time.Second)
	if got := cd.Remaining(start, 10*time.Second); got != 6*time.Second {
		t.Fatalf("expected 6s remaining, got %s", got)
	}

	clock.Advance(20 * time.Second)
	if got := cd.Remaining(start, 10*time.Second); got != 0 {
		t.Fatalf("expected clamp to zero, got %s", got)
	}
}

func TestCountdownTicksMonotonicallyAndTimesOutOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)
	start := clock.Now()

	var mu sync.Mutex
	var ticks []time.Duration
	timeouts := 0

	cd.Start(start, time.Second,
		func(r time.Duration) {
			mu.Lock()
			ticks = append(ticks, r)
			mu.Unlock()
		},
		func() {
			mu.Lock()
			timeouts++
			mu.Unlock()
		},
	)
	clock.BlockUntil(1)

	for i := 0; i < 12; i++ {
		clock.Advance(100 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}

	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return timeouts == 1
	}, "timeout never fired")

	// Well past the deadline: still exactly one timeout.
	clock.Advance(5 * time.Second)
	time.Sleep(5 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if timeouts != 1 {
		t.Fatalf("expected exactly one timeout, got %d", timeouts)
	}
	if len(ticks) == 0 {
		t.Fatal("expected at least one tick")
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] > ticks[i-1] {
			t.Fatalf("remaining time increased between ticks: %s -> %s", ticks[i-1], ticks[i])
		}
	}
	for _, r := range ticks {
		if r < 0 {
			t.Fatalf("negative remaining time: %s", r)
		}
	}
}

func TestCountdownCancelIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)

	var mu sync.Mutex
	timeouts := 0
	cd.Start(clock.Now(), time.Second, func(time.Duration) {}, func() {
		mu.Lock()
		timeouts++
		mu.Unlock()
	})
	clock.BlockUntil(1)

	cd.Cancel()
	cd.Cancel() // safe when already stopped

	clock.Advance(5 * time.Second)
	time.Sleep(5 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if timeouts != 0 {
		t.Fatalf("cancelled countdown still timed out %d times", timeouts)
	}
}

func TestCountdownStartReplacesRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)

	var mu sync.Mutex
	firstTimeouts, secondTimeouts := 0, 0

	cd.Start(clock.Now(), time.Second, func(time.Duration) {}, func() {
		mu.Lock()
		firstTimeouts++
		mu.Unlock()
	})
	clock.BlockUntil(1)

	cd.Start(clock.Now(), 2*time.Second, func(time.Duration) {}, func() {
		mu.Lock()
		secondTimeouts++
		mu.Unlock()
	})

	clock.Advance(3 * time.Second)
	eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return secondTimeouts == 1
	}, "replacement countdown never timed out")

	mu.Lock()
	defer mu.Unlock()
	if firstTimeouts != 0 {
		t.Fatalf("replaced countdown fired %d times", firstTimeouts)
	}
}

func TestFormatSecondsRoundsUp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{12*time.Second + 300*time.Millisecond, "13"},
		{10 * time.Second, "10"},
		{50 * time.Millisecond, "01"},
		{0, "00"},
		{-time.Second, "00"},
	}
	for _, tc := range cases {
		if got := FormatSeconds(tc.in); got != tc.want {
			t.Errorf("FormatSeconds(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
