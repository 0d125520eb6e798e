package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Wager bounds for numeric wagers. The lucky sentinel sits outside this range
// and its point delta is decided entirely by the server.
const (
	MinWagerPoints = 1
	MaxWagerPoints = 25
)

// luckySentinel is the wire representation of the lucky wager.
const luckySentinel = "?"

// Wager is a per-round point wager: either an integer in [1,25] or the lucky
// sentinel. The zero value is not a valid wager.
type Wager struct {
	Lucky  bool
	Points int
}

// LuckyWager returns the lucky sentinel wager.
func LuckyWager() Wager {
	return Wager{Lucky: true}
}

// PointsWager returns a numeric wager of n points.
func PointsWager(n int) Wager {
	return Wager{Points: n}
}

// Valid reports whether the wager is part of the legal vocabulary.
func (w Wager) Valid() bool {
	if w.Lucky {
		return w.Points == 0
	}
	return w.Points >= MinWagerPoints && w.Points <= MaxWagerPoints
}

func (w Wager) String() string {
	if w.Lucky {
		return luckySentinel
	}
	return strconv.Itoa(w.Points)
}

// MarshalJSON encodes numeric wagers as a JSON number and the lucky wager as
// the string "?", matching the server contract.
func (w Wager) MarshalJSON() ([]byte, error) {
	if w.Lucky {
		return json.Marshal(luckySentinel)
	}
	return json.Marshal(w.Points)
}

func (w *Wager) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != luckySentinel {
			return fmt.Errorf("unknown wager sentinel %q", s)
		}
		*w = Wager{Lucky: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("wager must be a number or %q: %w", luckySentinel, err)
	}
	*w = Wager{Points: n}
	return nil
}
