package memory

import (
	"math"
	"time"
)

const (
	// DefaultHalfLifeDays is the recency half-life when none is given.
	DefaultHalfLifeDays = 30.0
	// MinDecay and MaxDecay bound the recency multiplier.
	MinDecay = 0.05
	MaxDecay = 1.0
	// UnknownAgeDays is the age given to observations with an unparseable date.
	UnknownAgeDays = 10000
)

// AgeDays returns the whole days elapsed from createdAt to now, clamped to
// zero. createdAt may be YYYY-MM-DD or RFC 3339; anything else yields
// UnknownAgeDays.
func AgeDays(createdAt string, now time.Time) int {
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		t, err = time.Parse(time.DateOnly, createdAt)
	}
	if err != nil {
		return UnknownAgeDays
	}
	days := math.Floor(now.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// Decay returns 0.5^(age/halfLife) clamped to [MinDecay, MaxDecay].
// A non-positive halfLife uses DefaultHalfLifeDays.
func Decay(ageDays int, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	d := math.Pow(0.5, float64(ageDays)/halfLifeDays)
	return math.Max(MinDecay, math.Min(MaxDecay, d))
}
