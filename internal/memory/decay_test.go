package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgeDays(t *testing.T) {
	tests := []struct {
		createdAt string
		want      int
	}{
		{"2026-02-01", 0},
		{"2026-01-31", 1},
		{"2026-01-02", 30},
		{"2026-01-31T10:00:00Z", 0},
		{"2026-01-30T08:00:00Z", 2},
		{"2026-03-01", 0},
		{"yesterday", UnknownAgeDays},
		{"", UnknownAgeDays},
	}
	for _, tt := range tests {
		t.Run(tt.createdAt, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeDays(tt.createdAt, fixedNow))
		})
	}
}

func TestDecay(t *testing.T) {
	assert.Equal(t, 1.0, Decay(0, 30))
	assert.InDelta(t, 0.5, Decay(30, 30), 1e-9)
	assert.InDelta(t, 0.25, Decay(60, 30), 1e-9)
	assert.Equal(t, MinDecay, Decay(UnknownAgeDays, 30))
	assert.InDelta(t, 0.5, Decay(30, 0), 1e-9, "non-positive half-life uses the default")
}

func TestDecay_MonotonicInAge(t *testing.T) {
	prev := Decay(0, 14)
	for age := 1; age < 200; age++ {
		d := Decay(age, 14)
		assert.LessOrEqual(t, d, prev, "age %d", age)
		prev = d
	}
}
