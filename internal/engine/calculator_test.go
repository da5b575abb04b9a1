package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRatePerSecond(t *testing.T) {
	cases := []struct {
		name    string
		delta   float64
		elapsed time.Duration
		want    float64
		wantOK  bool
	}{
		{"ten seconds", 50, 10 * time.Second, 5, true},
		{"sub second", 3, 500 * time.Millisecond, 6, true},
		{"negative delta", -20, 10 * time.Second, -2, true},
		{"zero elapsed", 50, 0, 0, false},
		{"below one millisecond", 50, 999 * time.Microsecond, 0, false},
		{"negative elapsed", 50, -time.Second, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ratePerSecond(tc.delta, tc.elapsed)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSafeDivide(t *testing.T) {
	cases := []struct {
		name string
		a, b float64
		want float64
	}{
		{"normal", 10, 4, 2.5},
		{"divide by zero", 5, 0, 0},
		{"zero numerator", 0, 5, 0},
		{"both zero", 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, safeDivide(tc.a, tc.b))
		})
	}
}

func TestMicrosToMillis(t *testing.T) {
	assert.Equal(t, 1.5, microsToMillis(1500))
	assert.Equal(t, 0.0, microsToMillis(0))
}
