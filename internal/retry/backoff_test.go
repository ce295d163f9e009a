package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBackoff_ReconnectSequence(t *testing.T) {
	b := NewBackoff(DefaultReconnectPolicy())

	var got []time.Duration
	for i := 0; i < 7; i++ {
		got = append(got, b.Next(0))
	}

	want := []time.Duration{
		5 * time.Second, 10 * time.Second, 20 * time.Second,
		40 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second,
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 7, b.Attempt())

	b.Reset()
	assert.Equal(t, 5*time.Second, b.Next(0))
}

func TestBackoff_PlannerFailuresGrowFaster(t *testing.T) {
	b := NewBackoff(DefaultReconnectPolicy())
	assert.Equal(t, 5*time.Second, b.Next(2), "below the penalty step there is no effect")

	b.Reset()
	assert.Equal(t, 10*time.Second, b.Next(3))

	b.Reset()
	assert.Equal(t, 60*time.Second, b.Next(300), "penalty stays capped")
}

func TestPolicy_NeverExceedsMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := DefaultReconnectPolicy()
		p.Jitter = rapid.Bool().Draw(rt, "jitter")
		attempt := rapid.IntRange(-5, 10000).Draw(rt, "attempt")

		d := p.Delay(attempt)
		if d > p.MaxDelay || d < p.InitialDelay {
			rt.Fatalf("delay %v outside [%v, %v]", d, p.InitialDelay, p.MaxDelay)
		}
	})
}

func TestPolicy_NormalizesBadValues(t *testing.T) {
	p := Policy{Multiplier: 0.1}
	assert.Equal(t, 5*time.Second, p.Delay(1))
	assert.Equal(t, 5*time.Second, p.Delay(2), "max clamps to initial when unset")
}
