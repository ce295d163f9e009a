package scheduler

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func TestJitter_WithinTwentyPercent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		interval := time.Duration(rapid.Int64Range(int64(time.Second), int64(5*time.Minute)).Draw(rt, "interval"))
		seed := rapid.Uint64().Draw(rt, "seed")
		rnd := rand.New(rand.NewPCG(seed, 7))

		d := Jitter(interval, 0.2, rnd)
		lo := time.Duration(float64(interval) * 0.8)
		hi := time.Duration(float64(interval) * 1.2)
		if d < lo-time.Microsecond || d > hi+time.Microsecond {
			rt.Fatalf("jitter %v outside [%v, %v]", d, lo, hi)
		}
	})
}

func TestJitter_Extremes(t *testing.T) {
	assert.InDelta(t, float64(8*time.Second), float64(Jitter(10*time.Second, 0.2, constRand(0))), float64(time.Microsecond))
	assert.InDelta(t, float64(10*time.Second), float64(Jitter(10*time.Second, 0.2, constRand(0.5))), float64(time.Microsecond))
	assert.Equal(t, 10*time.Second, Jitter(10*time.Second, 0, constRand(0.9)))
	assert.Equal(t, time.Duration(0), Jitter(10*time.Second, 5, constRand(0)))
}

func TestManualClock_AfterFuncAndStop(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, c.PendingTimers())
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Empty(t, c.PendingTimers())
	assert.Equal(t, time.Unix(5, 0), c.Now())
}

func TestManualClock_CallbackCanReschedule(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3500 * time.Millisecond)
	assert.Equal(t, 3, count)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, c.PendingTimers())
}

func TestManualClock_TickerDropsUnconsumed(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	tk := c.NewTicker(100 * time.Millisecond)

	c.Advance(time.Second)
	select {
	case at := <-tk.C():
		assert.Equal(t, time.Unix(0, int64(100*time.Millisecond)), at)
	default:
		require.Fail(t, "expected a buffered tick")
	}
	select {
	case <-tk.C():
		require.Fail(t, "ticks beyond the buffer should be dropped")
	default:
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		require.Fail(t, "stopped ticker fired")
	default:
	}
}

func TestRealClock(t *testing.T) {
	c := Real()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "timer did not fire")
	}
	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	<-tk.C()
}
