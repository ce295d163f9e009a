package retry

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// 延迟始终落在 [InitialDelay, MaxDelay] 内，且随 attempt 单调不减
func TestProperty_DelayBoundedAndMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("delay stays within policy bounds and never shrinks", prop.ForAll(
		func(initialMs, extraMs int, multiplier float64, attempt int) bool {
			p := Policy{
				InitialDelay: time.Duration(initialMs) * time.Millisecond,
				MaxDelay:     time.Duration(initialMs+extraMs) * time.Millisecond,
				Multiplier:   multiplier,
			}
			d1 := p.Delay(attempt)
			d2 := p.Delay(attempt + 1)

			if d1 < p.InitialDelay || d1 > p.MaxDelay {
				t.Logf("delay %v outside [%v, %v]", d1, p.InitialDelay, p.MaxDelay)
				return false
			}
			if d2 < d1 {
				t.Logf("attempt %d: %v then %v", attempt, d1, d2)
				return false
			}
			return true
		},
		gen.IntRange(1, 10_000),
		gen.IntRange(0, 120_000),
		gen.Float64Range(1.0, 4.0),
		gen.IntRange(1, 64),
	))

	properties.Property("jittered delay stays within policy bounds", prop.ForAll(
		func(attempt int) bool {
			p := DefaultReconnectPolicy()
			p.Jitter = true
			d := p.Delay(attempt)
			return d >= p.InitialDelay && d <= p.MaxDelay
		},
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}

// 规划失败越多，下一次重连延迟不会更短
func TestProperty_PenaltyNeverShortensDelay(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("more failures never shorten the next delay", prop.ForAll(
		func(failures, more int) bool {
			a := NewBackoff(DefaultReconnectPolicy())
			b := NewBackoff(DefaultReconnectPolicy())
			return b.Next(failures+more) >= a.Next(failures)
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
