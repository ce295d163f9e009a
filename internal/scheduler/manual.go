package scheduler

import (
	"sort"
	"sync"
	"time"
)

// ManualClock 手动推进的时钟，用于测试。
// AfterFunc 回调在 Advance 的调用 goroutine 中同步执行。
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	waiters []*manualWaiter
}

type manualWaiter struct {
	clock  *ManualClock
	id     int
	at     time.Time
	fn     func()
	ticker *manualTicker
	period time.Duration
	done   bool
}

// NewManualClock 创建从 start 开始的手动时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now 实现 Clock.Now
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc 实现 Clock.AfterFunc
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.addLocked(d, f, nil, 0)
	return w
}

// NewTicker 实现 Clock.NewTicker
func (c *ManualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time, 1)}
	t.w = c.addLocked(d, nil, t, d)
	return t
}

func (c *ManualClock) addLocked(d time.Duration, f func(), t *manualTicker, period time.Duration) *manualWaiter {
	c.seq++
	w := &manualWaiter{clock: c, id: c.seq, at: c.now.Add(d), fn: f, ticker: t, period: period}
	c.waiters = append(c.waiters, w)
	return w
}

// Advance 推进时间并按到期顺序触发定时器
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		w := c.nextDueLocked(target)
		if w == nil {
			break
		}
		c.now = w.at
		if w.ticker != nil {
			select {
			case w.ticker.ch <- w.at:
			default:
			}
			w.at = w.at.Add(w.period)
			continue
		}
		w.done = true
		c.removeLocked(w)
		c.mu.Unlock()
		w.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

func (c *ManualClock) nextDueLocked(target time.Time) *manualWaiter {
	var next *manualWaiter
	for _, w := range c.waiters {
		if w.at.After(target) {
			continue
		}
		if next == nil || w.at.Before(next.at) || (w.at.Equal(next.at) && w.id < next.id) {
			next = w
		}
	}
	return next
}

func (c *ManualClock) removeLocked(w *manualWaiter) {
	for i, x := range c.waiters {
		if x == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// PendingTimers 返回尚未触发的一次性定时器距今的延迟（升序）
func (c *ManualClock) PendingTimers() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, w := range c.waiters {
		if w.ticker == nil {
			out = append(out, w.at.Sub(c.now))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stop 实现 Timer.Stop
func (w *manualWaiter) Stop() bool {
	c := w.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if w.done {
		return false
	}
	w.done = true
	c.removeLocked(w)
	return true
}

type manualTicker struct {
	ch chan time.Time
	w  *manualWaiter
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.w.Stop() }
