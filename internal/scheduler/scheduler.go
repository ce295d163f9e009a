// Package scheduler 提供可取消的定时器抽象与纯函数抖动计算。
//
// Clock 的真实实现直接委托 time 包；ManualClock 供测试按需推进时间。
package scheduler

import "time"

// Clock 时钟与定时器工厂
type Clock interface {
	Now() time.Time
	// AfterFunc 在 d 之后于独立 goroutine 中执行 f，返回可取消的 Timer。
	AfterFunc(d time.Duration, f func()) Timer
	// NewTicker 返回固定周期的 Ticker；消费不及时的 tick 会被丢弃。
	NewTicker(d time.Duration) Ticker
}

// Timer 可取消的一次性定时器
type Timer interface {
	// Stop 取消定时器，定时器尚未触发时返回 true。
	Stop() bool
}

// Ticker 固定周期触发器
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Rand 抖动所需的随机源
type Rand interface {
	Float64() float64
}

// Jitter 返回 interval ±frac 范围内的延迟。rnd.Float64() 取 [0,1)。
// frac 超出 [0,1] 时会被裁剪；结果不小于 0。
func Jitter(interval time.Duration, frac float64, rnd Rand) time.Duration {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	scale := 1 + (2*rnd.Float64()-1)*frac
	d := time.Duration(float64(interval) * scale)
	if d < 0 {
		return 0
	}
	return d
}

// Real 返回基于 time 包的 Clock
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
