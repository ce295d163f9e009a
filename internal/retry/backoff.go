// Package retry 提供重连使用的指数退避策略。
package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy 定义退避策略配置
type Policy struct {
	InitialDelay time.Duration // 初始延迟时间
	MaxDelay     time.Duration // 最大延迟时间
	Multiplier   float64       // 延迟时间倍增因子（指数退避）
	Jitter       bool          // 是否添加 ±25% 随机抖动
	// PenaltyEvery 每累计多少次外部失败（如规划失败）额外增长一级；0 表示不计入
	PenaltyEvery int
}

// DefaultReconnectPolicy 返回默认的重连策略：5s 起步，翻倍，60s 封顶
func DefaultReconnectPolicy() Policy {
	return Policy{
		InitialDelay: 5 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		PenaltyEvery: 3,
	}
}

func (p Policy) normalized() Policy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = 5 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	return p
}

// Delay 计算第 attempt 次（从 1 开始）重试的延迟
// delay = initial * multiplier^(attempt-1)，不超过 MaxDelay
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) || math.IsInf(delay, 1) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
		if delay > float64(p.MaxDelay) {
			delay = float64(p.MaxDelay)
		}
	}

	if delay < float64(p.InitialDelay) {
		delay = float64(p.InitialDelay)
	}
	return time.Duration(delay)
}

// Backoff 有状态的退避计数器，非并发安全，由持有者 goroutine 独占
type Backoff struct {
	policy  Policy
	attempt int
}

// NewBackoff 创建退避计数器
func NewBackoff(p Policy) *Backoff {
	return &Backoff{policy: p.normalized()}
}

// Next 返回下一次延迟。failures 为外部失败计数，按 PenaltyEvery 折算为额外增长级数。
func (b *Backoff) Next(failures int) time.Duration {
	b.attempt++
	extra := 0
	if b.policy.PenaltyEvery > 0 && failures > 0 {
		extra = failures / b.policy.PenaltyEvery
	}
	return b.policy.Delay(b.attempt + extra)
}

// Reset 连接成功后重置
func (b *Backoff) Reset() { b.attempt = 0 }

// Attempt 当前已计数的失败次数
func (b *Backoff) Attempt() int { return b.attempt }
