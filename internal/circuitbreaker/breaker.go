// Package circuitbreaker 为规划服务调用提供熔断保护。
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/types"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常工作）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中）
	StateOpen
	// StateHalfOpen 半开状态（试探性恢复）
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// Config 熔断器配置
type Config struct {
	// Threshold 连续失败次数阈值（触发熔断）
	Threshold int `yaml:"threshold" env:"THRESHOLD"`

	// Timeout 单次调用超时时间
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// ResetTimeout 熔断恢复等待时间（从 Open -> HalfOpen）
	ResetTimeout time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT"`

	// HalfOpenMaxCalls 半开状态下允许的最大请求数
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" env:"HALF_OPEN_MAX_CALLS"`

	// OnStateChange 状态变更回调
	OnStateChange func(from State, to State) `yaml:"-"`
}

// DefaultConfig 返回默认配置。规划调用比一般 RPC 慢，超时按规划间隔量级设置。
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		Timeout:          20 * time.Second,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker 熔断器，并发安全，可由整个 NPC 集群共享。
type Breaker struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	mu                sync.Mutex
	state             State
	failureCount      int       // 连续失败次数
	lastFailureTime   time.Time // 最后失败时间
	halfOpenCallCount int       // 半开状态下的调用次数
}

// New 创建熔断器
func New(config Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = def.ResetTimeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}

	return &Breaker{
		config: config,
		logger: logger.With(zap.String("component", "circuit_breaker")),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Call 在熔断保护下执行 fn，fn 收到带超时的 context。
// 熔断期间立即返回 CIRCUIT_OPEN 错误，不调用 fn。
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil && callCtx.Err() != nil {
		err = fmt.Errorf("call timed out: %w", callCtx.Err())
	}

	// 调用方主动取消或请求本身无效不计入熔断失败
	success := err == nil || isClientError(err) || errors.Is(ctx.Err(), context.Canceled)
	b.afterCall(success)
	return err
}

// isClientError 判断错误是否为客户端错误（不应计入熔断失败）。
func isClientError(err error) bool {
	var e *types.Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Code == types.ErrInvalidConfig {
		return true
	}
	return e.HTTPStatus >= 400 && e.HTTPStatus < 500 && e.HTTPStatus != 408 && e.HTTPStatus != 429
}

// beforeCall 调用前检查
func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.lastFailureTime) > b.config.ResetTimeout {
			b.setState(StateHalfOpen)
			b.halfOpenCallCount = 1
			b.logger.Info("熔断器进入半开状态")
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		if b.halfOpenCallCount >= b.config.HalfOpenMaxCalls {
			return ErrTooManyCallsInHalfOpen
		}
		b.halfOpenCallCount++
		return nil

	default:
		return fmt.Errorf("未知的熔断器状态: %v", b.state)
	}
}

// afterCall 调用后处理
func (b *Breaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.onSuccess()
	} else {
		b.onFailure()
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		b.failureCount = 0

	case StateHalfOpen:
		b.logger.Info("熔断器恢复正常",
			zap.Int("half_open_calls", b.halfOpenCallCount),
		)
		b.setState(StateClosed)
		b.failureCount = 0
		b.halfOpenCallCount = 0
	}
}

func (b *Breaker) onFailure() {
	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.config.Threshold {
			b.logger.Warn("熔断器打开",
				zap.Int("failure_count", b.failureCount),
				zap.Int("threshold", b.config.Threshold),
			)
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		b.logger.Warn("熔断器半开状态失败，重新打开",
			zap.Int("half_open_calls", b.halfOpenCallCount),
		)
		b.setState(StateOpen)
		b.halfOpenCallCount = 0
	}
}

// setState 设置状态并触发回调（调用方持有锁）
func (b *Breaker) setState(newState State) {
	oldState := b.state
	b.state = newState

	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(oldState, newState)
	}
}

// State 获取当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset 重置熔断器（手动恢复）
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldState := b.state
	b.state = StateClosed
	b.failureCount = 0
	b.halfOpenCallCount = 0

	b.logger.Info("熔断器已重置",
		zap.String("from_state", oldState.String()),
	)
	if b.config.OnStateChange != nil && oldState != StateClosed {
		go b.config.OnStateChange(oldState, StateClosed)
	}
}

// 错误定义
var (
	ErrCircuitOpen            = types.NewError(types.ErrCircuitOpen, "planner circuit open").WithRetryable(true)
	ErrTooManyCallsInHalfOpen = types.NewError(types.ErrCircuitOpen, "too many calls while half-open").WithRetryable(true)
)
