package agent

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/npcagent/internal/scheduler"
)

// FleetConfig 舰队启动与关闭参数
type FleetConfig struct {
	BootStagger     time.Duration // 相邻 NPC 连接间隔
	MaxLoopJitter   time.Duration // 循环启动随机延迟上限
	ShutdownTimeout time.Duration // 关闭等待上限
}

// DefaultFleetConfig 返回默认舰队配置
func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		BootStagger:     500 * time.Millisecond,
		MaxLoopJitter:   2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Fleet 管理多个 NPC 的启动与关闭。只编排顺序，不触碰 NPC 内部状态。
type Fleet struct {
	agents []*Agent
	cfg    FleetConfig
	clock  scheduler.Clock
	rnd    Rand // 只在 Start 的单个 goroutine 中使用
	logger *zap.Logger
}

// FleetOption 舰队可选项
type FleetOption func(*Fleet)

// WithFleetClock 注入交错启动使用的时钟
func WithFleetClock(c scheduler.Clock) FleetOption {
	return func(f *Fleet) { f.clock = c }
}

// WithFleetRand 注入循环抖动使用的随机源
func WithFleetRand(r Rand) FleetOption {
	return func(f *Fleet) { f.rnd = r }
}

// NewFleet 创建舰队
func NewFleet(agents []*Agent, cfg FleetConfig, logger *zap.Logger, opts ...FleetOption) *Fleet {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fleet{
		agents: agents,
		cfg:    cfg,
		clock:  scheduler.Real(),
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: logger.With(zap.String("component", "fleet")),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Agents 舰队中的 NPC
func (f *Fleet) Agents() []*Agent { return f.agents }

// Connected 当前在线的 NPC 数
func (f *Fleet) Connected() int {
	n := 0
	for _, a := range f.agents {
		if a.Connected() {
			n++
		}
	}
	return n
}

// Start 以交错延迟连接每个 NPC 并以随机抖动启动循环。
// 单个 NPC 的连接失败只会触发它自己的重连，不影响其他 NPC。
// ctx 取消时尚未启动的 NPC 被跳过并返回 ctx 的错误。
func (f *Fleet) Start(ctx context.Context) error {
	f.logger.Info("booting fleet", zap.Int("agents", len(f.agents)), zap.Duration("stagger", f.cfg.BootStagger))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range f.agents {
		delay := time.Duration(i) * f.cfg.BootStagger
		jitter := time.Duration(f.rnd.Float64() * float64(f.cfg.MaxLoopJitter))
		g.Go(func() error {
			if delay > 0 {
				due := make(chan struct{})
				timer := f.clock.AfterFunc(delay, func() { close(due) })
				defer timer.Stop()
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-due:
				}
			}
			if err := a.Connect(gctx); err != nil {
				f.logger.Warn("initial connect failed, retrying in background",
					zap.String("npc", a.Name()), zap.Error(err))
			}
			a.StartLoops(jitter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.logger.Info("fleet started", zap.Int("connected", f.Connected()))
	return nil
}

// Shutdown 并发停止所有 NPC 的循环并断开连接，等待全部完成或 ctx 到期。
func (f *Fleet) Shutdown(ctx context.Context) error {
	f.logger.Info("shutting down fleet", zap.Int("agents", len(f.agents)))
	var g errgroup.Group
	for _, a := range f.agents {
		g.Go(func() error {
			a.Disconnect()
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
		f.logger.Info("fleet stopped")
		return nil
	case <-ctx.Done():
		f.logger.Warn("fleet shutdown timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
