package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/npcagent/backend"
	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/internal/retry"
	"github.com/BaSui01/npcagent/internal/scheduler"
	"github.com/BaSui01/npcagent/tokenstore"
	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// =============================================================================
// 🔌 协作接口
// =============================================================================

// Session 后端会话。*backend.Session 实现该接口。
type Session interface {
	Identity() world.Identity
	Token() string
	View() world.View
	Call(reducer string, args ...any) error
	Subscribe(tables []string) error
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Dialer 建立会话
type Dialer interface {
	Dial(ctx context.Context, token string) (Session, error)
}

// DialerFunc 函数适配器
type DialerFunc func(ctx context.Context, token string) (Session, error)

// Dial 实现 Dialer
func (f DialerFunc) Dial(ctx context.Context, token string) (Session, error) { return f(ctx, token) }

// BackendDialer 将 *backend.Dialer 适配为 Dialer
func BackendDialer(d *backend.Dialer) Dialer {
	return DialerFunc(func(ctx context.Context, token string) (Session, error) {
		s, err := d.Dial(ctx, token)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// TokenStore 身份令牌持久化
type TokenStore interface {
	Load(ctx context.Context, name string) (string, error)
	Save(ctx context.Context, name, token string) error
}

// Planner 规划服务。返回 nil 计划表示没有新计划。
type Planner interface {
	Plan(ctx context.Context, req types.PlanRequest) (*types.Plan, error)
}

// Metrics 运行时指标
type Metrics interface {
	ObserveTick(npc string, d time.Duration)
	IncRule(rule string)
	IncAction(action, status string)
	IncEvent(event string)
	SetConnected(npc string, connected bool)
	IncReconnect(npc string)
	IncPlanInstalled(npc string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(string, time.Duration) {}
func (nopMetrics) IncRule(string)                    {}
func (nopMetrics) IncAction(string, string)          {}
func (nopMetrics) IncEvent(string)                   {}
func (nopMetrics) SetConnected(string, bool)         {}
func (nopMetrics) IncReconnect(string)               {}
func (nopMetrics) IncPlanInstalled(string)           {}

// Rand 随机源（抖动、逃跑方向、探索航点、闲聊）
type Rand interface {
	Float64() float64
}

// =============================================================================
// ⚙️ 配置
// =============================================================================

// Config 单个 NPC 的运行参数
type Config struct {
	TickRate        int           // 快循环频率（Hz）
	PlannerInterval time.Duration // 规划间隔
	PlannerJitter   float64       // 规划间隔抖动比例
	PlannerTimeout  time.Duration // 单次规划超时
	Reconnect       retry.Policy
	Bounds          geom.Bounds
	// ChatLines 闲聊语句；为空时不闲聊
	ChatLines []string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		TickRate:        10,
		PlannerInterval: 15 * time.Second,
		PlannerJitter:   0.2,
		PlannerTimeout:  20 * time.Second,
		Reconnect:       retry.DefaultReconnectPolicy(),
		Bounds:          geom.DefaultBounds(),
		ChatLines: []string{
			"Anyone seen water around here?",
			"Watch out for wolves.",
			"Good day for gathering.",
		},
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.PlannerInterval <= 0 {
		c.PlannerInterval = def.PlannerInterval
	}
	if c.PlannerJitter < 0 {
		c.PlannerJitter = 0
	}
	if c.PlannerTimeout <= 0 {
		c.PlannerTimeout = def.PlannerTimeout
	}
	if c.Bounds.Size <= 0 {
		c.Bounds = def.Bounds
	}
	return c
}

// TickInterval 快循环周期
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// =============================================================================
// 🤖 Agent
// =============================================================================

// Option Agent 选项
type Option func(*Agent)

// WithClock 替换时钟（测试使用 scheduler.ManualClock）
func WithClock(c scheduler.Clock) Option { return func(a *Agent) { a.clock = c } }

// WithRand 替换随机源
func WithRand(r Rand) Option { return func(a *Agent) { a.rnd = r } }

// WithMetrics 注入指标
func WithMetrics(m Metrics) Option { return func(a *Agent) { a.metrics = m } }

// WithLogger 注入日志
func WithLogger(l *zap.Logger) Option { return func(a *Agent) { a.logger = l } }

// WithPlanner 注入规划器；未注入时跳过规划
func WithPlanner(p Planner) Option { return func(a *Agent) { a.planner = p } }

// mailboxSize PushEvent 缓冲
const mailboxSize = 32

type loopHandle struct {
	gen  uint64
	stop chan struct{}
	done chan struct{}
}

// Agent 单个 NPC：一个后端会话、一个黑板、一个循环 goroutine
type Agent struct {
	char    types.Character
	cfg     Config
	dialer  Dialer
	tokens  TokenStore
	planner Planner
	clock   scheduler.Clock
	rnd     Rand
	metrics Metrics
	logger  *zap.Logger

	// bb 只由循环 goroutine 读写
	bb *Blackboard

	callLog rate.Sometimes
	selfLog rate.Sometimes
	ruleLog rate.Sometimes

	mu         sync.Mutex
	sess       Session
	closed     bool
	connecting bool
	reconnect  scheduler.Timer
	// epoch 每次 Disconnect 递增，过期的重连回调据此放弃
	epoch      uint64
	backoff    *retry.Backoff
	loop       *loopHandle
	gen        uint64

	plannerFailures atomic.Int64
	mailbox         chan types.GameEvent
}

// New 创建 Agent
func New(char types.Character, cfg Config, dialer Dialer, tokens TokenStore, opts ...Option) *Agent {
	a := &Agent{
		char:    char,
		cfg:     cfg.normalized(),
		dialer:  dialer,
		tokens:  tokens,
		clock:   scheduler.Real(),
		metrics: nopMetrics{},
		bb:      NewBlackboard(),
		callLog: rate.Sometimes{Interval: 5 * time.Second},
		selfLog: rate.Sometimes{Interval: 10 * time.Second},
		ruleLog: rate.Sometimes{Interval: 10 * time.Second},
		mailbox: make(chan types.GameEvent, mailboxSize),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rnd == nil {
		a.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.With(zap.String("component", "agent"), zap.String("npc", char.Name))
	a.backoff = retry.NewBackoff(a.cfg.Reconnect)
	return a
}

// Name 显示名
func (a *Agent) Name() string { return a.char.Name }

// Character 角色设定
func (a *Agent) Character() types.Character { return a.char }

// Session 当前会话；未连接时为 nil
func (a *Agent) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess
}

// Connected reports whether a live session is attached.
func (a *Agent) Connected() bool { return a.Session() != nil }

// =============================================================================
// 🔗 连接与重连
// =============================================================================

// Connect 使用持久化令牌建立会话，注册 NPC 并订阅世界表。
// 失败时按退避策略安排重连并返回错误。显式调用会撤销之前的 Disconnect。
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	a.closed = false
	epoch := a.epoch
	a.mu.Unlock()
	return a.connect(ctx, epoch)
}

// connect 供 Connect 与重连定时器共用。epoch 已变化或已 Disconnect 时直接放弃，
// 且不会清除 closed 标记。
func (a *Agent) connect(ctx context.Context, epoch uint64) error {
	a.mu.Lock()
	if a.closed || a.epoch != epoch {
		a.mu.Unlock()
		return types.NewError(types.ErrNotConnected, "agent disconnected")
	}
	if a.sess != nil || a.connecting {
		a.mu.Unlock()
		return nil
	}
	a.connecting = true
	a.mu.Unlock()

	sess, err := a.dial(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.connecting = false
	if a.closed || a.epoch != epoch {
		if sess != nil {
			_ = sess.Close()
		}
		return types.NewError(types.ErrNotConnected, "agent disconnected during connect")
	}
	if err != nil {
		a.logger.Warn("connect failed", zap.Error(err))
		a.scheduleReconnectLocked()
		return err
	}
	a.sess = sess
	a.backoff.Reset()
	a.metrics.SetConnected(a.char.Name, true)
	a.logger.Info("connected", zap.String("identity", string(sess.Identity())))
	go a.watch(sess)
	return nil
}

func (a *Agent) dial(ctx context.Context) (Session, error) {
	token := ""
	if a.tokens != nil {
		t, err := a.tokens.Load(ctx, a.char.Name)
		switch {
		case err == nil:
			token = t
		case !errors.Is(err, tokenstore.ErrNotFound):
			a.logger.Warn("load token failed", zap.Error(err))
		}
	}
	if token != "" && !backend.TokenUsable(token, a.clock.Now()) {
		a.logger.Info("discarding expired token")
		token = ""
	}

	sess, err := a.dialer.Dial(ctx, token)
	if err != nil {
		return nil, err
	}

	if issued := sess.Token(); issued != "" && a.tokens != nil {
		if err := a.tokens.Save(ctx, a.char.Name, issued); err != nil {
			a.logger.Warn("save token failed", zap.Error(err))
		}
	}
	if err := sess.Call(backend.ReducerRegisterNPC, a.char.Name, string(a.char.Role)); err != nil {
		a.logger.Warn("register npc failed", zap.Error(err))
	}
	if err := sess.Subscribe(world.SubscribedTables()); err != nil {
		_ = sess.Close()
		return nil, err
	}
	return sess, nil
}

// watch 会话结束时清除会话并安排重连
func (a *Agent) watch(sess Session) {
	<-sess.Done()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess != sess {
		return
	}
	a.sess = nil
	a.metrics.SetConnected(a.char.Name, false)
	if a.closed {
		return
	}
	a.logger.Warn("session lost", zap.Error(sess.Err()))
	a.scheduleReconnectLocked()
}

func (a *Agent) scheduleReconnectLocked() {
	if a.closed {
		return
	}
	if a.reconnect != nil {
		a.reconnect.Stop()
	}
	delay := a.backoff.Next(int(a.plannerFailures.Load()))
	a.metrics.IncReconnect(a.char.Name)
	a.logger.Info("reconnect scheduled", zap.Duration("delay", delay), zap.Int("attempt", a.backoff.Attempt()))
	epoch := a.epoch
	a.reconnect = a.clock.AfterFunc(delay, func() {
		_ = a.connect(context.Background(), epoch)
	})
}

// Disconnect 停止循环，关闭会话并清除身份。不再重连。
func (a *Agent) Disconnect() {
	a.StopLoops()

	a.mu.Lock()
	a.closed = true
	a.epoch++
	if a.reconnect != nil {
		a.reconnect.Stop()
		a.reconnect = nil
	}
	sess := a.sess
	a.sess = nil
	a.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			a.logger.Debug("close session", zap.Error(err))
		}
		a.metrics.SetConnected(a.char.Name, false)
	}
	a.logger.Info("disconnected")
}

// =============================================================================
// 🔁 循环
// =============================================================================

// StartLoops 在 jitter 延迟后启动快循环与规划循环；重复调用无效
func (a *Agent) StartLoops(jitter time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loop != nil {
		return
	}
	a.gen++
	h := &loopHandle{gen: a.gen, stop: make(chan struct{}), done: make(chan struct{})}
	a.loop = h
	go a.run(h, jitter)
}

// StopLoops 停止两个定时器并等待循环 goroutine 退出。
// 进行中的规划结果被丢弃。
func (a *Agent) StopLoops() {
	a.mu.Lock()
	h := a.loop
	a.loop = nil
	a.mu.Unlock()
	if h == nil {
		return
	}
	close(h.stop)
	<-h.done
}

// PushEvent 通知规划器；邮箱满时丢弃并返回 false
func (a *Agent) PushEvent(e types.GameEvent) bool {
	if e.Timestamp.IsZero() {
		e.Timestamp = a.clock.Now()
	}
	select {
	case a.mailbox <- e:
		return true
	default:
		a.logger.Debug("event mailbox full", zap.String("event", string(e.Type)))
		return false
	}
}

func (a *Agent) run(h *loopHandle, jitter time.Duration) {
	defer close(h.done)

	if jitter > 0 {
		start := make(chan struct{})
		t := a.clock.AfterFunc(jitter, func() { close(start) })
		select {
		case <-h.stop:
			t.Stop()
			return
		case <-start:
		}
	}

	ticker := a.clock.NewTicker(a.cfg.TickInterval())
	defer ticker.Stop()

	fire := make(chan struct{}, 1)
	results := make(chan planResult, 1)
	var (
		timer    scheduler.Timer
		inflight context.CancelFunc
	)
	arm := func() {
		timer = a.clock.AfterFunc(nextPlannerDelay(a.cfg, a.rnd), func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}
	arm()
	defer func() {
		timer.Stop()
		if inflight != nil {
			inflight()
		}
	}()

	a.logger.Debug("loops started", zap.Uint64("generation", h.gen))
	for {
		select {
		case <-h.stop:
			a.logger.Debug("loops stopped", zap.Uint64("generation", h.gen))
			return
		case now := <-ticker.C():
			a.runTick(now)
		case e := <-a.mailbox:
			a.bb.PushEvent(e)
		case <-fire:
			if inflight == nil {
				inflight = a.startPlanning(results)
			}
			arm()
		case r := <-results:
			if inflight != nil {
				inflight()
				inflight = nil
			}
			a.applyPlan(r)
		}
	}
}

// nextPlannerDelay 规划间隔 ±抖动
func nextPlannerDelay(cfg Config, rnd Rand) time.Duration {
	return scheduler.Jitter(cfg.PlannerInterval, cfg.PlannerJitter, rnd)
}
